// midi2script converts MIDI files into raw note scripts that autopiano
// plays. Edited scripts in the output folder are picked up in place of the
// MIDI file on the next run.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/zurustar/autopiano/pkg/cli"
	"github.com/zurustar/autopiano/pkg/logger"
	"github.com/zurustar/autopiano/pkg/script"
	"github.com/zurustar/autopiano/pkg/smf"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("midi2script", flag.ContinueOnError)
	fs.SetOutput(out)

	dir := fs.String("o", cli.DefaultScriptsFolder, "出力フォルダ")
	level := fs.String("l", "info", "ログレベル（debug, info, warn, error）")
	encoding := fs.String("text-encoding", string(smf.Latin1), "テキストイベントの文字コード（latin1, sjis）")
	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: midi2script [-o dir] [-l level] [--text-encoding enc] song.mid...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("no MIDI files given")
	}

	if err := logger.InitLoggerTo(*level, out); err != nil {
		return err
	}
	enc, err := smf.ParseTextEncoding(*encoding)
	if err != nil {
		return err
	}

	loader := script.NewLoader(*dir, script.WithTextEncoding(enc), script.WithLoaderLogger(logger.GetLogger()))
	for _, path := range fs.Args() {
		written, err := loader.Convert(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s -> %s\n", path, written)
	}
	return nil
}
