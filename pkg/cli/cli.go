package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/zurustar/autopiano/pkg/smf"
)

// Defaults for the folder flags.
const (
	DefaultSongsFolder   = "songs"
	DefaultScriptsFolder = "scripts"
)

// What happens when a song reaches its end.
const (
	FinishSelect = "select" // 曲選択に戻る
	FinishIdle   = "idle"   // 曲を解除して待機
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	SongPath      string           // 演奏するMIDIファイル（省略時は曲フォルダから選択）
	SongsFolder   string           // 曲フォルダ
	ScriptsFolder string           // 変換済みスクリプトのフォルダ
	DeviceAddress string           // adbのデバイスアドレス（空の場合は接続中の1台）
	DryRun        bool             // デバイスに送らずに表示だけ行う
	Headless      bool             // ヘッドレスモード（TUIなし、標準入力でコマンド）
	LogLevel      string           // ログレベル（debug, info, warn, error）
	LogFile       string           // ログ出力先ファイル（空の場合はTUI時のみautopiano.log）
	TextEncoding  smf.TextEncoding // MIDIテキストイベントの文字コード
	OnFinish      string           // 曲の終了時の動作（select, idle）
	ShowHelp      bool             // ヘルプ表示フラグ
}

// boolFlags never take a value, so reorderArgs must not swallow the next
// argument after them.
var boolFlags = map[string]bool{
	"-h": true, "--h": true, "-help": true, "--help": true,
	"-headless": true, "--headless": true,
	"-dry-run": true, "--dry-run": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("autopiano", flag.ContinueOnError)

	config := &Config{}

	var encoding string
	fs.StringVar(&config.SongsFolder, "songs-folder", DefaultSongsFolder, "曲フォルダ")
	fs.StringVar(&config.SongsFolder, "f", DefaultSongsFolder, "曲フォルダ（短縮形）")
	fs.StringVar(&config.ScriptsFolder, "scripts-folder", DefaultScriptsFolder, "スクリプトフォルダ")
	fs.StringVar(&config.DeviceAddress, "device", "", "デバイスアドレス")
	fs.StringVar(&config.DeviceAddress, "d", "", "デバイスアドレス（短縮形）")
	fs.BoolVar(&config.DryRun, "dry-run", false, "デバイスにコマンドを送らない")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.StringVar(&config.LogFile, "log-file", "", "ログファイル")
	fs.StringVar(&encoding, "text-encoding", string(smf.Latin1), "テキストイベントの文字コード（latin1, sjis）")
	fs.StringVar(&config.OnFinish, "on-finish", FinishSelect, "曲の終了時の動作（select, idle）")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	if config.SongsFolder == DefaultSongsFolder {
		if folderEnv := os.Getenv("SONGS_FOLDER"); folderEnv != "" {
			config.SongsFolder = folderEnv
		}
	}

	if config.DeviceAddress == "" {
		config.DeviceAddress = os.Getenv("DEVICE_ADDRESS")
	}

	// 環境変数からログレベルを取得（コマンドラインフラグが優先）
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	if config.OnFinish != FinishSelect && config.OnFinish != FinishIdle {
		return nil, fmt.Errorf("invalid finish action: %s (must be select or idle)", config.OnFinish)
	}

	enc, err := smf.ParseTextEncoding(encoding)
	if err != nil {
		return nil, err
	}
	config.TextEncoding = enc

	if config.SongsFolder == "" || config.ScriptsFolder == "" {
		return nil, fmt.Errorf("songs and scripts folders must not be empty")
	}

	// 位置引数（MIDIファイルのパス）
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected at most one MIDI file, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		config.SongPath = fs.Arg(0)
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// -f songs のように次の引数が値の場合は一緒に移動する
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if !boolFlags[arg] && !strings.Contains(arg, "=") {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `autopiano - plays MIDI songs on a phone piano app

Usage:
  autopiano [options] [song.mid]

Arguments:
  song.mid      演奏するMIDIファイル（省略可）
                省略した場合、曲フォルダの一覧から選択

Options:
  -f, --songs-folder <dir>    曲フォルダ（デフォルト: songs）
  --scripts-folder <dir>      変換済みスクリプトのフォルダ（デフォルト: scripts）
  -d, --device <address>      adbのデバイスアドレス（例: 192.168.0.5:5555）
  --dry-run                   デバイスに送らず、押下/解放を表示するだけ
  --headless                  ヘッドレスモード（標準入力からコマンドを読む）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --log-file <path>           ログファイル（TUI使用時のデフォルト: autopiano.log）
  --text-encoding <enc>       テキストイベントの文字コード: latin1, sjis（デフォルト: latin1）
  --on-finish <action>        曲の終了時: select（曲選択）, idle（待機）（デフォルト: select）
  -h, --help                  このヘルプを表示

Controls:
  p   再生/一時停止
  r   10音戻る
  a   10音進む
  z   曲を選択
  -   速度を0.9倍
  =   速度を元に戻す
  q   終了

Environment Variables:
  SONGS_FOLDER=<dir>          曲フォルダ
  DEVICE_ADDRESS=<address>    デバイスアドレス
  HEADLESS=1                  ヘッドレスモードを有効化
  LOG_LEVEL=<level>           ログレベル

Examples:
  autopiano                          曲フォルダから選択して再生
  autopiano songs/canon.mid          指定した曲を再生
  autopiano --dry-run -f ~/midi      デバイスなしで動作確認
  autopiano -d 192.168.0.5:5555      ネットワーク接続のデバイスに送信
`)
}
