package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zurustar/autopiano/pkg/cli"
	"github.com/zurustar/autopiano/pkg/device"
	"github.com/zurustar/autopiano/pkg/fileutil"
	"github.com/zurustar/autopiano/pkg/library"
	"github.com/zurustar/autopiano/pkg/logger"
	"github.com/zurustar/autopiano/pkg/player"
	"github.com/zurustar/autopiano/pkg/script"
	"github.com/zurustar/autopiano/pkg/tui"
)

// DefaultLogFile receives log output while the TUI owns the terminal.
const DefaultLogFile = "autopiano.log"

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger

	in      io.Reader
	out     io.Writer
	term    io.Writer
	toucher device.Toucher
	clock   player.Clock

	registry  *library.Registry
	loader    *script.Loader
	scheduler *player.Scheduler
	finished  chan player.Snapshot
}

// Option configures an Application.
type Option func(*Application)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(app *Application) {
		app.in = in
		app.out = out
	}
}

// WithToucher replaces the adb toucher used outside dry-run mode.
func WithToucher(t device.Toucher) Option {
	return func(app *Application) { app.toucher = t }
}

// WithClock replaces the scheduler's wall clock.
func WithClock(c player.Clock) Option {
	return func(app *Application) { app.clock = c }
}

// New Applicationを作成
func New(opts ...Option) *Application {
	app := &Application{
		in:       os.Stdin,
		out:      os.Stdout,
		finished: make(chan player.Snapshot, 1),
	}
	for _, opt := range opts {
		opt(app)
	}
	// bubbletea needs the terminal itself to detect a TTY
	app.term = app.out
	app.out = &lockedWriter{w: app.out}
	return app
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	config, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = config

	if config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	// 2. ロガーの初期化
	closeLog, err := app.initLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closeLog()

	app.log.Info("Application started", "songs", config.SongsFolder, "scripts", config.ScriptsFolder)

	// 3. 曲フォルダの読み込み
	app.registry = library.NewRegistry(config.SongsFolder, app.log)
	if err := app.registry.Scan(); err != nil {
		if config.SongPath == "" {
			return fmt.Errorf("failed to load songs: %w", err)
		}
		app.log.Warn("Songs folder unavailable", "error", err)
	}

	app.loader = script.NewLoader(config.ScriptsFolder,
		script.WithTextEncoding(config.TextEncoding),
		script.WithLoaderLogger(app.log))

	// 4. 出力先の準備
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, stopSink, err := app.newSink(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare device: %w", err)
	}
	defer stopSink()

	// 5. スケジューラの起動
	opts := []player.Option{player.WithLogger(app.log), player.WithFinishHook(app.onFinish)}
	if app.clock != nil {
		opts = append(opts, player.WithClock(app.clock))
	}
	app.scheduler = player.NewScheduler(sink, opts...)
	app.scheduler.Start()
	defer app.scheduler.Stop()

	// 6. 曲の選択と演奏
	if config.Headless {
		err = app.runHeadless()
	} else {
		err = app.runTUI(ctx)
	}
	if err != nil && !errors.Is(err, library.ErrCancelled) && !errors.Is(err, library.ErrInputClosed) {
		return err
	}

	app.log.Info("Application terminated normally")
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() (func(), error) {
	path := app.config.LogFile
	if path == "" && !app.config.Headless {
		path = DefaultLogFile
	}

	if path == "" {
		if err := logger.InitLoggerTo(app.config.LogLevel, app.out); err != nil {
			return nil, err
		}
		app.log = logger.GetLogger()
		return func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if err := logger.InitLoggerTo(app.config.LogLevel, f); err != nil {
		f.Close()
		return nil, err
	}
	app.log = logger.GetLogger()
	return func() { f.Close() }, nil
}

// newSink returns the NoteSink for the configured mode and a function that
// shuts it down.
func (app *Application) newSink(ctx context.Context) (player.NoteSink, func(), error) {
	if app.config.DryRun {
		app.log.Info("Dry run: notes are printed, not sent")
		if app.config.Headless {
			return &device.LogSink{W: app.out}, func() {}, nil
		}
		return &device.LogSink{Log: app.log}, func() {}, nil
	}

	toucher := app.toucher
	if toucher == nil {
		adb := device.NewADBToucher(app.config.DeviceAddress)
		if err := adb.Connect(ctx); err != nil {
			return nil, nil, err
		}
		app.log.Info("Device ready", "address", app.config.DeviceAddress)
		toucher = adb
	}

	batcher := device.NewBatcher(toucher, device.WithLogger(app.log))
	batcher.Start()
	return batcher, batcher.Stop, nil
}

// onFinish runs on the scheduler's hook goroutine. In idle mode the song is
// unbound before anyone is told it ended.
func (app *Application) onFinish(snap player.Snapshot) {
	if app.config.OnFinish == cli.FinishIdle {
		if err := app.scheduler.Unload(); err != nil {
			app.log.Warn("Failed to unload finished song", "error", err)
		}
	}
	select {
	case app.finished <- snap:
	default:
	}
}

// load converts (if needed) and binds a song to the scheduler.
func (app *Application) load(song library.Song) error {
	sc, err := app.loader.Load(song.Path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", song.Name, err)
	}
	if err := app.scheduler.Load(sc, song.Name); err != nil {
		return err
	}
	app.log.Info("Song selected", "name", song.Name, "entries", sc.Len())
	return nil
}

// initialSong returns the song named on the command line, or the folder's
// only song. nil means the user has to pick one.
func (app *Application) initialSong() (*library.Song, error) {
	if path := app.config.SongPath; path != "" {
		actual, err := fileutil.CheckMIDIPath(path)
		if err != nil {
			return nil, err
		}
		return &library.Song{Name: fileutil.SongName(actual), File: filepath.Base(actual), Path: actual}, nil
	}

	song, needsSelection, err := app.registry.Select()
	if err != nil {
		return nil, err
	}
	if needsSelection {
		return nil, nil
	}
	return song, nil
}

func (app *Application) runTUI(ctx context.Context) error {
	song, err := app.initialSong()
	if err != nil {
		return err
	}
	if song != nil {
		if err := app.load(*song); err != nil {
			return err
		}
	}

	model := tui.NewModel(app.scheduler, app.registry.Songs(), app.load, tui.WithRescan(app.rescan))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithInput(app.in), tea.WithOutput(app.term))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-app.finished:
				p.Send(tui.FinishedMsg{Select: app.config.OnFinish == cli.FinishSelect})
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// rescan re-reads the songs folder so files added while running show up.
func (app *Application) rescan() ([]library.Song, error) {
	if err := app.registry.Scan(); err != nil {
		return nil, err
	}
	return app.registry.Songs(), nil
}

// lockedWriter serializes writes from the prompt and the dry-run sink.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
