package app

import (
	"errors"
	"fmt"

	"github.com/zurustar/autopiano/pkg/cli"
	"github.com/zurustar/autopiano/pkg/library"
	"github.com/zurustar/autopiano/pkg/player"
	"github.com/zurustar/autopiano/pkg/tui"
)

// runHeadless reads one command per line from stdin: the TUI hotkeys plus
// "s" for a status line.
func (app *Application) runHeadless() error {
	prompt := library.NewPrompt(app.in, app.out)

	song, err := app.initialSong()
	if err != nil {
		return err
	}
	if song == nil {
		if song, err = prompt.Choose(app.registry.Songs()); err != nil {
			return err
		}
	}
	if err := app.load(*song); err != nil {
		return err
	}
	app.printStatus()

	fmt.Fprintln(app.out, "Commands: p=play/pause r=rewind a=advance z=select -=slower ==reset s=status q=quit")
	for {
		app.reportFinished()

		line, err := prompt.ReadLine()
		if err != nil {
			return err
		}

		switch line {
		case "":
			continue
		case "q":
			return nil
		case "p":
			err = app.scheduler.Toggle()
		case "r":
			err = app.scheduler.Rewind()
		case "a":
			err = app.scheduler.Skip()
		case "-":
			err = app.scheduler.SetSpeed(tui.SlowDown)
		case "=":
			err = app.scheduler.ResetSpeed()
		case "s":
		case "z":
			err = app.reselect(prompt)
			if errors.Is(err, library.ErrCancelled) {
				err = nil
			}
		default:
			fmt.Fprintf(app.out, "Unknown command: %q\n", line)
			continue
		}

		if err != nil {
			if errors.Is(err, library.ErrInputClosed) {
				return err
			}
			fmt.Fprintf(app.out, "Error: %v\n", err)
			continue
		}
		app.printStatus()
	}
}

// reselect pauses playback and asks for another song.
func (app *Application) reselect(prompt *library.Prompt) error {
	if err := app.scheduler.Pause(); err != nil && !errors.Is(err, player.ErrNoActiveSong) {
		return err
	}
	if err := app.registry.Scan(); err != nil {
		return err
	}
	song, err := prompt.Choose(app.registry.Songs())
	if err != nil {
		return err
	}
	return app.load(*song)
}

func (app *Application) reportFinished() {
	select {
	case snap := <-app.finished:
		if app.config.OnFinish == cli.FinishIdle {
			fmt.Fprintf(app.out, "Finished: %s\n", snap.Song)
			return
		}
		fmt.Fprintf(app.out, "Finished: %s (press z to select another song)\n", snap.Song)
	default:
	}
}

func (app *Application) printStatus() {
	snap, err := app.scheduler.Snapshot()
	if err != nil {
		fmt.Fprintf(app.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(app.out, "[%s] %s %d/%d speed=%.2f\n", snap.State, snap.Song, snap.Cursor, snap.Length, snap.Speed)
}
