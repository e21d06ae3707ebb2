package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/brettbeeson/notsolong/internal/feed"
	"github.com/brettbeeson/notsolong/internal/shared"
	"github.com/brettbeeson/notsolong/internal/ui"
)

// TUI launches the interactive title feed.
//
// The session hydrates from the token store before the program starts and
// keeps itself fresh with a background refresh loop for as long as the feed
// is on screen.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/nsl-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	r.session.Hydrate(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.session.StartRefreshLoop(loopCtx)

	controller := feed.NewController(r.client, fileLogger, feed.Options{
		Category:      category,
		ExcludeWindow: r.config.Session.ExcludeWindow,
	})

	model := ui.NewModel(ctx, controller, r.session, r.client)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
