package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/desertthunder/stx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive video browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/stx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	svc, err := r.service()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, svc, r.reauth)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if m, ok := final.(*ui.Model); ok && m.ViewState() == ui.SignedOutView {
		return fmt.Errorf("%w: signed out during the session", shared.ErrReauthRequired)
	}
	return nil
}
