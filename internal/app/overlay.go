//go:build !gui

package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/metcalfc/spoon/internal/surface"
	"github.com/metcalfc/spoon/internal/tui"
	"github.com/spf13/cobra"
)

func newOverlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overlay",
		Short: "Open the one-line copy button",
		Long: `Overlay is a compact surface meant to sit in a small terminal next to
the chat window. Each press copies the current excerpt and moves on.
Build with -tags gui for a desktop window instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			s := surface.New("overlay", lib)
			defer s.Close()
			startSync(ctx)

			_, err := tea.NewProgram(tui.NewOverlay(s, copyText), tea.WithReportFocus()).Run()
			return err
		},
	}
}
