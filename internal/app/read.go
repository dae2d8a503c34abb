package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/metcalfc/spoon/internal/surface"
	"github.com/metcalfc/spoon/internal/tui"
	"github.com/spf13/cobra"
)

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read [file.epub]",
		Short: "Open the reading view",
		Long: `Read opens the full-screen reading view. With a file it imports the book
first. Without one it reopens the book you were reading.

Keys: space copies the current excerpt and moves on, arrows move without
copying, / jumps by number or text, x copies everything read so far.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			s := surface.New("main", lib)
			defer s.Close()
			startSync(ctx)

			p := tea.NewProgram(
				tui.NewModel(s, lib, path, copyText),
				tea.WithAltScreen(),
				tea.WithReportFocus(),
			)
			_, err := p.Run()
			return err
		},
	}
}
