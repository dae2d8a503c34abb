package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/metcalfc/spoon/internal/library"
	"github.com/metcalfc/spoon/internal/state"
	"github.com/metcalfc/spoon/internal/surface"
	"github.com/spf13/cobra"
)

// userError shows the friendly message for a library error while keeping
// the original for errors.Is.
type userError struct{ err error }

func (e userError) Error() string { return library.UserMessage(e.err) }
func (e userError) Unwrap() error { return e.err }

// openActive returns a surface on the active book. The caller closes it.
func openActive() (*surface.Surface, surface.Ready, error) {
	s := surface.New("cli", lib)
	switch st := s.Activate().(type) {
	case surface.Ready:
		return s, st, nil
	default:
		s.Close()
		return nil, surface.Ready{}, userError{library.ErrNoActiveBook}
	}
}

func copyOrWarn(text string, noCopy bool) bool {
	if noCopy {
		return false
	}
	if err := copyText(text); err != nil {
		warn("Clipboard unavailable: %v", err)
		return false
	}
	return true
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.epub>",
		Short: "Import a book and make it the active one",
		Long: `Import extracts and splits a book once. Importing the same file again
reuses the cached excerpts and keeps your place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			book, err := lib.ImportBook(data)
			if err != nil {
				return userError{err}
			}

			ok("Imported %s", color.CyanString(book.Record.Title))
			fmt.Fprintf(stdout, "  File:     %s\n", filepath.Base(args[0]))
			fmt.Fprintf(stdout, "  Hash:     %s\n", book.Hash)
			fmt.Fprintf(stdout, "  Excerpts: %d\n", book.Len())
			if book.Record.HasChapters() {
				fmt.Fprintf(stdout, "  Chapters: %d\n", len(book.Record.Chapters))
			}
			if book.Index > 0 {
				fmt.Fprintf(stdout, "  Resuming at excerpt %d\n", book.Index+1)
			}
			return nil
		},
	}
}

func newNextCmd() *cobra.Command {
	var noCopy bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Copy the current excerpt and move to the next one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, before, err := openActive()
			if err != nil {
				return err
			}
			defer s.Close()

			text, _, err := s.Next()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, text)
			fmt.Fprintln(stdout)
			if copyOrWarn(text, noCopy) {
				ok("Copied excerpt %d/%d", before.Index+1, before.Len())
			}
			if before.Last() {
				warn("That was the last excerpt.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCopy, "no-copy", false, "Print without copying to the clipboard")
	return cmd
}

func newJumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jump <number|text>",
		Short: "Jump to an excerpt by number or by the text it contains",
		Long: `Jump moves to excerpt N when given a number. Otherwise it searches
forward from the current excerpt, ignoring case and wrapping around.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openActive()
			if err != nil {
				return err
			}
			defer s.Close()

			query := strings.Join(args, " ")
			r, found, err := s.Search(query)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no excerpt matches %q", query)
			}
			ok("Now at excerpt %d/%d", r.Index+1, r.Len())
			fmt.Fprintln(stdout, surface.Preview(r.Text(), surface.PreviewRunes))
			return nil
		},
	}
}

func newContextCmd() *cobra.Command {
	var noCopy bool

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Copy everything read so far, for starting a new chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, r, err := openActive()
			if err != nil {
				return err
			}
			defer s.Close()

			text, err := s.ContextText()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, text)
			if copyOrWarn(text, noCopy) {
				ok("Copied excerpts 1-%d", r.Index+1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCopy, "no-copy", false, "Print without copying to the clipboard")
	return cmd
}

func newInstructionCmd() *cobra.Command {
	var (
		set    string
		reset  bool
		doCopy bool
	)

	cmd := &cobra.Command{
		Use:   "instruction",
		Short: "Show, copy or change the preamble pasted before the first excerpt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case reset:
				if err := lib.SetInstruction(""); err != nil {
					return err
				}
				ok("Instruction reset to the default")
			case set != "":
				if err := lib.SetInstruction(set); err != nil {
					return err
				}
				ok("Instruction saved")
			}

			text := lib.Instruction()
			fmt.Fprintln(stdout, text)
			if doCopy && copyOrWarn(text, false) {
				ok("Copied instruction")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&set, "set", "", "Replace the instruction")
	cmd.Flags().BoolVar(&reset, "reset", false, "Restore the default instruction")
	cmd.Flags().BoolVar(&doCopy, "copy", false, "Copy the instruction to the clipboard")
	return cmd
}

func newChaptersCmd() *cobra.Command {
	var (
		copyN    int
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "List the active book's chapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, r, err := openActive()
			if err != nil {
				return err
			}
			defer s.Close()

			chapters, known := surface.Chapters(r)
			if !known {
				warn("Chapters are unknown for this book. Import the file again to list them.")
				return nil
			}

			if copyN != 0 {
				if copyN < 1 || copyN > len(chapters) {
					return userError{library.ErrOutOfRange}
				}
				if copyOrWarn(chapters[copyN-1].Text, false) {
					ok("Copied chapter %d", copyN)
				}
				return nil
			}

			if !detailed {
				detailed = lib.Verbosity() == state.VerbosityDetailed
			}
			header("%s: %d chapters", r.Title, len(chapters))
			for _, ch := range chapters {
				fmt.Fprintf(stdout, "%s %s\n", color.YellowString("Chapter %d", ch.Number), color.HiBlackString("~%d words", ch.Words))
				if detailed {
					fmt.Fprintln(stdout, ch.Text)
				} else {
					fmt.Fprintln(stdout, "  "+ch.Preview)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&copyN, "copy", 0, "Copy chapter N to the clipboard")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show full chapter text")
	return cmd
}

type statusOutput struct {
	Title   string `json:"title"`
	Hash    string `json:"hash"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	Backend string `json:"backend"`
	Dir     string `json:"dir"`
}

func newStatusCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active book and reading position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, r, err := openActive()
			if err != nil {
				if jsonOut {
					return err
				}
				warn("No book is open. Run: spoon import <file.epub>")
				return nil
			}
			defer s.Close()

			out := statusOutput{
				Title:   r.Title,
				Hash:    r.Hash,
				Current: r.Index + 1,
				Total:   r.Len(),
				Percent: surface.Percent(r.Index, r.Len()),
				Backend: cfg.State.Backend,
				Dir:     cfg.State.Dir,
			}
			if jsonOut {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			header("%s", out.Title)
			fmt.Fprintf(stdout, "  Excerpt:  %d/%d (%d%%)\n", out.Current, out.Total, out.Percent)
			fmt.Fprintf(stdout, "  Hash:     %s\n", out.Hash)
			fmt.Fprintf(stdout, "  State:    %s (%s)\n", out.Dir, out.Backend)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [hash]",
		Short: "Forget a cached book and its progress (default: the active book)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hash string
			if len(args) == 1 {
				hash = args[0]
			} else {
				active, found := lib.Active()
				if !found {
					return userError{library.ErrNoActiveBook}
				}
				hash = active
			}

			if _, found := lib.OpenCached(hash); !found {
				warn("Book %s is not cached", hash)
			}
			if err := lib.ClearBook(hash); err != nil {
				return err
			}
			ok("Cleared %s", hash)
			return nil
		},
	}
}
