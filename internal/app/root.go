// Package app is the spoon command tree.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/metcalfc/spoon/internal/config"
	"github.com/metcalfc/spoon/internal/library"
	"github.com/metcalfc/spoon/internal/logging"
	"github.com/metcalfc/spoon/internal/state"
	"github.com/metcalfc/spoon/internal/tui"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	backend  state.Backend
	notifier *state.Notifier
	lib      *library.Library

	// copyText is swapped out by tests.
	copyText tui.CopyFunc = tui.SystemClipboard

	flagNoColor bool
	flagConfig  string

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var appVersion = "dev"

// SetVersion records the build version printed by `spoon version`.
func SetVersion(v string) { appVersion = v }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "spoon",
		Short: "Feed an e-book to a chat assistant one excerpt at a time",
		Long: `spoon splits EPUB books into excerpts of a few hundred words and hands
them out one at a time, copying each to the clipboard so it can be pasted
into a chat assistant.

Progress is shared: the terminal reader, the overlay and the browser panel
all follow the same book and position, even from separate processes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/spoon/config.yml)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if flagNoColor {
			color.NoColor = true
		}

		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// version and config never touch the store.
		if cmd.Name() == "version" || (cmd.Parent() != nil && cmd.Parent().Name() == "config") {
			return nil
		}
		return openLibrary()
	}

	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return closeLibrary()
	}

	root.AddCommand(
		newImportCmd(),
		newReadCmd(),
		newOverlayCmd(),
		newNextCmd(),
		newJumpCmd(),
		newContextCmd(),
		newInstructionCmd(),
		newChaptersCmd(),
		newStatusCmd(),
		newClearCmd(),
		newConfigCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute is the entry point called from main.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		closeLibrary()
		fmt.Fprintln(stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func openLibrary() error {
	if err := logging.Init(cfg.State.Dir, cfg.Log.Level); err != nil {
		return err
	}

	var err error
	backend, err = state.Open(cfg.State.Backend, cfg.State.Dir)
	if err != nil {
		return fmt.Errorf("opening state: %w", err)
	}
	notifier = state.NewNotifier()
	lib = library.New(backend, notifier, library.WithTargetWords(cfg.Segment.TargetWords))
	logging.Debug("Library opened", "dir", cfg.State.Dir, "backend", cfg.State.Backend)
	return nil
}

func closeLibrary() error {
	var err error
	if notifier != nil {
		notifier.Close()
		notifier = nil
	}
	if backend != nil {
		err = backend.Close()
		backend = nil
	}
	lib = nil
	logging.Close()
	return err
}

// startSync watches for writes by other processes until ctx ends. Without
// a watcher the library polls, so the surface is only slower to follow.
func startSync(ctx context.Context) {
	if err := lib.StartSync(ctx, cfg.Sync.PollInterval); err != nil {
		logging.Debug("Sync degraded", "error", err, "poll", cfg.Sync.PollInterval)
	}
}

// ok prints a green success line.
func ok(format string, a ...interface{}) {
	fmt.Fprintln(stdout, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(format string, a ...interface{}) {
	fmt.Fprintln(stderr, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// header prints a cyan section heading.
func header(format string, a ...interface{}) {
	fmt.Fprintln(stdout, color.CyanString(fmt.Sprintf(format, a...)))
}
