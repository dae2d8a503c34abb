//go:build gui

package app

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/metcalfc/spoon/internal/library"
	"github.com/metcalfc/spoon/internal/surface"
	"github.com/spf13/cobra"
)

func newOverlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overlay",
		Short: "Open the floating copy button window",
		Long: `Overlay opens a small desktop window with one button. Each press copies
the current excerpt and moves on. It follows the book and position of every
other spoon surface.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			s := surface.New("overlay", lib)
			defer s.Close()
			s.Activate()
			startSync(ctx)

			runOverlayWindow(ctx, s)
			return nil
		},
	}
}

func runOverlayWindow(ctx context.Context, s *surface.Surface) {
	a := fyneapp.New()
	w := a.NewWindow("spoon")

	status := widget.NewLabel("")
	status.Alignment = fyne.TextAlignCenter
	flash := widget.NewLabel("")
	flash.Alignment = fyne.TextAlignCenter

	var copyBtn *widget.Button

	updateDisplay := func() {
		switch st := s.State().(type) {
		case surface.Ready:
			copyBtn.SetText(fmt.Sprintf("%d/%d ▶ copy", st.Index+1, st.Len()))
			copyBtn.Enable()
			status.SetText(st.Title)
		case surface.Failed:
			copyBtn.SetText("copy")
			copyBtn.Disable()
			status.SetText(library.UserMessage(st.Err))
		case surface.Loading:
			copyBtn.Disable()
			status.SetText("loading...")
		case surface.Idle:
			copyBtn.SetText("copy")
			copyBtn.Disable()
			status.SetText("no book open")
		default:
			panic(fmt.Sprintf("app: unhandled state %T", st))
		}
	}

	copyBtn = widget.NewButton("copy", func() {
		before, ok := s.Ready()
		if !ok {
			return
		}
		text, _, err := s.Next()
		if err == nil {
			err = copyText(text)
		}
		switch {
		case err != nil:
			flash.SetText(err.Error())
		case before.Last():
			flash.SetText("last excerpt")
		default:
			flash.SetText("copied")
		}
		updateDisplay()
	})
	copyBtn.Importance = widget.HighImportance

	prev := widget.NewButton("◀", func() {
		s.Advance(-1)
		flash.SetText("")
		updateDisplay()
	})
	next := widget.NewButton("▶", func() {
		s.Advance(1)
		flash.SetText("")
		updateDisplay()
	})

	w.SetContent(container.NewVBox(
		status,
		container.NewBorder(nil, nil, prev, next, copyBtn),
		flash,
	))

	w.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeySpace, fyne.KeyReturn:
			copyBtn.OnTapped()
		case fyne.KeyLeft:
			prev.OnTapped()
		case fyne.KeyRight:
			next.OnTapped()
		case fyne.KeyQ, fyne.KeyEscape:
			a.Quit()
		}
	})

	// r re-reads the store in case a notification was missed.
	w.Canvas().SetOnTypedRune(func(r rune) {
		if r == 'r' || r == 'R' {
			s.Resync()
			updateDisplay()
		}
	})

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-s.Changes():
				fyne.Do(func() {
					flash.SetText("")
					updateDisplay()
				})
			}
		}
	}()
	w.SetOnClosed(func() { close(done) })

	w.Resize(fyne.NewSize(260, 120))
	w.SetFixedSize(true)
	updateDisplay()
	w.ShowAndRun()
}
