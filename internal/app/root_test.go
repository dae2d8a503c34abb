package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/metcalfc/spoon/internal/epubtest"
	"github.com/metcalfc/spoon/internal/library"
)

type testEnv struct {
	t       *testing.T
	clip    []string
	cfgPath string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	e := &testEnv{t: t, cfgPath: filepath.Join(dir, "config.yml")}

	t.Setenv("SPOON_CONFIG", e.cfgPath)
	t.Setenv("SPOON_STATE_DIR", filepath.Join(dir, "state"))
	t.Setenv("SPOON_SEGMENT_TARGET_WORDS", "2")
	color.NoColor = true

	prev := copyText
	copyText = func(s string) error {
		e.clip = append(e.clip, s)
		return nil
	}
	t.Cleanup(func() { copyText = prev })
	return e
}

// run executes one command the way a separate process would.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var out bytes.Buffer
	stdout, stderr = &out, &out
	defer func() { stdout, stderr = os.Stdout, os.Stderr }()

	flagConfig, flagNoColor = "", false
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	closeLibrary()
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("spoon %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (e *testEnv) lastClip() string {
	if len(e.clip) == 0 {
		return ""
	}
	return e.clip[len(e.clip)-1]
}

func (e *testEnv) writeBook() string {
	e.t.Helper()
	path := filepath.Join(e.t.TempDir(), "greek.epub")
	data := epubtest.Build("Greek", "<p>Alpha one. Beta two. Gamma three.</p>", "<p>Delta four.</p>")
	if err := os.WriteFile(path, data, 0644); err != nil {
		e.t.Fatal(err)
	}
	return path
}

func (e *testEnv) status() statusOutput {
	e.t.Helper()
	var st statusOutput
	out := e.mustRun("status", "--json")
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		e.t.Fatalf("status output %q: %v", out, err)
	}
	return st
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	SetVersion("1.2.3")
	if out := e.mustRun("version"); !strings.Contains(out, "spoon 1.2.3") {
		t.Errorf("version = %q", out)
	}
}

func TestImportAndNext(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			e := newEnv(t)
			t.Setenv("SPOON_STATE_BACKEND", backend)
			path := e.writeBook()

			out := e.mustRun("import", path)
			if !strings.Contains(out, "Greek") || !strings.Contains(out, "Excerpts: 4") {
				t.Errorf("import output:\n%s", out)
			}

			e.mustRun("next")
			if e.lastClip() != "[1]\nAlpha one." {
				t.Errorf("clipboard = %q", e.lastClip())
			}
			e.mustRun("next")
			if e.lastClip() != "[2]\nBeta two." {
				t.Errorf("clipboard = %q", e.lastClip())
			}

			st := e.status()
			if st.Title != "Greek" || st.Current != 3 || st.Total != 4 || st.Backend != backend {
				t.Errorf("status = %+v", st)
			}

			out = e.mustRun("import", path)
			if !strings.Contains(out, "Resuming at excerpt 3") {
				t.Errorf("re-import output:\n%s", out)
			}
		})
	}
}

func TestNextOnLastExcerpt(t *testing.T) {
	e := newEnv(t)
	e.mustRun("import", e.writeBook())
	e.mustRun("jump", "4")

	out := e.mustRun("next", "--no-copy")
	if !strings.Contains(out, "[4]\nDelta four.") || !strings.Contains(out, "last excerpt") {
		t.Errorf("next output:\n%s", out)
	}
	if len(e.clip) != 0 {
		t.Error("--no-copy wrote the clipboard")
	}
	if st := e.status(); st.Current != 4 {
		t.Errorf("current = %d, want 4", st.Current)
	}
}

func TestNoActiveBook(t *testing.T) {
	e := newEnv(t)

	for _, args := range [][]string{{"next"}, {"jump", "1"}, {"context"}, {"chapters"}, {"clear"}} {
		_, err := e.run(args...)
		if !errors.Is(err, library.ErrNoActiveBook) {
			t.Errorf("%v: err = %v", args, err)
		}
	}
	if out := e.mustRun("status"); !strings.Contains(out, "No book is open") {
		t.Errorf("status output:\n%s", out)
	}
}

func TestImportErrors(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.epub")
	os.WriteFile(bad, []byte("not a zip"), 0644)
	_, err := e.run("import", bad)
	if !errors.Is(err, library.ErrUnreadableContainer) || !strings.Contains(err.Error(), "could not be read") {
		t.Errorf("bad file: %v", err)
	}

	empty := filepath.Join(dir, "empty.epub")
	os.WriteFile(empty, epubtest.Build("Empty", "<p>Copyright 2020.</p>"), 0644)
	_, err = e.run("import", empty)
	if !errors.Is(err, library.ErrNoExtractableText) || !strings.Contains(err.Error(), "no readable text") {
		t.Errorf("empty book: %v", err)
	}

	if _, err := e.run("import", filepath.Join(dir, "missing.epub")); err == nil {
		t.Error("missing file imported")
	}
}

func TestJump(t *testing.T) {
	e := newEnv(t)
	e.mustRun("import", e.writeBook())

	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"gamma", 3, false},
		{"1", 1, false},
		{"99", 4, false},
		{"zebra", 4, true},
		{"ALPHA", 1, false},
	}
	for _, tt := range tests {
		_, err := e.run("jump", tt.query)
		if (err != nil) != tt.wantErr {
			t.Errorf("jump %q: err = %v", tt.query, err)
		}
		if st := e.status(); st.Current != tt.want {
			t.Errorf("jump %q: current = %d, want %d", tt.query, st.Current, tt.want)
		}
	}
}

func TestContextAndChapters(t *testing.T) {
	e := newEnv(t)
	e.mustRun("import", e.writeBook())
	e.mustRun("jump", "2")

	e.mustRun("context")
	if !strings.HasPrefix(e.lastClip(), "[1]\nAlpha one.\n\n[2]\nBeta two.\n\n---\n") {
		t.Errorf("context = %q", e.lastClip())
	}

	out := e.mustRun("chapters")
	if !strings.Contains(out, "Chapter 1") || !strings.Contains(out, "Chapter 2") {
		t.Errorf("chapters output:\n%s", out)
	}

	e.mustRun("chapters", "--copy", "2")
	if e.lastClip() != "Delta four." {
		t.Errorf("chapter copy = %q", e.lastClip())
	}
	if _, err := e.run("chapters", "--copy", "3"); !errors.Is(err, library.ErrOutOfRange) {
		t.Errorf("out of range chapter: %v", err)
	}
}

func TestInstruction(t *testing.T) {
	e := newEnv(t)

	e.mustRun("instruction", "--set", "Explain each passage.")
	e.mustRun("instruction", "--copy")
	if e.lastClip() != "Explain each passage." {
		t.Errorf("instruction = %q", e.lastClip())
	}

	out := e.mustRun("instruction", "--reset")
	if !strings.Contains(out, library.DefaultInstruction) {
		t.Errorf("reset output:\n%s", out)
	}
}

func TestClear(t *testing.T) {
	e := newEnv(t)
	e.mustRun("import", e.writeBook())
	hash := e.status().Hash

	if out := e.mustRun("clear"); !strings.Contains(out, hash) {
		t.Errorf("clear output:\n%s", out)
	}
	if out := e.mustRun("status"); !strings.Contains(out, "No book is open") {
		t.Errorf("status after clear:\n%s", out)
	}
	if out := e.mustRun("clear", hash); !strings.Contains(out, "not cached") {
		t.Errorf("second clear:\n%s", out)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	e := newEnv(t)

	e.mustRun("config", "set", "serve.port", "9000")
	data, err := os.ReadFile(e.cfgPath)
	if err != nil || !strings.Contains(string(data), "port: 9000") {
		t.Fatalf("config file: %v\n%s", err, data)
	}
	if out := e.mustRun("config", "show"); !strings.Contains(out, "port: 9000") {
		t.Errorf("config show:\n%s", out)
	}

	if _, err := e.run("config", "set", "serve.port", "0"); err == nil {
		t.Error("invalid port accepted")
	}
	if _, err := e.run("config", "set", "nope", "1"); err == nil {
		t.Error("unknown key accepted")
	}
}
