// Package tui hosts the report editing surface: a four-tab terminal UI over
// the content state (raw text, markdown preview, editor, side-by-side
// comparison), with save/reset/regenerate actions, a single notice line, and
// an unsaved-changes quit guard.
package tui

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ryo8073/report-gen-sub006/internal/contentstate"
	"github.com/ryo8073/report-gen-sub006/internal/generator"
	"github.com/ryo8073/report-gen-sub006/internal/simplelogger"
	"github.com/ryo8073/report-gen-sub006/internal/storage"
	"github.com/ryo8073/report-gen-sub006/internal/viewcoord"
)

// exitGuard implements contentstate.ExitGuard for the terminal host. The
// registered check is consulted when the user asks to quit.
type exitGuard struct {
	mu    sync.Mutex
	check func() (message string, block bool)
}

func (g *exitGuard) Register(check func() (string, bool)) func() {
	g.mu.Lock()
	g.check = check
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.check = nil
		g.mu.Unlock()
	}
}

func (g *exitGuard) consult() (string, bool) {
	g.mu.Lock()
	check := g.check
	g.mu.Unlock()
	if check == nil {
		return "", false
	}
	return check()
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reportgen"
	}
	return filepath.Join(home, ".reportgen")
}

// Run parses flags, wires storage, content state, the view coordinator, and
// the optional generator, and runs the program until quit.
func Run() error {
	fs := flag.NewFlagSet("reportgen", flag.ContinueOnError)
	storageKind := fs.String("storage", "file", "snapshot storage backend: file, sqlite, or memory")
	dataDir := fs.String("data-dir", defaultDataDir(), "directory for persisted session state")
	subject := fs.String("subject", "", "report subject for generation (ctrl+g)")
	sourcePath := fs.String("source", "", "path to source material folded into the generation prompt")
	model := fs.String("model", "", "model id for generation")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	var (
		store  contentstate.Storage
		closer interface{ Close() error }
	)
	switch *storageKind {
	case "file":
		f, err := storage.NewFile(*dataDir)
		if err != nil {
			return fmt.Errorf("open file store: %w", err)
		}
		store = f
	case "sqlite":
		db, err := storage.OpenSQLite(filepath.Join(*dataDir, "reportgen.db"))
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		store = db
		closer = db
	case "memory":
		store = storage.NewMemory()
	default:
		return fmt.Errorf("unknown storage backend %q", *storageKind)
	}
	if closer != nil {
		defer closer.Close()
	}

	guard := &exitGuard{}
	state := contentstate.New(contentstate.Options{
		Storage:   store,
		ExitGuard: guard,
	})
	defer state.Destroy()

	surf := newSurfaces(state)
	board := &noticeBoard{}
	coord := viewcoord.New(viewcoord.Options{
		State:    state,
		Target:   surf,
		Notifier: board,
	})
	defer coord.Destroy()

	var gen *generator.Client
	if c, err := generator.NewClient(generator.Config{}); err == nil {
		gen = c
	} else if !errors.Is(err, generator.ErrNoAPIKey) {
		return err
	}

	genReq := generator.Request{Subject: *subject, Model: *model}
	if *sourcePath != "" {
		source, err := os.ReadFile(*sourcePath)
		if err != nil {
			return fmt.Errorf("read source material: %w", err)
		}
		genReq.Source = string(source)
	}
	if genReq.Subject == "" {
		genReq.Subject = "Report"
	}

	simplelogger.Log("tui: starting storage=%s dataDir=%s", *storageKind, *dataDir)
	p := tea.NewProgram(newModel(state, coord, surf, board, guard, gen, genReq), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
