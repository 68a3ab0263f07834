// Package hook decodes host event envelopes and dispatches them into the
// engine.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/suykerbuyk/codepulse/internal/archive"
	"github.com/suykerbuyk/codepulse/internal/engine"
	"github.com/suykerbuyk/codepulse/internal/logger"
	"github.com/suykerbuyk/codepulse/internal/model"
)

// Envelope kinds.
const (
	KindChange = "change"
	KindIntent = "intent"
	KindTheme  = "theme"
)

// Intent names.
const (
	IntentReset       = "reset"
	IntentRename      = "rename"
	IntentExport      = "export"
	IntentTimerStart  = "timer.start"
	IntentTimerPause  = "timer.pause"
	IntentTimerResume = "timer.resume"
	IntentTimerStop   = "timer.stop"
	IntentProjectOpen = "project.open"
)

// Envelope is one inbound host event.
type Envelope struct {
	Kind   string         `json:"kind"`
	Change *engine.Change `json:"change,omitempty"`
	Intent string         `json:"intent,omitempty"`
	Args   Args           `json:"args"`
	Theme  string         `json:"theme,omitempty"`
}

// Args carries intent parameters; each intent reads only its own.
type Args struct {
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
	Minutes  int    `json:"minutes,omitempty"`
	Task     string `json:"task,omitempty"`
	Path     string `json:"path,omitempty"`
	Compress *bool  `json:"compress,omitempty"`
	Project  string `json:"project,omitempty"`
}

// Handler dispatches envelopes into one engine.
type Handler struct {
	Engine *engine.Engine
	// ExportDir receives exports whose envelope names no path.
	ExportDir string
	Compress  bool
	// OnTheme receives theme changes; the core ignores them.
	OnTheme func(theme string)
	Log     *logger.Logger
	Now     func() time.Time
}

// ErrUnknownKind and ErrUnknownIntent reject envelopes the core cannot route.
var (
	ErrUnknownKind   = errors.New("unknown envelope kind")
	ErrUnknownIntent = errors.New("unknown intent")
)

// Decode reads a stream of envelopes, either one JSON value after another
// or one per line. When the stream does not parse as a whole it is read
// line by line: malformed lines are skipped and reported in the returned
// error, and every valid line is still decoded.
func Decode(r io.Reader) ([]Envelope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read envelopes: %w", err)
	}
	if envs, err := decodeStream(data); err == nil {
		return envs, nil
	}

	var (
		out  []Envelope
		errs []error
	)
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			errs = append(errs, fmt.Errorf("parse envelope on line %d: %w", i+1, err))
			continue
		}
		out = append(out, env)
	}
	return out, errors.Join(errs...)
}

func decodeStream(data []byte) ([]Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var out []Envelope
	for {
		var env Envelope
		err := dec.Decode(&env)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
}

// ReadStdin reads all of stdin, giving up after timeout.
func ReadStdin(timeout time.Duration) ([]byte, error) {
	done := make(chan []byte, 1)
	errCh := make(chan error, 1)

	go func() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			errCh <- err
			return
		}
		done <- data
	}()

	select {
	case data := <-done:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, fmt.Errorf("empty stdin")
		}
		return data, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("stdin read timeout")
	}
}

// HandleAll decodes r and dispatches every envelope in order. A failing
// envelope is logged and does not stop the ones after it; the joined
// errors are returned.
func (h *Handler) HandleAll(ctx context.Context, r io.Reader) (int, error) {
	envs, decErr := Decode(r)
	var errs []error
	if decErr != nil {
		errs = append(errs, decErr)
	}
	for i, env := range envs {
		if err := h.Dispatch(ctx, env); err != nil {
			logger.OrNop(h.Log).Warn("envelope failed", "index", i, "kind", env.Kind, "error", err)
			errs = append(errs, err)
		}
	}
	return len(envs), errors.Join(errs...)
}

// Dispatch routes one envelope.
func (h *Handler) Dispatch(ctx context.Context, env Envelope) error {
	switch env.Kind {
	case KindChange:
		if env.Change == nil {
			return fmt.Errorf("change envelope without change")
		}
		_, err := h.Engine.Ingest(ctx, *env.Change)
		return err
	case KindIntent:
		return h.intent(ctx, env.Intent, env.Args)
	case KindTheme:
		if h.OnTheme != nil {
			h.OnTheme(env.Theme)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}

func (h *Handler) intent(ctx context.Context, name string, a Args) error {
	switch name {
	case IntentReset:
		return h.Engine.Reset(ctx)
	case IntentRename:
		return h.Engine.Rename(ctx, a.Name)
	case IntentExport:
		compress := h.Compress
		if a.Compress != nil {
			compress = *a.Compress
		}
		path := a.Path
		if path == "" {
			path = filepath.Join(h.ExportDir, archive.DefaultName(h.now(), compress))
		}
		return h.Engine.Export(path, compress)
	case IntentTimerStart:
		typ := model.PomodoroType(a.Type)
		if typ == "" {
			typ = model.PomodoroWork
		}
		_, err := h.Engine.StartTimer(ctx, typ, a.Minutes, strings.TrimSpace(a.Task))
		return err
	case IntentTimerPause:
		return h.Engine.PauseTimer(ctx)
	case IntentTimerResume:
		return h.Engine.ResumeTimer(ctx)
	case IntentTimerStop:
		return h.Engine.StopTimer(ctx)
	case IntentProjectOpen:
		_, err := h.Engine.OpenProject(a.Project)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIntent, name)
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
