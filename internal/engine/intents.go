package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/suykerbuyk/codepulse/internal/archive"
	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/outbox"
	"github.com/suykerbuyk/codepulse/internal/store"
)

// MaxNameLength bounds the display name in runes.
const MaxNameLength = 40

var (
	ErrEmptyName      = errors.New("display name is empty")
	ErrUnknownProject = errors.New("unknown project")
)

// Reset discards all progress, keeping the display name, and stops any
// running focus timer.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	release, err := e.beginLocked(ctx)
	if err != nil {
		return err
	}
	defer release()

	e.detachLocked()
	name := e.stats.Name
	e.stats = model.NewStats()
	e.stats.Name = name
	e.log.Info("stats reset")
	e.out.Notify(outbox.Info, "All stats were reset.")
	_, err = e.persistLocked(ctx)
	return err
}

// Rename changes the display name. Surrounding whitespace is trimmed and
// the name is cut to MaxNameLength runes.
func (e *Engine) Rename(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	release, err := e.beginLocked(ctx)
	if err != nil {
		return err
	}
	defer release()

	e.stats.Name = name
	_, err = e.persistLocked(ctx)
	return err
}

// Export writes the full aggregate, as last saved by any process, to path.
// History is never pruned in an export.
func (e *Engine) Export(path string, compress bool) error {
	e.mu.Lock()
	if err := e.refreshLocked(context.Background(), false); err != nil {
		e.log.Warn("state reload failed, exporting memory", "error", err)
	}
	data, _, err := store.Encode(e.stats, store.EncodeOptions{}, e.now())
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if err := archive.Export(path, data, compress); err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	e.log.Info("snapshot exported", "path", path, "bytes", len(data), "compressed", compress)
	return nil
}

// Import replaces the aggregate with a snapshot written by Export. An
// unusable snapshot is rejected and leaves the current state alone.
func (e *Engine) Import(ctx context.Context, path string) error {
	data, err := archive.Import(path)
	if err != nil {
		return err
	}
	s, err := store.Decode(data)
	if err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	settle(s, e.now())

	e.mu.Lock()
	defer e.mu.Unlock()
	release, err := e.beginLocked(ctx)
	if err != nil {
		return err
	}
	defer release()

	e.detachLocked()
	e.stats = s
	e.out.Notify(outbox.Info, "Snapshot imported.")
	_, err = e.persistLocked(ctx)
	return err
}

// OpenProject returns a copy of the named project rollup. Opening the
// folder itself is left to the host.
func (e *Engine) OpenProject(name string) (model.ProjectStat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.refreshLocked(context.Background(), false); err != nil {
		e.log.Warn("state reload failed", "error", err)
	}

	p, ok := e.stats.Projects[name]
	if !ok {
		e.out.Notify(outbox.Info, fmt.Sprintf("No activity recorded for project %q.", name))
		return model.ProjectStat{}, fmt.Errorf("%w: %s", ErrUnknownProject, name)
	}
	cp := *p
	cp.Languages = append([]string(nil), p.Languages...)
	cp.Files = append([]string(nil), p.Files...)
	return cp, nil
}
