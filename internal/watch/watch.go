// Package watch feeds envelope files from a spool directory into a sink.
// Writers append one JSON envelope per line to *.jsonl files; each
// complete line is delivered once, in file order. With an offsets file
// that holds across restarts too.
package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/suykerbuyk/codepulse/internal/logger"
	"github.com/suykerbuyk/codepulse/internal/store"
)

// Ext is the suffix of spool files.
const Ext = ".jsonl"

// Sink consumes a batch of envelopes. hook.Handler implements it.
type Sink interface {
	HandleAll(ctx context.Context, r io.Reader) (int, error)
}

// Spool tracks how far each file in a directory has been consumed.
// Offsets are keyed by absolute file path.
type Spool struct {
	dir     string
	sink    Sink
	log     *logger.Logger
	offsets map[string]int64
	saved   *store.FileStore
}

// New returns a spool over dir. Offsets start at zero, so lines already
// present are delivered on the first Poll, unless LoadOffsets restores
// them.
func New(dir string, sink Sink, log *logger.Logger) *Spool {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Spool{
		dir:     dir,
		sink:    sink,
		log:     logger.OrNop(log),
		offsets: make(map[string]int64),
	}
}

// offsetsFile is the on-disk form of the consumed offsets.
type offsetsFile struct {
	Files map[string]int64 `json:"files"`
}

// LoadOffsets restores offsets saved at path and saves every later
// change there. A missing file means nothing was consumed yet.
func (s *Spool) LoadOffsets(ctx context.Context, path string) error {
	fs := store.NewFileStore(path)
	data, err := fs.Load(ctx)
	if err != nil {
		return fmt.Errorf("load spool offsets: %w", err)
	}
	if len(data) > 0 {
		var of offsetsFile
		if err := json.Unmarshal(data, &of); err != nil {
			return fmt.Errorf("parse spool offsets %s: %w", path, err)
		}
		for name, off := range of.Files {
			s.offsets[name] = off
		}
	}
	s.saved = fs
	s.log.Debug("spool offsets loaded", "path", path, "files", len(s.offsets))
	return nil
}

// saveOffsets writes the offsets when LoadOffsets enabled it.
func (s *Spool) saveOffsets(ctx context.Context) error {
	if s.saved == nil {
		return nil
	}
	data, err := json.Marshal(offsetsFile{Files: s.offsets})
	if err != nil {
		return err
	}
	if err := s.saved.Save(ctx, data); err != nil {
		return fmt.Errorf("save spool offsets: %w", err)
	}
	return nil
}

// forget drops the offset of a file that went away.
func (s *Spool) forget(ctx context.Context, path string) {
	if _, ok := s.offsets[path]; !ok {
		return
	}
	delete(s.offsets, path)
	if err := s.saveOffsets(ctx); err != nil {
		s.log.Warn("spool offsets not saved", "error", err)
	}
}

// Poll drains every spool file once, in name order, and returns the number
// of envelopes delivered.
func (s *Spool) Poll(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read spool: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	for path := range s.offsets {
		if filepath.Dir(path) == s.dir && !slices.Contains(names, filepath.Base(path)) {
			s.forget(ctx, path)
		}
	}

	total := 0
	for _, name := range names {
		n, err := s.drain(ctx, filepath.Join(s.dir, name))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Run polls once, then delivers new lines as fsnotify reports writes. It
// returns when ctx is cancelled.
func (s *Spool) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create spool: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	s.log.Info("watching spool", "dir", s.dir)

	if _, err := s.Poll(ctx); err != nil {
		s.log.Warn("initial poll failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, Ext) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				s.forget(ctx, ev.Name)
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				if _, err := s.drain(ctx, ev.Name); err != nil {
					s.log.Warn("spool read failed", "file", ev.Name, "error", err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", "error", err)
		}
	}
}

// drain delivers the complete lines appended to path since the last call.
// A trailing partial line waits for its newline. A file that shrank was
// truncated and is read again from the start.
func (s *Spool) drain(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.forget(ctx, path)
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	off := s.offsets[path]
	if info.Size() < off {
		s.log.Debug("spool file truncated", "file", path)
		off = 0
	}
	if info.Size() == off {
		return 0, nil
	}
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return 0, err
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return 0, nil
	}
	chunk := data[:end+1]
	prev, had := s.offsets[path]
	s.offsets[path] = off + int64(len(chunk))
	// The offset is saved before delivery: a crash in between loses the
	// chunk instead of replaying it.
	if err := s.saveOffsets(ctx); err != nil {
		if had {
			s.offsets[path] = prev
		} else {
			delete(s.offsets, path)
		}
		return 0, err
	}

	n, err := s.sink.HandleAll(ctx, bytes.NewReader(chunk))
	if err != nil {
		// Failed envelopes are not retried; the offset has moved past them.
		s.log.Warn("spool envelopes failed", "file", path, "handled", n, "error", err)
	}
	s.log.Debug("spool drained", "file", path, "envelopes", n, "offset", s.offsets[path])
	return n, nil
}
