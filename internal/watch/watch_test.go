package watch

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Sink that keeps every line it was handed.
type recorder struct {
	mu    sync.Mutex
	lines []string
	fail  bool
}

func (r *recorder) HandleAll(_ context.Context, rd io.Reader) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	sc := bufio.NewScanner(rd)
	for sc.Scan() {
		r.lines = append(r.lines, sc.Text())
		n++
	}
	if r.fail {
		return n, errors.New("sink failed")
	}
	return n, nil
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func appendTo(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestPoll_DeliversCompleteLinesOnce(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	s := New(dir, rec, nil)
	ctx := context.Background()
	path := filepath.Join(dir, "a.jsonl")

	appendTo(t, path, `{"kind":"theme"}`+"\n"+`{"kind":"intent"`)
	n, err := s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{`{"kind":"theme"}`}, rec.got())

	// Completing the partial line delivers it; nothing is repeated.
	appendTo(t, path, `,"intent":"reset"}`+"\n")
	n, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{`{"kind":"theme"}`, `{"kind":"intent","intent":"reset"}`}, rec.got())

	n, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPoll_IgnoresOtherFilesAndOrdersByName(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	s := New(dir, rec, nil)

	appendTo(t, filepath.Join(dir, "b.jsonl"), "second\n")
	appendTo(t, filepath.Join(dir, "a.jsonl"), "first\n")
	appendTo(t, filepath.Join(dir, "notes.txt"), "ignored\n")

	n, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first", "second"}, rec.got())
}

func TestPoll_TruncatedFileRestarts(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	s := New(dir, rec, nil)
	ctx := context.Background()
	path := filepath.Join(dir, "a.jsonl")

	appendTo(t, path, "one\ntwo\n")
	_, err := s.Poll(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("3\n"), 0o644))
	_, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "3"}, rec.got())
}

func TestPoll_SinkFailureDoesNotRedeliver(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{fail: true}
	s := New(dir, rec, nil)
	ctx := context.Background()

	appendTo(t, filepath.Join(dir, "a.jsonl"), "bad\n")
	_, err := s.Poll(ctx)
	require.NoError(t, err)
	_, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad"}, rec.got())
}

func TestPoll_MissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope"), &recorder{}, nil)
	_, err := s.Poll(context.Background())
	assert.Error(t, err)
}

func TestRun_DeliversAppends(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	s := New(dir, rec, nil)
	path := filepath.Join(dir, "events.jsonl")
	appendTo(t, path, "before\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, 5*time.Second, 10*time.Millisecond)

	appendTo(t, path, "after\n")
	require.Eventually(t, func() bool { return len(rec.got()) == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"before", "after"}, rec.got())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPoll_RestartResumesFromSavedOffsets(t *testing.T) {
	dir := t.TempDir()
	offsets := filepath.Join(t.TempDir(), "spool-offsets.json")
	path := filepath.Join(dir, "a.jsonl")
	ctx := context.Background()
	appendTo(t, path, "one\ntwo\n")

	rec := &recorder{}
	first := New(dir, rec, nil)
	require.NoError(t, first.LoadOffsets(ctx, offsets))
	n, err := first.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A second process picks up where the first stopped.
	appendTo(t, path, "three\n")
	second := New(dir, rec, nil)
	require.NoError(t, second.LoadOffsets(ctx, offsets))
	n, err = second.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"one", "two", "three"}, rec.got())
}

func TestPoll_ForgetsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	offsets := filepath.Join(t.TempDir(), "spool-offsets.json")
	path := filepath.Join(dir, "a.jsonl")
	ctx := context.Background()
	appendTo(t, path, "one\n")

	s := New(dir, &recorder{}, nil)
	require.NoError(t, s.LoadOffsets(ctx, offsets))
	_, err := s.Poll(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	_, err = s.Poll(ctx)
	require.NoError(t, err)

	data, err := os.ReadFile(offsets)
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":{}}`, string(data))
}

func TestLoadOffsets_Corrupt(t *testing.T) {
	offsets := filepath.Join(t.TempDir(), "spool-offsets.json")
	require.NoError(t, os.WriteFile(offsets, []byte("{nope"), 0o644))
	s := New(t.TempDir(), &recorder{}, nil)
	assert.Error(t, s.LoadOffsets(context.Background(), offsets))
}
