package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/codepulse/internal/archive"
	"github.com/suykerbuyk/codepulse/internal/model"
)

func TestRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.e.Rename(ctx, "  Ada Lovelace \n"))
	assert.Equal(t, "Ada Lovelace", f.e.Snapshot().Name)

	assert.ErrorIs(t, f.e.Rename(ctx, "   "), ErrEmptyName)
	assert.Equal(t, "Ada Lovelace", f.e.Snapshot().Name)

	require.NoError(t, f.e.Rename(ctx, strings.Repeat("é", MaxNameLength+5)))
	assert.Equal(t, MaxNameLength, len([]rune(f.e.Snapshot().Name)))
}

func TestReset_KeepsName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.e.Rename(ctx, "Ada"))
	_, err := f.e.Ingest(ctx, insert("/src/app/a.go", "go", "x := 1\n"))
	require.NoError(t, err)

	require.NoError(t, f.e.Reset(ctx))

	s := f.e.Snapshot()
	assert.Equal(t, "Ada", s.Name)
	assert.Zero(t, s.TotalXP)
	assert.Empty(t, s.History)
	assert.Empty(t, s.Badges)

	// Language bonuses are earned again after a reset.
	_, err = f.e.Ingest(ctx, insert("/src/app/a.go", "go", "y := 2\n"))
	require.NoError(t, err)
	assert.True(t, f.e.Snapshot().HasBadge("lang:go"))
}

func TestExportImport(t *testing.T) {
	for _, compress := range []bool{true, false} {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.e.Ingest(ctx, insert("/src/app/a.go", "go", numbered(5)))
		require.NoError(t, err)
		want := f.e.Snapshot()

		path := filepath.Join(t.TempDir(), archive.DefaultName(base, compress))
		require.NoError(t, f.e.Export(path, compress))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, compress, archive.Compressed(raw))

		require.NoError(t, f.e.Reset(ctx))
		require.NoError(t, f.e.Import(ctx, path))

		got := f.e.Snapshot()
		assert.Equal(t, want.ManualLines, got.ManualLines)
		assert.Equal(t, want.TotalXP, got.TotalXP)
		assert.Equal(t, want.History[model.DayKey(base)].Added, got.History[model.DayKey(base)].Added)
		assert.Equal(t, want.Badges[0].ID, got.Badges[0].ID)
	}
}

func TestImport_RejectsGarbage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.e.Rename(ctx, "Ada"))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	assert.Error(t, f.e.Import(ctx, path))
	assert.Equal(t, "Ada", f.e.Snapshot().Name)
}

func TestOpenProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.e.Ingest(ctx, insert("/home/ada/pulse/main.go", "go", "run()\n"))
	require.NoError(t, err)

	p, err := f.e.OpenProject("pulse")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Lines)
	assert.Equal(t, []string{"go"}, p.Languages)
	assert.Equal(t, []string{"/home/ada/pulse/main.go"}, p.Files)

	p.Files[0] = "changed"
	again, _ := f.e.OpenProject("pulse")
	assert.Equal(t, "/home/ada/pulse/main.go", again.Files[0])

	_, err = f.e.OpenProject("nowhere")
	assert.ErrorIs(t, err, ErrUnknownProject)
}
