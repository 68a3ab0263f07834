// Package archive writes and reads exported stats snapshots, optionally
// zstd-compressed.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Export writes data to path, compressing it with zstd when compress is
// set. The file is replaced atomically.
func Export(path string, data []byte, compress bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	var encoder *zstd.Encoder
	if compress {
		encoder, err = zstd.NewWriter(tmp)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		w = encoder
	}

	if _, err := w.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if encoder != nil {
		if err := encoder.Close(); err != nil {
			tmp.Close()
			return fmt.Errorf("finalize compression: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Import reads an export written by Export, decompressing zstd content.
// Plain JSON files are returned unchanged.
func Import(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	if !Compressed(raw) {
		return raw, nil
	}

	decoder, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return data, nil
}

// Compressed reports whether data starts with a zstd frame.
func Compressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// DefaultName returns the export file name for a snapshot taken at now.
func DefaultName(now time.Time, compress bool) string {
	name := "codepulse-" + now.Format("2006-01-02") + ".json"
	if compress {
		name += ".zst"
	}
	return name
}
