// Package snapshot persists match state as TOML so an interrupted match can
// be resumed or inspected.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lox/dicerush/internal/game"
)

// Version is the current snapshot file format.
const Version = 1

// ErrUnsupportedVersion is returned for snapshot files written by a newer format.
var ErrUnsupportedVersion = errors.New("snapshot: unsupported version")

// File is the on-disk layout.
type File struct {
	Version int        `toml:"version"`
	SavedAt time.Time  `toml:"saved_at"`
	Match   game.State `toml:"match"`
}

// Encode writes st to w.
func Encode(w io.Writer, st game.State, savedAt time.Time) error {
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	if err := enc.Encode(File{Version: Version, SavedAt: savedAt.UTC(), Match: st}); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return nil
}

// EncodeToBytes encodes and returns the result as bytes.
func EncodeToBytes(st game.State, savedAt time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, st, savedAt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a snapshot file from r.
func Decode(r io.Reader) (File, error) {
	var f File
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return File{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	if f.Version < 1 || f.Version > Version {
		return File{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	return f, nil
}

// FileMode is the permission of saved snapshot files.
const FileMode os.FileMode = 0o644

// Save writes st to path. The snapshot is encoded into a hidden partial file
// next to path and renamed over it, so readers never see a half-written
// match.
func Save(path string, st game.State, savedAt time.Time) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.partial")
	if err != nil {
		return fmt.Errorf("snapshot: create: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeSnapshot(tmp, st, savedAt); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// writeSnapshot encodes into f, flushes it to disk and closes it.
func writeSnapshot(f *os.File, st game.State, savedAt time.Time) error {
	err := Encode(f, st, savedAt)
	if err == nil {
		err = f.Chmod(FileMode)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("snapshot: close: %w", cerr)
	}
	return err
}

// Load reads the snapshot at path.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
