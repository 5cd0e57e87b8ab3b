package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// StdoutPath selects standard output as the destination.
const StdoutPath = "-"

// DefaultOutputPath places the document next to the input:
// "talk.mp4" becomes "talk.srt".
func DefaultOutputPath(input, format string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if base == "" || strings.HasSuffix(base, string(filepath.Separator)) {
		base = filepath.Join(base, "subtitles")
	}
	return base + "." + format
}

// WriteOutput atomically replaces path with data. Concurrent runs targeting
// the same file are serialized with an advisory lock.
func WriteOutput(path string, data []byte) (err error) {
	if path == StdoutPath {
		_, err := os.Stdout.Write(data)
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	lockPath := path + ".lock"
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("unlock %s: %w", path, uerr)
		}
		_ = os.Remove(lockPath)
	}()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write output: %w", err)
	}
	if err := errors.Join(tmp.Chmod(0o644), tmp.Close()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("finalize output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
