package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileName derives the default log file name for a target:
// "<base>_<timestamp>.log". The shared "<base>_" prefix is what ties a
// runner's rotated logs together for Prune.
func FileName(targetBase string, now time.Time) string {
	return fmt.Sprintf("%s_%s.log", targetBase, now.Format("20060102-150405"))
}

// Prune deletes all but the newest keep log files for the given target
// in dir. Files are ordered by modification time descending; equal
// times are broken by name so the result is deterministic. Returns the
// number of files removed. A missing directory removes nothing.
func Prune(dir, targetBase string, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be >= 1, got %d", keep)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	prefix := targetBase + "_"
	type logFile struct {
		name string
		mod  time.Time
	}
	var files []logFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{name: name, mod: info.ModTime()})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].mod.Equal(files[j].mod) {
			return files[i].mod.After(files[j].mod)
		}
		return files[i].name < files[j].name
	})

	removed := 0
	for _, f := range files[min(keep, len(files)):] {
		if err := os.Remove(filepath.Join(dir, f.name)); err == nil {
			removed++
		}
	}
	return removed, nil
}
