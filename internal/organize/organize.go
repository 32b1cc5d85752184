// Package organize sorts raw EdPuzzle exports dumped into one folder into
// per-advisory, per-date input folders.
package organize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Options configures one organize pass.
type Options struct {
	FilesDir   string
	Advisories []string
	Date       time.Time
}

// Result counts what an organize pass changed.
type Result struct {
	Renamed []string
	Created []string
	Moved   map[string][]string
	// Skipped files were not renamed or moved because the target already existed.
	Skipped []string
}

// InputDir is the folder the grader reads for an advisory on date.
func InputDir(filesDir, advisory string, date time.Time) string {
	return filepath.Join(filesDir, fmt.Sprintf("input%s-%s", advisory, date.Format("2006-01-02")))
}

// Run strips spaces from CSV names under FilesDir, creates the dated input
// folder of every advisory and moves each top-level CSV naming an advisory into
// it. Existing files are never overwritten. Running it twice is harmless.
func Run(opts Options) (Result, error) {
	result := Result{Moved: map[string][]string{}}

	info, err := os.Stat(opts.FilesDir)
	if err != nil {
		return result, err
	}
	if !info.IsDir() {
		return result, fmt.Errorf("%s is not a directory", opts.FilesDir)
	}

	renamed, skipped, err := stripSpaces(opts.FilesDir)
	if err != nil {
		return result, err
	}
	result.Renamed = renamed
	result.Skipped = skipped

	for _, advisory := range opts.Advisories {
		dir := InputDir(opts.FilesDir, advisory, opts.Date)
		if _, err := os.Stat(dir); err == nil {
			log.WithField("dir", dir).Info("date dir already exists")
		} else {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return result, fmt.Errorf("create %s: %w", dir, err)
			}
			result.Created = append(result.Created, dir)
		}
	}

	entries, err := os.ReadDir(opts.FilesDir)
	if err != nil {
		return result, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isCSV(entry.Name()) {
			continue
		}
		advisory, ok := matchAdvisory(entry.Name(), opts.Advisories)
		if !ok {
			log.WithField("file", entry.Name()).Warn("no advisory in file name; left in place")
			continue
		}
		from := filepath.Join(opts.FilesDir, entry.Name())
		to := filepath.Join(InputDir(opts.FilesDir, advisory, opts.Date), entry.Name())
		moved, err := rename(from, to)
		if err != nil {
			return result, fmt.Errorf("move %s: %w", from, err)
		}
		if !moved {
			result.Skipped = append(result.Skipped, from)
			continue
		}
		result.Moved[advisory] = append(result.Moved[advisory], entry.Name())
	}
	return result, nil
}

func stripSpaces(root string) (renamed, skipped []string, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isCSV(d.Name()) || !strings.Contains(d.Name(), " ") {
			return nil
		}
		newPath := filepath.Join(filepath.Dir(path), strings.ReplaceAll(d.Name(), " ", "-"))
		ok, err := rename(path, newPath)
		if err != nil {
			return fmt.Errorf("rename %s: %w", path, err)
		}
		if ok {
			renamed = append(renamed, newPath)
		} else {
			skipped = append(skipped, path)
		}
		return nil
	})
	return renamed, skipped, err
}

// rename moves from to to unless to already exists, in which case both files
// are left alone and false is returned.
func rename(from, to string) (bool, error) {
	if _, err := os.Stat(to); err == nil {
		log.WithFields(log.Fields{"file": from, "target": to}).Warn("target already exists; left in place")
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := os.Rename(from, to); err != nil {
		return false, err
	}
	return true, nil
}

// matchAdvisory returns the first configured advisory named in file.
func matchAdvisory(file string, advisories []string) (string, bool) {
	for _, advisory := range advisories {
		if advisory != "" && strings.Contains(file, advisory) {
			return advisory, true
		}
	}
	return "", false
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
