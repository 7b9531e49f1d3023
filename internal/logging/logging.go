package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const stampLayout = "20060102_150405"

// LogFilePath returns the per-run log file for app inside logsDir,
// e.g. floormap.20260212_213836.log.
func LogFilePath(logsDir, app string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", app, sessionStart.Format(stampLayout)))
}

// PruneLogFiles keeps the newest keep run logs of app in logsDir and removes
// the rest. Files that do not follow the LogFilePath naming are left alone.
// keep <= 0 disables pruning.
func PruneLogFiles(logsDir, app string, keep int) (removed []string, err error) {
	if keep <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return nil, err
	}

	type run struct {
		path  string
		start time.Time
	}
	var runs []run
	prefix := app + "."
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".log")
		start, perr := time.Parse(stampLayout, stamp)
		if perr != nil {
			continue
		}
		runs = append(runs, run{path: filepath.Join(logsDir, name), start: start})
	}
	if len(runs) <= keep {
		return nil, nil
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].start.After(runs[j].start) })
	var errs []error
	for _, r := range runs[keep:] {
		if rerr := os.Remove(r.path); rerr != nil {
			errs = append(errs, rerr)
			continue
		}
		removed = append(removed, r.path)
	}
	return removed, errors.Join(errs...)
}
