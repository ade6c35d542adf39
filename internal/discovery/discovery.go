// Package discovery enumerates the candidate media files of a run.
//
// The whole list is materialized and sorted before any file is moved, so the
// walk never observes the pipeline's own writes.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/media"
)

// Options controls which files Discover returns.
type Options struct {
	// Extensions is the allow-list, with or without leading dots.
	Extensions []string
	// Exclude lists absolute directories to prune, typically the output root
	// when it is nested inside the input root.
	Exclude []string
	// SkipHidden prunes dot-directories and ignores dotfiles.
	SkipHidden bool
	Logger     *slog.Logger
}

// Result is the outcome of a walk.
type Result struct {
	// Files holds absolute paths of matching regular files in lexical order.
	Files []string
	// Ignored counts regular files outside the allow-list.
	Ignored int
	// Unreadable counts subtrees that could not be listed.
	Unreadable int
}

// Discover walks root recursively and returns every regular file whose
// extension is allowed. Symlinks are not followed. A missing or unreadable
// root is an ErrDiscovery error; unreadable subdirectories are logged and
// skipped.
func Discover(root string, opts Options) (Result, error) {
	logger := logging.NewComponentLogger(opts.Logger, "discovery")

	absRoot, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return Result{}, faults.Wrap(faults.ErrDiscovery, "discovery", "resolve root", root, err)
	}
	allowed := media.NewExtensionSet(opts.Extensions)
	excluded := cleanExcludes(absRoot, opts.Exclude)

	var result Result
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == absRoot {
				return walkErr
			}
			result.Unreadable++
			logging.WarnWithContext(logger, "skipping unreadable path", "discovery_unreadable",
				logging.String(logging.FieldFile, path),
				logging.Error(walkErr),
				logging.String(logging.FieldImpact, "files below this path are left in place"),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
			)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != absRoot && opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != absRoot && isExcluded(path, excluded) {
				logger.Debug("pruning excluded directory", logging.String("path", path))
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !allowed.Contains(path) {
			result.Ignored++
			return nil
		}
		result.Files = append(result.Files, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, faults.Wrap(faults.ErrDiscovery, "discovery", "walk", fmt.Sprintf("input directory %s does not exist", absRoot), err)
		}
		return Result{}, faults.Wrap(faults.ErrDiscovery, "discovery", "walk", absRoot, err)
	}

	sort.Strings(result.Files)
	logger.Debug("discovery complete",
		logging.String("root", absRoot),
		logging.Int("files", len(result.Files)),
		logging.Int("ignored", result.Ignored),
		logging.Int("unreadable", result.Unreadable),
	)
	return result, nil
}

// cleanExcludes keeps only directories strictly below root. An exclude that
// contains root (an input nested in the output tree) would prune every
// subdirectory of the input.
func cleanExcludes(root string, dirs []string) []string {
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if abs = filepath.Clean(abs); strings.HasPrefix(abs, prefix) {
			out = append(out, abs)
		}
	}
	return out
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if path == base || strings.HasPrefix(path, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
