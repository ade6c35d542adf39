package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"mediasort/internal/faults"
	"mediasort/internal/fileutil"
)

const maxNameAttempts = 100000

// MoveFunc moves src to dst and must fail with an fs.ErrExist error rather
// than replace an existing dst.
type MoveFunc func(src, dst string) error

// Placer moves files into target directories under collision-free names.
//
// Placement into one directory is serialized by a directory-keyed mutex, and
// the move itself refuses to replace an existing file, so concurrent workers
// and external writers can never cause an overwrite.
type Placer struct {
	move   MoveFunc
	mkdir  func(dir string) error
	exists func(path string) (bool, error)

	mu   sync.Mutex
	dirs map[string]*dirLock
}

type dirLock struct {
	mu   sync.Mutex
	refs int
}

// NewPlacer returns a placer backed by the real filesystem.
func NewPlacer() *Placer {
	return &Placer{
		move:   fileutil.MoveNoReplace,
		mkdir:  fileutil.EnsureDir,
		exists: fileutil.Exists,
		dirs:   make(map[string]*dirLock),
	}
}

// WithMove replaces the move primitive.
func (p *Placer) WithMove(move MoveFunc) *Placer {
	p.move = move
	return p
}

// Place creates targetDir if needed and moves src into it. The base name is
// kept when free; otherwise {stem}_{n}{ext} is tried for n = 1, 2, ... The
// final path is returned.
func (p *Placer) Place(ctx context.Context, src, targetDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Clean(targetDir)
	if err := p.mkdir(dir); err != nil {
		return "", faults.Wrap(faults.ErrPlacement, "placer", "create directory", dir, err)
	}

	unlock := p.lockDir(dir)
	defer unlock()

	base := filepath.Base(src)
	stem, ext := SplitName(base)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := base
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
		}
		candidate := filepath.Join(dir, name)
		taken, err := p.exists(candidate)
		if err != nil {
			return "", faults.Wrap(faults.ErrPlacement, "placer", "check candidate", candidate, err)
		}
		if taken {
			continue
		}
		err = p.move(src, candidate)
		if err == nil {
			return candidate, nil
		}
		if errors.Is(err, fs.ErrExist) {
			// Claimed by a writer outside this process between check and move.
			continue
		}
		return "", faults.Wrap(faults.ErrPlacement, "placer", "move", candidate, err)
	}
	return "", faults.Wrap(faults.ErrPlacement, "placer", "allocate name", fmt.Sprintf("exhausted filename slots for %s in %s", base, dir), nil)
}

// SplitName splits a base name at its last dot. Names without a dot, and
// dotfiles with no further dot, have an empty extension.
func SplitName(base string) (stem, ext string) {
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return base, ""
	}
	return base[:idx], base[idx:]
}

func (p *Placer) lockDir(dir string) func() {
	p.mu.Lock()
	lock, ok := p.dirs[dir]
	if !ok {
		lock = &dirLock{}
		p.dirs[dir] = lock
	}
	lock.refs++
	p.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		p.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(p.dirs, dir)
		}
		p.mu.Unlock()
	}
}
