package fileutil

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// renameNoReplaceFunc is swapped in tests to simulate EXDEV.
var renameNoReplaceFunc = renameNoReplace

// CrossDeviceError reports that a move had to fall back to copy+delete and
// that fallback failed.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cross-device move %q -> %q: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// MoveNoReplace moves src to dst without ever replacing an existing dst.
// When dst exists the returned error satisfies errors.Is(err, fs.ErrExist)
// and src is left untouched. Moves across filesystems are performed as an
// exclusive verified copy followed by removal of src.
func MoveNoReplace(src, dst string) error {
	err := renameNoReplaceFunc(src, dst)
	if err == nil {
		return nil
	}
	if !isEXDEV(err) {
		return err
	}
	if err := CopyFileVerified(src, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return &CrossDeviceError{Src: src, Dst: dst, Err: err}
	}
	if err := os.Remove(src); err != nil {
		// Keep exactly one copy: undo the destination rather than duplicate.
		_ = os.Remove(dst)
		return &CrossDeviceError{Src: src, Dst: dst, Err: fmt.Errorf("remove source: %w", err)}
	}
	return nil
}

// IsCrossDevice reports whether err came from a failed copy+delete fallback.
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// linkNoReplace hard-links src to dst, which fails if dst exists, and then
// unlinks src.
func linkNoReplace(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		if isEXDEV(err) || errors.Is(err, os.ErrExist) {
			return err
		}
		// Filesystems without hard links (FAT, exFAT, some FUSE mounts) get a
		// checked rename. The check and rename are not atomic; callers that
		// share a destination directory serialize on it.
		if _, statErr := os.Lstat(dst); statErr == nil {
			return &os.LinkError{Op: "rename", Old: src, New: dst, Err: syscall.EEXIST}
		}
		return os.Rename(src, dst)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove source after link: %w", err)
	}
	return nil
}

func isEXDEV(err error) bool {
	if errors.Is(err, syscall.EXDEV) {
		return true
	}
	var le *os.LinkError
	return errors.As(err, &le) && errors.Is(le.Err, syscall.EXDEV)
}
