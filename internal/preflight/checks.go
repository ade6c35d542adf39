package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CheckReadableDirectory verifies that the directory exists and can be
// listed. A missing input directory is reported but does not block a run:
// it yields an empty batch.
func CheckReadableDirectory(name, path string) Result {
	result := checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
	if !result.Passed {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			result.Advisory = true
		}
	}
	return result
}

// CheckWritableTarget verifies that path is a writable directory, or that its
// nearest existing ancestor is, so the directory can be created on demand.
func CheckWritableTarget(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	existing := path
	for {
		info, err := os.Stat(existing)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, existing)}
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		existing = parent
	}
	if err := unix.Access(existing, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions on %s: %v)", path, existing, err)}
	}
	if existing != path {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", path)}
}

// CheckSameFilesystem reports whether input and output share a device. It
// always passes; a cross-device layout only means moves fall back to a
// verified copy followed by removal of the source.
func CheckSameFilesystem(name, input, output string) Result {
	inDev, inErr := deviceOf(input)
	outDev, outErr := deviceOf(nearestExisting(output))
	if inErr != nil || outErr != nil {
		return Result{Name: name, Passed: true, Advisory: true, Detail: "unknown (paths not accessible)"}
	}
	if inDev != outDev {
		return Result{Name: name, Passed: true, Advisory: true, Detail: "different filesystems; files will be copied and verified before removal"}
	}
	return Result{Name: name, Passed: true, Advisory: true, Detail: "same filesystem; files are renamed in place"}
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

func deviceOf(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Dev), nil
}

func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

func parentDir(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Dir(path)
}
