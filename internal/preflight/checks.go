package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"rollcall/internal/recognition"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
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
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReadableFile verifies that a regular file exists and is readable.
func CheckReadableFile(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckLedger verifies the attendance ledger can be created or appended to.
// A missing file is fine as long as its directory is writable.
func CheckLedger(backend, path string) Result {
	name := "Attendance ledger"
	if backend != "" {
		name = fmt.Sprintf("Attendance ledger (%s)", backend)
	}
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	if _, err := os.Stat(path); err == nil {
		if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	} else if !os.IsNotExist(err) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	dir := filepath.Dir(path)
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: directory not writable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckManifest parses the gallery manifest and verifies each identity
// declares a reference that exists on disk. Identities with missing images
// degrade recognition but do not fail the check unless none are usable.
func CheckManifest(path string) Result {
	const name = "Gallery manifest"

	m, err := recognition.LoadManifest(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	usable := 0
	var missing []string
	for _, entry := range m.Identities {
		if len(entry.Embedding) > 0 {
			usable++
			continue
		}
		found := false
		for _, img := range m.ImagePaths(entry) {
			if _, err := os.Stat(img); err == nil {
				found = true
				break
			}
		}
		if found {
			usable++
		} else {
			missing = append(missing, entry.ID)
		}
	}
	switch {
	case len(m.Identities) == 0:
		return Result{Name: name, Detail: fmt.Sprintf("%s (no identities declared)", path)}
	case usable == 0:
		return Result{Name: name, Detail: fmt.Sprintf("%s (no identity has a usable reference)", path)}
	case len(missing) > 0:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d/%d usable, missing: %s)",
			path, usable, len(m.Identities), strings.Join(missing, ", "))}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d identities)", path, usable)}
	}
}
