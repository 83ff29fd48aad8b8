package arena

import (
	"os"
	"runtime"
	"sync"

	"github.com/spf13/afero"
)

var (
	// disk-backed directory picked once per process for OS filesystems
	diskPreferredDir string
	dirDiscoveryOnce sync.Once
)

// TempDir returns the directory the arena root is created under.
// A usable dir is returned as is. Otherwise OS filesystems get a directory
// that is likely disk-backed (runs of a large sort should not land on tmpfs)
// and any other filesystem gets os.TempDir().
func TempDir(fs afero.Fs, dir string) string {
	if dir != "" && isDirectoryUsable(fs, dir) {
		return dir
	}
	if _, ok := fs.(*afero.OsFs); !ok {
		return os.TempDir()
	}
	dirDiscoveryOnce.Do(func() {
		diskPreferredDir = findBestDirectory(fs)
	})
	return diskPreferredDir
}

// findBestDirectory returns the first usable candidate, falling back to os.TempDir()
func findBestDirectory(fs afero.Fs) string {
	for _, candidate := range diskPreferredCandidates() {
		if isDirectoryUsable(fs, candidate) {
			return candidate
		}
	}
	return os.TempDir()
}

// diskPreferredCandidates lists directories that are traditionally disk-backed,
// unlike /tmp which is often tmpfs.
func diskPreferredCandidates() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/var/tmp", "/private/var/tmp"}
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris":
		return []string{"/var/tmp"}
	default:
		return nil
	}
}

// isDirectoryUsable reports whether dir is an existing directory or does not exist yet.
// Writability is left to the first create.
func isDirectoryUsable(fs afero.Fs, dir string) bool {
	stat, err := fs.Stat(dir)
	if err != nil {
		return os.IsNotExist(err)
	}
	return stat.IsDir()
}
