package lockfile

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// EnvHub is the environment variable consulted first when locating the
// hub's lockfile, per spec §6. A value beginning with StdLockURLPrefix
// overrides discovery entirely; any other non-empty value is the caller's
// job to log and ignore (this package doesn't log).
const EnvHub = "SAMP_HUB"

// StdLockURLPrefix is the SAMP_HUB prefix that names an explicit lockfile
// URL rather than the default filesystem location.
const StdLockURLPrefix = "std-lockurl:"

// DefaultFilename is the lockfile's name inside the home directory.
const DefaultFilename = ".samp"

// Locate resolves the lockfile path using the order from spec §4.2:
// SAMP_HUB's std-lockurl: remainder (parsed as a URL, which must be a
// file: URL or a bare path; any other scheme is an error), then the
// override path if non-empty, then $HOME/.samp.
func Locate(override string) (string, error) {
	if hub := os.Getenv(EnvHub); strings.HasPrefix(hub, StdLockURLPrefix) {
		raw := strings.TrimPrefix(hub, StdLockURLPrefix)
		return lockURLToPath(raw)
	}
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, DefaultFilename), nil
}

func lockURLToPath(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing SAMP_HUB lock URL %q: %w", raw, err)
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return "", fmt.Errorf("SAMP_HUB lock URL %q is not a file: URL", raw)
	}
	if u.Path != "" {
		return u.Path, nil
	}
	return u.Opaque, nil
}

// WriteAtomic writes info to path as an atomically-visible, owner-only
// readable/writable file: it writes to a sibling "<path>.tmp" file with
// 0600 permissions, then renames it into place. The temp file is removed on
// any failure before rename.
func WriteAtomic(path string, info *Info) error {
	dir := filepath.Dir(path)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary lockfile in %s: %w", dir, err)
	}
	if err := Write(f, info); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temporary lockfile: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temporary lockfile: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmp, 0600); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("setting owner-only permissions: %w", err)
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temporary lockfile into place: %w", err)
	}
	return nil
}

// Remove deletes the lockfile at path. A missing file is not an error,
// matching shutdown's best-effort cleanup semantics.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
