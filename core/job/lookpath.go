package job

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is the error resulting if a PATH search failed to find the
// command.
var ErrNotFound = errors.New("command not found")

// LookPath searches the colon-separated directories of pathEnv, in order,
// for an entry named file. If file contains a slash it is returned as-is
// and the PATH is not consulted.
//
// NOTE: the search stops at the first directory containing an entry of the
// right name even if that entry is not executable; if PATH=/a:/b and /a/c
// exists but is not executable while /b/c is, /a/c is chosen and the exec
// will fail. This is a known limitation kept as documented behavior.
func LookPath(fsys afero.Fs, pathEnv, file string) (string, error) {
	if strings.Contains(file, "/") {
		return file, nil
	}
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			// Unix shell semantics: path element "" means ".".
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if _, err := fsys.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrNotFound
}
