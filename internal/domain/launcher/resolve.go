package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
)

// errStopWalk aborts a directory walk once a match is found.
var errStopWalk = errors.New("stop walk")

// executableTypes are the content types accepted as launchable binaries.
var executableTypes = []string{
	"application/x-executable",
	"application/x-sharedlib",
	"application/x-mach-binary",
	"application/vnd.microsoft.portable-executable",
	"application/x-msdownload",
	"text/x-shellscript",
}

// Resolver locates executables for native launches. Absolute catalog paths
// are checked directly; bare names are searched in the configured app
// directories, then against PATH. Successful lookups are cached.
type Resolver struct {
	appDirs []string
	logger  *logging.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewResolver creates a resolver over the given app directories
func NewResolver(appDirs []string, logger *logging.Logger) *Resolver {
	return &Resolver{
		appDirs: appDirs,
		logger:  logger.Component("resolver"),
		cache:   make(map[string]string),
	}
}

// Resolve returns the executable behind a catalog path entry.
func (r *Resolver) Resolve(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", errors.ErrNotFound)
	}

	if filepath.IsAbs(path) {
		if isExecutable(path) {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s is not an executable", errors.ErrNotFound, path)
	}

	if hit := r.cached(path); hit != "" {
		return hit, nil
	}

	if found, err := r.searchAppDirs(ctx, path); err != nil {
		return "", err
	} else if found != "" {
		r.remember(path, found)
		return found, nil
	}

	if found, err := exec.LookPath(path); err == nil {
		r.remember(path, found)
		return found, nil
	}

	return "", fmt.Errorf("%w: executable %q", errors.ErrNotFound, path)
}

// searchAppDirs walks the configured directories looking for an executable
// whose base name matches. Returns empty when nothing matched.
func (r *Resolver) searchAppDirs(ctx context.Context, name string) (string, error) {
	conf := fastwalk.Config{Follow: false}
	for _, dir := range r.appDirs {
		if dir == "" {
			continue
		}

		var found string
		err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil || d.IsDir() {
				return nil
			}
			if !matchesExecName(filepath.Base(p), name) || !isExecutable(p) {
				return nil
			}
			found = p
			return errStopWalk
		})

		switch {
		case err == nil || errors.Is(err, errStopWalk):
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return "", err
		default:
			// Unreadable app dir; keep trying the others
			r.logger.Warn("app dir walk failed", zap.String("dir", dir), zap.Error(err))
		}
		if found != "" {
			r.logger.Debug("resolved executable",
				zap.String("name", name),
				zap.String("path", found),
			)
			return found, nil
		}
	}
	return "", nil
}

func (r *Resolver) cached(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache[name]
}

func (r *Resolver) remember(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[name] = path
}

// matchesExecName compares a file base name against the wanted name,
// ignoring the extension so "calc" finds "calc.exe".
func matchesExecName(base, name string) bool {
	if strings.EqualFold(base, name) {
		return true
	}
	return strings.EqualFold(strings.TrimSuffix(base, filepath.Ext(base)), name)
}

// isExecutable reports whether path is a runnable program: a regular file
// with the execute bit (except on windows) and an executable content type.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return false
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for _, t := range executableTypes {
		if mtype.Is(t) {
			return true
		}
	}
	return false
}
