// File: internal/patch/resolver.go
package patch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// conventionalRoots are checked for a basename match before falling back to a
// full project walk.
var conventionalRoots = []string{"src", "tests", "test", "app", "lib"}

// Resolver maps oracle-supplied target paths onto real files under the project
// root while enforcing the protected-zone exclusion.
type Resolver struct {
	projectRoot   string
	protectedDirs []string
	logger        *zap.Logger
}

// NewResolver creates a resolver rooted at projectRoot. protectedDirs are
// project-relative directory names (e.g. "vendor") that are never read for
// context and never writable.
func NewResolver(projectRoot string, protectedDirs []string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(protectedDirs) == 0 {
		protectedDirs = []string{"vendor"}
	}
	return &Resolver{
		projectRoot:   projectRoot,
		protectedDirs: protectedDirs,
		logger:        logger.Named("resolver"),
	}
}

// IsProtected reports whether path falls under a protected directory. The
// check is performed against the path relative to the project root, so both
// absolute and relative spellings are caught.
func (r *Resolver) IsProtected(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		if candidate, err := filepath.Rel(r.projectRoot, path); err == nil {
			rel = candidate
		}
	}
	rel = filepath.ToSlash(rel)
	for _, dir := range r.protectedDirs {
		prefix := strings.TrimSuffix(filepath.ToSlash(dir), "/") + "/"
		if rel == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(rel, prefix) {
			return true
		}
	}
	return false
}

// Resolve maps target onto an existing file. Candidates inside the protected
// zone are rejected even when they exist.
func (r *Resolver) Resolve(target string) (string, error) {
	normalized := normalizeTarget(target)
	if normalized == "" {
		return "", &FileResolutionError{Target: target, Reason: fmt.Errorf("empty target path")}
	}

	// Direct candidates, most specific first.
	candidates := []string{
		filepath.Join(r.projectRoot, normalized),
		target,
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, normalized))
	}

	sawProtected := false
	for _, candidate := range candidates {
		if !isRegularFile(candidate) {
			continue
		}
		if r.IsProtected(candidate) {
			sawProtected = true
			continue
		}
		return candidate, nil
	}

	// Basename search under conventional source and test roots. A configured
	// protected dir may overlap these roots, so the check applies here too.
	base := filepath.Base(normalized)
	for _, root := range conventionalRoots {
		candidate := filepath.Join(r.projectRoot, root, base)
		if !isRegularFile(candidate) {
			continue
		}
		if r.IsProtected(candidate) {
			sawProtected = true
			continue
		}
		return candidate, nil
	}

	// Last resort: walk the project, skipping the protected zone.
	if found := r.searchByBasename(base); found != "" {
		r.logger.Info("Resolved target via project walk.",
			zap.String("target", target), zap.String("resolved", found))
		return found, nil
	}

	if sawProtected {
		return "", &FileResolutionError{Target: target, Reason: ErrProtectedPath}
	}
	return "", &FileResolutionError{Target: target, Reason: os.ErrNotExist}
}

// searchByBasename walks the project tree for a unique file with the given
// basename. Multiple matches are ambiguous and resolve to nothing.
func (r *Resolver) searchByBasename(base string) string {
	var matches []string
	_ = filepath.WalkDir(r.projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if r.IsProtected(path) || name == ".git" || name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == base {
			matches = append(matches, path)
		}
		return nil
	})

	if len(matches) == 1 {
		return matches[0]
	}
	if len(matches) > 1 {
		r.logger.Warn("Basename search found multiple candidates, refusing to guess.",
			zap.String("basename", base), zap.Strings("matches", matches))
	}
	return ""
}

// ReadContext reads a file for prompt context, honoring the protected zone.
func (r *Resolver) ReadContext(path string) ([]byte, error) {
	if r.IsProtected(path) {
		return nil, &FileResolutionError{Target: path, Reason: ErrProtectedPath}
	}
	return os.ReadFile(path)
}

func normalizeTarget(target string) string {
	normalized := strings.TrimSpace(target)
	normalized = filepath.ToSlash(normalized)
	normalized = strings.TrimPrefix(normalized, "./")
	normalized = strings.TrimPrefix(normalized, "/")
	return filepath.FromSlash(normalized)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
