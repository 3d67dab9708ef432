package outputdir

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Policy describes the ownership and permission fix-up applied to the tree.
type Policy struct {
	Enabled bool

	// UID and GID are applied with chown. Negative values leave that id alone.
	UID int
	GID int

	// DirMode and FileMode are applied with chmod when non-zero.
	DirMode  os.FileMode
	FileMode os.FileMode
}

// FixupError records one failed chown/chmod.
type FixupError struct {
	Op   string
	Path string
	Err  error
}

func (e *FixupError) Error() string {
	return fmt.Sprintf("outputdir: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FixupError) Unwrap() error { return e.Err }

// Preparer creates the output directory and applies the policy.
type Preparer struct {
	Policy Policy
	Logger *slog.Logger

	// injectable for tests
	chown func(path string, uid, gid int) error
	chmod func(path string, mode os.FileMode) error
}

// Prepare ensures dir exists and applies the policy. Only a failure to create
// dir is returned; fix-up failures are logged and included in the returned
// slice for callers that want to count them.
func (p *Preparer) Prepare(dir string) ([]*FixupError, error) {
	if dir == "" {
		return nil, fmt.Errorf("outputdir: directory is required")
	}
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("outputdir: %q is not an absolute path", dir)
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("outputdir: create %s: %w", dir, err)
	}
	if !p.Policy.Enabled {
		return nil, nil
	}

	log := p.logger()
	var failures []*FixupError
	record := func(op, path string, err error) {
		fe := &FixupError{Op: op, Path: path, Err: err}
		failures = append(failures, fe)
		log.Warn("outputdir: permission fix-up failed", "op", op, "path", path, "err", err)
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			record("walk", path, err)
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if p.Policy.UID >= 0 || p.Policy.GID >= 0 {
			if err := p.doChown(path, p.Policy.UID, p.Policy.GID); err != nil {
				record("chown", path, err)
			}
		}
		mode := p.Policy.FileMode
		if d.IsDir() {
			mode = p.Policy.DirMode
		}
		if mode != 0 {
			if err := p.doChmod(path, mode); err != nil {
				record("chmod", path, err)
			}
		}
		return nil
	})
	if walkErr != nil {
		record("walk", dir, walkErr)
	}

	log.Info("outputdir: permission fix-up done",
		"path", dir,
		"uid", p.Policy.UID,
		"gid", p.Policy.GID,
		"failures", len(failures),
	)
	return failures, nil
}

func (p *Preparer) doChown(path string, uid, gid int) error {
	if p.chown != nil {
		return p.chown(path, uid, gid)
	}
	return os.Lchown(path, uid, gid)
}

func (p *Preparer) doChmod(path string, mode os.FileMode) error {
	if p.chmod != nil {
		return p.chmod(path, mode)
	}
	return os.Chmod(path, mode)
}

func (p *Preparer) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
