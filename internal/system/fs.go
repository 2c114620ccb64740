package system

import (
	"fmt"
	"os"

	"github.com/aryonoco/divban/internal/errs"
	"github.com/aryonoco/divban/internal/ids"
)

// DirectoryExists / FileExists are read-only probes, used by
// EnsureDirectoriesTracked and WriteGeneratedFilesTracked to tell
// pre-existing paths from new ones.
func DirectoryExists(path ids.AbsolutePath) bool {
	st, err := os.Stat(path.String())
	return err == nil && st.IsDir()
}

func FileExists(path ids.AbsolutePath) bool {
	st, err := os.Stat(path.String())
	return err == nil && !st.IsDir()
}

func ReadBytes(path ids.AbsolutePath) ([]byte, error) {
	b, err := os.ReadFile(path.String())
	if err != nil {
		return nil, errs.Wrap(errs.System, "FILE_READ_FAILED", fmt.Sprintf("read %s", path), err)
	}
	return b, nil
}

func WriteBytes(path ids.AbsolutePath, content []byte, mode os.FileMode) error {
	if err := os.WriteFile(path.String(), content, mode); err != nil {
		return errs.Wrap(errs.System, "FILE_WRITE_FAILED", fmt.Sprintf("write %s", path), err)
	}
	return nil
}

// WriteBytesAtomic writes content to `<path>.new` and renames it over path,
// so a process killed mid-write leaves either the old file or the new one
// on disk, never a truncated half of the new content.
func WriteBytesAtomic(path ids.AbsolutePath, content []byte, mode os.FileMode) error {
	tmp := path.String() + ".new"
	if err := os.WriteFile(tmp, content, mode); err != nil {
		return errs.Wrap(errs.System, "FILE_WRITE_FAILED", fmt.Sprintf("write %s", tmp), err)
	}
	if err := os.Rename(tmp, path.String()); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.System, "FILE_WRITE_FAILED", fmt.Sprintf("rename %s into place", tmp), err)
	}
	return nil
}

// EnsureDirectory creates path (and parents) if missing, then chowns it to
// uid:gid. It is idempotent: calling it again on an existing directory with
// the same ownership is a no-op error-wise.
func EnsureDirectory(path ids.AbsolutePath, uid, gid int) error {
	if err := os.MkdirAll(path.String(), 0o750); err != nil {
		return errs.Wrap(errs.System, "DIRECTORY_CREATE_FAILED", fmt.Sprintf("mkdir %s", path), err)
	}
	if uid >= 0 && gid >= 0 {
		if err := os.Chown(path.String(), uid, gid); err != nil {
			return errs.Wrap(errs.System, "DIRECTORY_CHOWN_FAILED", fmt.Sprintf("chown %s", path), err)
		}
	}
	return nil
}

// EnsureDirectoriesTracked creates every directory in order, returning the
// subset it actually created (pre-existing directories are not tracked) so
// the orchestrator's rollback can remove only what this step added.
func EnsureDirectoriesTracked(paths []ids.AbsolutePath, uid, gid int) ([]ids.AbsolutePath, error) {
	var created []ids.AbsolutePath
	for _, p := range paths {
		existed := DirectoryExists(p)
		if err := EnsureDirectory(p, uid, gid); err != nil {
			return created, err
		}
		if !existed {
			created = append(created, p)
		}
	}
	return created, nil
}

// RemoveDirectoriesReverse removes directories in reverse of the order they
// were created in, matching the orchestrator's reverse-order rollback
// convention so a later directory's removal never fights a parent still
// containing it.
func RemoveDirectoriesReverse(paths []ids.AbsolutePath) error {
	for i := len(paths) - 1; i >= 0; i-- {
		if err := os.RemoveAll(paths[i].String()); err != nil {
			return errs.Wrap(errs.System, "DIRECTORY_REMOVE_FAILED", fmt.Sprintf("remove %s", paths[i]), err)
		}
	}
	return nil
}
