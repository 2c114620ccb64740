package system

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/aryonoco/divban/internal/errs"
	"github.com/aryonoco/divban/internal/ids"
)

// WrittenFile records one generated file's prior state, so a failed setup
// can restore or remove it during rollback.
type WrittenFile struct {
	Path       ids.AbsolutePath
	BackupPath ids.AbsolutePath // empty if the file did not previously exist
	Existed    bool
}

// WriteGeneratedFilesTracked writes every (path, content) pair, first
// renaming any pre-existing file aside to a `.bak.<nonce>` sibling so a
// rollback can restore it verbatim; the nonce (google/uuid) keeps repeated
// setup attempts from colliding on the same backup name. Each write goes
// through the `.new`-then-rename pattern so the target path only ever
// holds complete content.
func WriteGeneratedFilesTracked(files map[ids.AbsolutePath][]byte) ([]WrittenFile, error) {
	var written []WrittenFile
	for path, content := range files {
		wf := WrittenFile{Path: path}
		if FileExists(path) {
			backupPath := ids.MustAbsolutePath(fmt.Sprintf("%s.bak.%s", path, uuid.NewString()))
			if err := os.Rename(path.String(), backupPath.String()); err != nil {
				return written, errs.Wrap(errs.System, "FILE_WRITE_FAILED", fmt.Sprintf("back up existing %s", path), err)
			}
			wf.Existed = true
			wf.BackupPath = backupPath
		}
		if err := WriteBytesAtomic(path, content, 0o640); err != nil {
			return append(written, wf), err
		}
		written = append(written, wf)
	}
	return written, nil
}

// CleanupFileBackups removes the `.bak.<nonce>` siblings left by a
// successful setup, once rollback is no longer possible.
func CleanupFileBackups(written []WrittenFile) {
	for _, wf := range written {
		if wf.Existed {
			_ = os.Remove(wf.BackupPath.String())
		}
	}
}

// RollbackFileWrites undoes WriteGeneratedFilesTracked: a file that existed
// before is restored from its backup, a file that did not exist is removed.
func RollbackFileWrites(written []WrittenFile) error {
	for i := len(written) - 1; i >= 0; i-- {
		wf := written[i]
		if wf.Existed {
			if err := os.Rename(wf.BackupPath.String(), wf.Path.String()); err != nil {
				return errs.Wrap(errs.System, "FILE_WRITE_FAILED", fmt.Sprintf("restore %s from backup", wf.Path), err)
			}
			continue
		}
		if err := os.Remove(wf.Path.String()); err != nil && !os.IsNotExist(err) {
			return errs.Wrap(errs.System, "FILE_WRITE_FAILED", fmt.Sprintf("remove %s", wf.Path), err)
		}
	}
	return nil
}
