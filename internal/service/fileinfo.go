package service

import (
	"os"

	"github.com/aryonoco/divban/internal/ids"
)

// fileSize stats path for BackupResult.SizeBytes; a stat failure is
// non-fatal here since the archive itself was already written
// successfully — size reporting is best-effort.
func fileSize(path ids.AbsolutePath) (int64, error) {
	st, err := os.Stat(path.String())
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}
