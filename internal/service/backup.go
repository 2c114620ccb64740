package service

import (
	"context"
	"time"

	"github.com/aryonoco/divban/internal/archive"
	"github.com/aryonoco/divban/internal/backup"
	"github.com/aryonoco/divban/internal/ids"
)

// ProducerVersion is divban's own build version, stamped into every backup
// archive's metadata and compared on restore to warn about a backup from a
// newer build.
var ProducerVersion = "0.1.0"

// CurrentBackupSchemaVersion is the schema version this build stamps onto
// archives it creates; SupportedSchemaVersions (internal/backup)
// lists every version this build can still restore.
const CurrentBackupSchemaVersion = "1.0.0"

// BackupPlan configures BackupService for either a file-backed service
// (Files set) or a database-backed one (Dump/Restore set); exactly one
// pair should be populated by the concrete service.
type BackupPlan struct {
	ServiceName ids.ServiceName
	BackupsDir  ids.AbsolutePath
	Compression archive.Compression

	Files     *backup.FileCollector
	TargetDir ids.AbsolutePath // used when Files is set, for restore

	Dump    backup.DumpFunc
	Restore backup.RestoreFunc // used when Dump is set
}

// RunBackup creates one archive per BackupPlan, honoring dry-run by only
// logging what would be written.
func RunBackup(ctx context.Context, svcCtx Context, plan BackupPlan) (BackupResult, error) {
	if svcCtx.Options.DryRun {
		svcCtx.Logger.Info(ctx, "dry-run: would create backup", "service", plan.ServiceName, "dir", plan.BackupsDir.String())
		return BackupResult{}, nil
	}

	path, err := backup.Create(ctx, backup.CreateOptions{
		Service:         string(plan.ServiceName),
		BackupsDir:      plan.BackupsDir,
		Compression:     plan.Compression,
		SchemaVersion:   CurrentBackupSchemaVersion,
		ProducerVersion: ProducerVersion,
		Files:           plan.Files,
		Dump:            plan.Dump,
		Now:             nowUTC(),
		Logger:          svcCtx.Logger,
	})
	if err != nil {
		return BackupResult{}, err
	}

	size, _ := fileSize(path)
	return BackupResult{Path: path, SizeBytes: size}, nil
}

// RunRestore extracts path into the service's data directory (file-backed)
// or pipes its dump into Restore (database-backed), honoring dry-run.
func RunRestore(ctx context.Context, svcCtx Context, plan BackupPlan, path ids.AbsolutePath) error {
	if svcCtx.Options.DryRun {
		svcCtx.Logger.Info(ctx, "dry-run: would restore backup", "service", plan.ServiceName, "path", path.String())
		return nil
	}
	return backup.Restore(ctx, backup.RestoreOptions{
		Service:        string(plan.ServiceName),
		Path:           path,
		TargetDir:      plan.TargetDir,
		Restore:        plan.Restore,
		Logger:         svcCtx.Logger,
		CurrentVersion: ProducerVersion,
	})
}

// ListBackups returns every backup for service in dir, newest first.
func ListBackups(dir ids.AbsolutePath, service string) ([]backup.Info, error) {
	return backup.List(dir, service)
}

func nowUTC() time.Time { return time.Now().UTC() }
