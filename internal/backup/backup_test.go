package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aryonoco/divban/internal/archive"
	"github.com/aryonoco/divban/internal/ids"
)

func TestName(t *testing.T) {
	at := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	got := Name("actual", false, archive.Gzip, at)
	want := "actual-backup-2026-07-30T12-00-00.tar.gz"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := Name("immich", true, archive.Zstd, at); got != "immich-db-backup-2026-07-30T12-00-00.tar.zst" {
		t.Errorf("db dump name: got %q", got)
	}
	if got := Name("actual", false, archive.Zstd, at); filepath.Ext(got) != ".zst" {
		t.Errorf("zstd name should end in .zst, got %q", got)
	}
}

func TestCreateAndListAndRestoreFileBackedService(t *testing.T) {
	dataDir := t.TempDir()
	backupsDir := t.TempDir()
	restoreDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dataDir, "settings.json"), []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("seed data: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "cache"), 0o755); err != nil {
		t.Fatalf("seed cache dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "cache", "skip.tmp"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("seed excluded file: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dataDir, "backups"), 0o755); err != nil {
		t.Fatalf("seed backups dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "backups", "old.tar.gz"), []byte("previous archive"), 0o644); err != nil {
		t.Fatalf("seed old backup: %v", err)
	}

	ctx := context.Background()
	fc := &FileCollector{
		Root:     ids.MustAbsolutePath(dataDir),
		Excludes: []string{"cache/*"},
		SkipDirs: []string{"backups"},
	}

	path, err := Create(ctx, CreateOptions{
		Service:         "freshrss",
		BackupsDir:      ids.MustAbsolutePath(backupsDir),
		Compression:     archive.Gzip,
		SchemaVersion:   "1.0.0",
		ProducerVersion: "1.0.0",
		Files:           fc,
		Now:             time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	infos, err := List(ids.MustAbsolutePath(backupsDir), "freshrss")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Path != path {
		t.Fatalf("List returned %+v, want single entry for %s", infos, path)
	}

	err = Restore(ctx, RestoreOptions{
		Service:        "freshrss",
		Path:           path,
		TargetDir:      ids.MustAbsolutePath(restoreDir),
		CurrentVersion: "1.0.0",
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restored, err := os.ReadFile(filepath.Join(restoreDir, "settings.json"))
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if string(restored) != `{"a":1}` {
		t.Errorf("got %q", restored)
	}
	if _, err := os.Stat(filepath.Join(restoreDir, "cache", "skip.tmp")); !os.IsNotExist(err) {
		t.Errorf("excluded file should not have been backed up")
	}
	if _, err := os.Stat(filepath.Join(restoreDir, "backups", "old.tar.gz")); !os.IsNotExist(err) {
		t.Errorf("pruned backups directory should not have been backed up")
	}
}

func TestCreateAndRestoreDatabaseBackedService(t *testing.T) {
	backupsDir := t.TempDir()
	ctx := context.Background()

	path, err := Create(ctx, CreateOptions{
		Service:       "actual",
		BackupsDir:    ids.MustAbsolutePath(backupsDir),
		Compression:   archive.Zstd,
		SchemaVersion: "1.0.0",
		Now:           time.Date(2026, 7, 30, 1, 0, 0, 0, time.UTC),
		Dump: func(ctx context.Context) ([]byte, error) {
			return []byte("-- dump --"), nil
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var restored []byte
	err = Restore(ctx, RestoreOptions{
		Service: "actual",
		Path:    path,
		Restore: func(ctx context.Context, dump []byte) error {
			restored = dump
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if string(restored) != "-- dump --" {
		t.Errorf("got %q", restored)
	}
}

func TestRestoreRejectsServiceMismatch(t *testing.T) {
	backupsDir := t.TempDir()
	ctx := context.Background()

	path, err := Create(ctx, CreateOptions{
		Service:       "actual",
		BackupsDir:    ids.MustAbsolutePath(backupsDir),
		Compression:   archive.Gzip,
		SchemaVersion: "1.0.0",
		Now:           time.Now(),
		Dump:          func(ctx context.Context) ([]byte, error) { return []byte("x"), nil },
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = Restore(ctx, RestoreOptions{
		Service: "freshrss",
		Path:    path,
		Restore: func(ctx context.Context, dump []byte) error { return nil },
	})
	if err == nil {
		t.Fatalf("expected service mismatch to be rejected")
	}
}

func TestRestoreRejectsUnsupportedSchema(t *testing.T) {
	backupsDir := t.TempDir()
	ctx := context.Background()

	path, err := Create(ctx, CreateOptions{
		Service:       "actual",
		BackupsDir:    ids.MustAbsolutePath(backupsDir),
		Compression:   archive.Gzip,
		SchemaVersion: "99.0.0",
		Now:           time.Now(),
		Dump:          func(ctx context.Context) ([]byte, error) { return []byte("x"), nil },
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = Restore(ctx, RestoreOptions{
		Service: "actual",
		Path:    path,
		Restore: func(ctx context.Context, dump []byte) error { return nil },
	})
	if err == nil {
		t.Fatalf("expected unsupported schema to be rejected")
	}
}

func TestRestoreAcceptsLegacyBackupWithoutMetadata(t *testing.T) {
	// A backup made before the embedded-metadata convention: a plain
	// tar.gz whose first entry is already the payload.
	dir := t.TempDir()
	path := filepath.Join(dir, "actual-backup-2020-01-01T00-00-00.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create legacy archive: %v", err)
	}
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	content := []byte("-- legacy dump --")
	if err := tw.WriteHeader(&tar.Header{Name: "database.sql", Mode: 0o600, Size: int64(len(content))}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatalf("write body: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	var restored []byte
	err = Restore(context.Background(), RestoreOptions{
		Service: "actual",
		Path:    ids.MustAbsolutePath(path),
		Restore: func(ctx context.Context, dump []byte) error {
			restored = dump
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if string(restored) != "-- legacy dump --" {
		t.Errorf("got %q", restored)
	}
}

func TestRestoreMissingBackupFile(t *testing.T) {
	err := Restore(context.Background(), RestoreOptions{
		Service: "actual",
		Path:    ids.MustAbsolutePath("/nonexistent/path.tar.gz"),
	})
	if err == nil {
		t.Fatalf("expected missing backup file to be rejected")
	}
}

func TestIsNewerProducer(t *testing.T) {
	if isNewerProducer("1.0.0", "1.1.0") {
		t.Errorf("1.0.0 should not be newer than 1.1.0")
	}
	if !isNewerProducer("2.0.0", "1.1.0") {
		t.Errorf("2.0.0 should be newer than 1.1.0")
	}
	if isNewerProducer("", "1.0.0") {
		t.Errorf("empty producer version should not be treated as newer")
	}
}
