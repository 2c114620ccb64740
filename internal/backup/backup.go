// Package backup implements the naming, listing, creation and restoration
// of service backups, layering the tar/compression codec in
// internal/archive over either a directory scan or a database dump/restore
// command pair.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aryonoco/divban/internal/archive"
	"github.com/aryonoco/divban/internal/errs"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/logging"
)

// SupportedSchemaVersions lists every backup metadata schema version this
// build can restore. A version outside this set fails restore with
// RESTORE_FAILED rather than guessing at compatibility.
var SupportedSchemaVersions = []string{"1.0.0"}

// Info describes one backup file found on disk, as returned by List.
type Info struct {
	Path        ids.AbsolutePath
	Name        string
	Service     string
	Compression archive.Compression
	Size        int64
	ModTime     time.Time
}

// Name builds the canonical backup file name, with the ISO timestamp's
// colons and dots replaced by hyphens so the name stays a single
// filesystem-safe token. File-backed snapshots are
// `<service>-backup-<ts>.tar.<ext>`; database dumps carry a db marker,
// `<service>-db-backup-<ts>.tar.<ext>`, so a directory listing shows at a
// glance which archives hold SQL rather than files.
func Name(service string, dbDump bool, compression archive.Compression, at time.Time) string {
	ts := at.UTC().Format("2006-01-02T15-04-05")
	ext := "gz"
	if compression == archive.Zstd {
		ext = "zst"
	}
	kind := "backup"
	if dbDump {
		kind = "db-backup"
	}
	return fmt.Sprintf("%s-%s-%s.tar.%s", service, kind, ts, ext)
}

// List returns every backup for service in backupsDir, most recent first,
// matching both the file-snapshot and db-dump naming variants.
func List(backupsDir ids.AbsolutePath, service string) ([]Info, error) {
	pattern := filepath.Join(backupsDir.String(), service+"-*backup-*.tar.*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errs.Wrap(errs.Backup, "BACKUP_FAILED", "glob backups directory", err)
	}

	infos := make([]Info, 0, len(matches))
	for _, m := range matches {
		st, err := os.Stat(m)
		if err != nil || st.IsDir() {
			continue
		}
		infos = append(infos, Info{
			Path:        ids.MustAbsolutePath(m),
			Name:        filepath.Base(m),
			Service:     service,
			Compression: archive.DetectCompression(m),
			Size:        st.Size(),
			ModTime:     st.ModTime(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ModTime.After(infos[j].ModTime) })
	return infos, nil
}

// DumpEntryName is the archive entry a database-backed service's dump is
// stored under, the name Restore pipes back into the restore command.
const DumpEntryName = "database.sql"

// FileCollector gathers a service's data-directory payload with bounded
// concurrency, excluding anything matching the given glob patterns.
// SkipDirs lists root-relative directories pruned from the walk entirely;
// the backups directory itself always belongs here, or each new archive
// would swallow every previous one.
type FileCollector struct {
	Root        ids.AbsolutePath
	Excludes    []string
	SkipDirs    []string
	Concurrency int
}

// Collect walks Root and reads every non-excluded regular file, fanning out
// file reads across a bounded worker pool built on golang.org/x/sync/errgroup
// for cooperative cancellation on first error.
func (fc FileCollector) Collect(ctx context.Context) ([]archive.Entry, error) {
	var paths []string
	err := filepath.WalkDir(fc.Root.String(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(fc.Root.String(), path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			for _, skip := range fc.SkipDirs {
				if rel == skip {
					return filepath.SkipDir
				}
			}
			return nil
		}
		for _, pattern := range fc.Excludes {
			if ok, _ := filepath.Match(pattern, rel); ok {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.Backup, "BACKUP_FAILED", "walk data directory", err)
	}

	concurrency := fc.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	entries := make([]archive.Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			content, rerr := os.ReadFile(p)
			if rerr != nil {
				return errs.Wrap(errs.Backup, "BACKUP_FAILED", fmt.Sprintf("read %s", p), rerr)
			}
			st, serr := os.Stat(p)
			mode := os.FileMode(0o644)
			if serr == nil {
				mode = st.Mode()
			}
			rel, _ := filepath.Rel(fc.Root.String(), p)
			entries[i] = archive.Entry{Name: filepath.ToSlash(rel), Content: content, Mode: mode}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DumpFunc produces a database dump's bytes (e.g. pg_dumpall piped through
// a process runner). RestoreFunc consumes a dump's bytes the same way
// (e.g. piped into psql).
type DumpFunc func(ctx context.Context) ([]byte, error)
type RestoreFunc func(ctx context.Context, dump []byte) error

// CreateOptions configures Create for either a file-backed or a
// database-backed service; exactly one of Files or Dump should be set.
type CreateOptions struct {
	Service         string
	BackupsDir      ids.AbsolutePath
	Compression     archive.Compression
	SchemaVersion   string
	ProducerVersion string
	Files           *FileCollector
	Dump            DumpFunc
	Now             time.Time
	Logger          *logging.Logger
}

// Create assembles and writes one backup archive, returning its path.
func Create(ctx context.Context, opts CreateOptions) (ids.AbsolutePath, error) {
	var entries []archive.Entry
	if opts.Files != nil {
		collected, err := opts.Files.Collect(ctx)
		if err != nil {
			return "", err
		}
		entries = collected
	} else if opts.Dump != nil {
		content, err := opts.Dump(ctx)
		if err != nil {
			return "", errs.Wrap(errs.Backup, "BACKUP_FAILED", "run database dump", err)
		}
		entries = []archive.Entry{{Name: DumpEntryName, Content: content, Mode: 0o600}}
	} else {
		return "", errs.New(errs.Backup, "BACKUP_FAILED", "neither Files nor Dump was set")
	}

	if err := ensureDir(opts.BackupsDir); err != nil {
		return "", err
	}

	name := Name(opts.Service, opts.Dump != nil, opts.Compression, opts.Now)
	path := opts.BackupsDir.Join(name)

	f, err := os.OpenFile(path.String(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", errs.Wrap(errs.Backup, "BACKUP_FAILED", "open backup file for writing", err)
	}
	defer f.Close()

	files := make([]string, len(entries))
	for i, e := range entries {
		files[i] = e.Name
	}
	meta := archive.Metadata{
		SchemaVersion:   opts.SchemaVersion,
		Producer:        "divban",
		ProducerVersion: opts.ProducerVersion,
		Service:         opts.Service,
		Timestamp:       opts.Now,
		Files:           files,
	}
	if err := archive.Create(f, opts.Compression, meta, entries); err != nil {
		_ = os.Remove(path.String())
		return "", err
	}

	if opts.Logger != nil {
		opts.Logger.Success(ctx, "backup written", "path", path.String(), "entries", len(entries))
	}
	return path, nil
}

func ensureDir(dir ids.AbsolutePath) error {
	if err := os.MkdirAll(dir.String(), 0o700); err != nil {
		return errs.Wrap(errs.Backup, "BACKUP_FAILED", "create backups directory", err)
	}
	return nil
}

// RestoreOptions configures Restore the mirror of CreateOptions: exactly
// one of TargetDir or Restore should be set.
type RestoreOptions struct {
	Service        string
	Path           ids.AbsolutePath
	TargetDir      ids.AbsolutePath
	Restore        RestoreFunc
	Logger         *logging.Logger
	CurrentVersion string
}

// Restore validates a backup's metadata (service match, supported schema
// version, producer-version-newer warning) and then extracts it, rejecting
// any entry that would traverse outside the restore target.
func Restore(ctx context.Context, opts RestoreOptions) error {
	st, err := os.Stat(opts.Path.String())
	if err != nil {
		return errs.Wrap(errs.Backup, "BACKUP_NOT_FOUND", fmt.Sprintf("backup %s not found", opts.Path), err)
	}
	if st.IsDir() {
		return errs.New(errs.Backup, "BACKUP_NOT_FOUND", fmt.Sprintf("%s is a directory, not a backup file", opts.Path))
	}

	compression := archive.DetectCompression(opts.Path.String())

	raw, err := os.ReadFile(opts.Path.String())
	if err != nil {
		return errs.Wrap(errs.Backup, "RESTORE_FAILED", "read backup file", err)
	}

	meta, err := archive.ReadMetadata(bytes.NewReader(raw), compression)
	switch {
	case errors.Is(err, archive.ErrNoMetadata):
		// Legacy backup predating embedded metadata: nothing to check the
		// service or schema version against, restore the payload as-is.
		if opts.Logger != nil {
			opts.Logger.Warn(ctx, "backup has no embedded metadata, skipping compatibility checks", "path", opts.Path.String())
		}
	case err != nil:
		return err
	default:
		if meta.Service != opts.Service {
			return errs.New(errs.Backup, "RESTORE_FAILED", fmt.Sprintf("backup is for service %q, not %q", meta.Service, opts.Service))
		}
		if !supportedSchema(meta.SchemaVersion) {
			return errs.New(errs.Backup, "RESTORE_FAILED", fmt.Sprintf("backup schema version %q is not supported by this build", meta.SchemaVersion))
		}
		if opts.Logger != nil && isNewerProducer(meta.ProducerVersion, opts.CurrentVersion) {
			opts.Logger.Warn(ctx, "backup was produced by a newer divban version", "producerVersion", meta.ProducerVersion)
		}
	}

	if opts.Restore != nil {
		var dump []byte
		err := archive.Extract(bytes.NewReader(raw), compression, func(name string, _ os.FileMode, content io.Reader) error {
			if name != DumpEntryName {
				return nil
			}
			b, rerr := io.ReadAll(content)
			if rerr != nil {
				return rerr
			}
			dump = b
			return nil
		})
		if err != nil {
			return err
		}
		if dump == nil {
			return errs.New(errs.Backup, "RESTORE_FAILED", "backup does not contain a database dump")
		}
		return opts.Restore(ctx, dump)
	}

	return archive.Extract(bytes.NewReader(raw), compression, func(name string, mode os.FileMode, content io.Reader) error {
		dest := filepath.Join(opts.TargetDir.String(), filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
			return errs.Wrap(errs.System, "FILE_WRITE_FAILED", fmt.Sprintf("create parent directory for %s", dest), err)
		}
		b, err := io.ReadAll(content)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, b, mode); err != nil {
			return errs.Wrap(errs.System, "FILE_WRITE_FAILED", fmt.Sprintf("write %s", dest), err)
		}
		return nil
	})
}

func supportedSchema(v string) bool {
	for _, s := range SupportedSchemaVersions {
		if s == v {
			return true
		}
	}
	return false
}

// isNewerProducer reports whether producerVersion outranks currentVersion,
// falling back to false (no warning) whenever either string fails to parse
// as a semantic version rather than risk a false positive.
func isNewerProducer(producerVersion, currentVersion string) bool {
	if producerVersion == "" || currentVersion == "" {
		return false
	}
	prod, err1 := ids.ParseSemVer(producerVersion)
	cur, err2 := ids.ParseSemVer(currentVersion)
	if err1 != nil || err2 != nil {
		return false
	}
	return prod.Compare(cur) > 0
}
