// Package archive implements the tar-based backup payload codec:
// streaming creation with embedded metadata, and extraction that rejects
// path traversal before writing anything to disk.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/aryonoco/divban/internal/errs"
)

// Compression names the codec layered under the tar stream.
type Compression string

const (
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

// MetadataName is the archive entry every backup carries first, ahead of
// any payload files.
const MetadataName = "divban.backup.metadata.json"

// ErrNoMetadata reports an archive whose first entry is not the metadata
// document. Backups made before the embedded-metadata convention look like
// this; callers decide whether that is fatal or a legacy archive to accept
// as-is.
var ErrNoMetadata = errors.New("archive has no embedded metadata")

// Metadata is the JSON document stored as the archive's first tar entry.
type Metadata struct {
	SchemaVersion   string    `json:"schemaVersion"`
	Producer        string    `json:"producer"`
	ProducerVersion string    `json:"producerVersion"`
	Service         string    `json:"service"`
	Timestamp       time.Time `json:"timestamp"`
	Files           []string  `json:"files"`
}

// DetectCompression maps a file extension to the codec that produced it,
// the same way the engine picks a codec for a new backup name.
func DetectCompression(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".zst"):
		return Zstd
	default:
		return Gzip
	}
}

// Entry is one payload file to be written into the archive.
type Entry struct {
	Name    string // archive-relative path, forward-slash separated
	Content []byte
	Mode    os.FileMode
}

// Create writes metadata followed by every entry into a compressed tar
// stream on w.
func Create(w io.Writer, compression Compression, meta Metadata, entries []Entry) error {
	cw, closeCompressor, err := newCompressWriter(w, compression)
	if err != nil {
		return errs.Wrap(errs.Backup, "BACKUP_FAILED", "open compressor", err)
	}
	defer closeCompressor()

	tw := tar.NewWriter(cw)
	defer tw.Close()

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return errs.Wrap(errs.Backup, "BACKUP_FAILED", "marshal metadata", err)
	}
	if err := writeTarEntry(tw, MetadataName, 0o644, metaBytes); err != nil {
		return err
	}

	for _, e := range entries {
		mode := e.Mode
		if mode == 0 {
			mode = 0o644
		}
		if err := writeTarEntry(tw, e.Name, mode, e.Content); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errs.Wrap(errs.Backup, "BACKUP_FAILED", "close tar writer", err)
	}
	return closeCompressor()
}

func writeTarEntry(tw *tar.Writer, name string, mode os.FileMode, content []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    int64(mode),
		Size:    int64(len(content)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return errs.Wrap(errs.Backup, "BACKUP_FAILED", fmt.Sprintf("write tar header for %s", name), err)
	}
	if _, err := tw.Write(content); err != nil {
		return errs.Wrap(errs.Backup, "BACKUP_FAILED", fmt.Sprintf("write tar body for %s", name), err)
	}
	return nil
}

func newCompressWriter(w io.Writer, compression Compression) (io.Writer, func() error, error) {
	switch compression {
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw.Close, nil
	default:
		gw := gzip.NewWriter(w)
		return gw, gw.Close, nil
	}
}

// ReadMetadata reads only the archive's first entry, for restore's
// pre-extraction service/schema checks, without touching the filesystem.
func ReadMetadata(r io.Reader, compression Compression) (Metadata, error) {
	var meta Metadata
	dr, closeDecompressor, err := newDecompressReader(r, compression)
	if err != nil {
		return meta, errs.Wrap(errs.Backup, "RESTORE_FAILED", "open decompressor", err)
	}
	defer closeDecompressor()

	tr := tar.NewReader(dr)
	hdr, err := tr.Next()
	if err != nil {
		return meta, errs.Wrap(errs.Backup, "RESTORE_FAILED", "read archive header", err)
	}
	if hdr.Name != MetadataName {
		return meta, ErrNoMetadata
	}
	if err := json.NewDecoder(tr).Decode(&meta); err != nil {
		return meta, errs.Wrap(errs.Backup, "RESTORE_FAILED", "decode metadata", err)
	}
	return meta, nil
}

// ExtractFunc receives one validated payload entry at a time; the caller
// decides how to persist it (plain file write, or piped to a restore
// command for database-backed services).
type ExtractFunc func(name string, mode os.FileMode, content io.Reader) error

// extractedEntry is one fully-buffered, name-validated tar entry, read
// during Extract's validation pass and handed to fn only in the second
// pass, once every entry in the archive is known safe.
type extractedEntry struct {
	name    string
	mode    os.FileMode
	content []byte
}

// Extract validates every entry's name before writing anything: it first
// reads the whole archive into memory, rejecting any name that could
// escape the restore target, and only once every entry has passed does it
// hand each payload entry to fn. This guarantees a malicious archive with a
// traversal entry anywhere in the stream (not just first) never causes a
// partial restore.
func Extract(r io.Reader, compression Compression, fn ExtractFunc) error {
	dr, closeDecompressor, err := newDecompressReader(r, compression)
	if err != nil {
		return errs.Wrap(errs.Backup, "RESTORE_FAILED", "open decompressor", err)
	}
	defer closeDecompressor()

	tr := tar.NewReader(dr)
	var entries []extractedEntry
	first := true
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errs.Wrap(errs.Backup, "RESTORE_FAILED", "read archive entry", err)
		}
		if first {
			first = false
			if hdr.Name == MetadataName {
				continue
			}
		}
		if err := rejectUnsafeName(hdr.Name); err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return errs.Wrap(errs.Backup, "RESTORE_FAILED", fmt.Sprintf("read archive body for %s", hdr.Name), err)
		}
		entries = append(entries, extractedEntry{name: hdr.Name, mode: os.FileMode(hdr.Mode), content: content})
	}

	for _, e := range entries {
		if err := fn(e.name, e.mode, bytes.NewReader(e.content)); err != nil {
			return err
		}
	}
	return nil
}

// rejectUnsafeName enforces that every archive entry stays within the
// extraction root: no absolute paths, no `..` traversal, no NUL bytes.
func rejectUnsafeName(name string) error {
	if name == "" {
		return errs.New(errs.Backup, "RESTORE_FAILED", "archive entry has an empty name")
	}
	if strings.ContainsRune(name, 0) {
		return errs.New(errs.Backup, "RESTORE_FAILED", fmt.Sprintf("archive entry %q contains a NUL byte", name))
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return errs.New(errs.Backup, "RESTORE_FAILED", fmt.Sprintf("archive entry %q is an absolute path", name))
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, string(filepath.Separator)+"..") {
		return errs.New(errs.Backup, "RESTORE_FAILED", fmt.Sprintf("archive entry %q attempts path traversal", name))
	}
	return nil
}

func newDecompressReader(r io.Reader, compression Compression) (io.Reader, func() error, error) {
	switch compression {
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() error { zr.Close(); return nil }, nil
	default:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gr, gr.Close, nil
	}
}
