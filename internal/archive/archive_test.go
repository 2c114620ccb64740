package archive

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"
)

func TestCreateExtractRoundTripGzip(t *testing.T) {
	roundTrip(t, Gzip)
}

func TestCreateExtractRoundTripZstd(t *testing.T) {
	roundTrip(t, Zstd)
}

func roundTrip(t *testing.T, compression Compression) {
	t.Helper()
	var buf bytes.Buffer
	entries := []Entry{
		{Name: "data/account.sqlite", Content: []byte("sqlite-bytes")},
		{Name: "data/config.json", Content: []byte(`{"key":"value"}`)},
	}
	meta := Metadata{
		Service:         "actual",
		SchemaVersion:   "1.0.0",
		Producer:        "divban",
		ProducerVersion: "0.3.0",
		Timestamp:       time.Unix(1700000000, 0).UTC(),
		Files:           []string{entries[0].Name, entries[1].Name},
	}
	if err := Create(&buf, compression, meta, entries); err != nil {
		t.Fatalf("Create: %v", err)
	}

	gotMeta, err := ReadMetadata(bytes.NewReader(buf.Bytes()), compression)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if gotMeta.Service != meta.Service || gotMeta.SchemaVersion != meta.SchemaVersion {
		t.Errorf("got metadata %+v, want %+v", gotMeta, meta)
	}

	got := map[string][]byte{}
	err = Extract(bytes.NewReader(buf.Bytes()), compression, func(name string, mode os.FileMode, content io.Reader) error {
		b, rerr := io.ReadAll(content)
		if rerr != nil {
			return rerr
		}
		got[name] = b
		return nil
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, e := range entries {
		if string(got[e.Name]) != string(e.Content) {
			t.Errorf("entry %s: got %q, want %q", e.Name, got[e.Name], e.Content)
		}
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	meta := Metadata{Service: "actual"}
	entries := []Entry{{Name: "../../etc/passwd", Content: []byte("evil")}}
	if err := Create(&buf, Gzip, meta, entries); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := Extract(bytes.NewReader(buf.Bytes()), Gzip, func(name string, mode os.FileMode, content io.Reader) error {
		return nil
	})
	if err == nil {
		t.Fatalf("expected traversal entry to be rejected")
	}
}

func TestExtractRejectsAbsolutePath(t *testing.T) {
	var buf bytes.Buffer
	meta := Metadata{Service: "actual"}
	entries := []Entry{{Name: "/etc/passwd", Content: []byte("evil")}}
	if err := Create(&buf, Gzip, meta, entries); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := Extract(bytes.NewReader(buf.Bytes()), Gzip, func(name string, mode os.FileMode, content io.Reader) error {
		return nil
	})
	if err == nil {
		t.Fatalf("expected absolute path entry to be rejected")
	}
}

func TestDetectCompression(t *testing.T) {
	cases := map[string]Compression{
		"actual-backup-2026-07-30T12-00-00.tar.gz":  Gzip,
		"actual-backup-2026-07-30T12-00-00.tar.zst": Zstd,
	}
	for name, want := range cases {
		if got := DetectCompression(name); got != want {
			t.Errorf("DetectCompression(%q) = %q, want %q", name, got, want)
		}
	}
}
