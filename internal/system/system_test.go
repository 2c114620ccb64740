package system

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aryonoco/divban/internal/ids"
)

// fakeRunner records every invocation and returns scripted results keyed by
// the joined command line, a lightweight fake in place of a heavier
// mocking framework.
type fakeRunner struct {
	calls   []string
	results map[string]RunResult
	errs    map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	key := opts.Command + " " + strings.Join(opts.Args, " ")
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return RunResult{}, err
	}
	if res, ok := f.results[key]; ok {
		return res, nil
	}
	return RunResult{}, nil
}

func TestSystemdEnableStartStop(t *testing.T) {
	fr := &fakeRunner{results: map[string]RunResult{}, errs: map[string]error{}}
	sysd := Systemd{Runner: fr}
	ctx := context.Background()

	if err := sysd.DaemonReload(ctx); err != nil {
		t.Fatalf("DaemonReload: %v", err)
	}
	if err := sysd.EnableService(ctx, "immich-server.service"); err != nil {
		t.Fatalf("EnableService: %v", err)
	}
	if err := sysd.StartService(ctx, "immich-server.service"); err != nil {
		t.Fatalf("StartService: %v", err)
	}

	want := []string{
		"systemctl --user daemon-reload",
		"systemctl --user enable immich-server.service",
		"systemctl --user start immich-server.service",
	}
	if len(fr.calls) != len(want) {
		t.Fatalf("got calls %v, want %v", fr.calls, want)
	}
	for i := range want {
		if fr.calls[i] != want[i] {
			t.Errorf("call %d: got %q, want %q", i, fr.calls[i], want[i])
		}
	}
}

func TestSystemdStatusService(t *testing.T) {
	fr := &fakeRunner{
		results: map[string]RunResult{
			"systemctl --user show immich-server.service --property=ActiveState --value": {Stdout: "active\n"},
			"systemctl --user show immich-server.service --property=SubState --value":    {Stdout: "running\n"},
		},
		errs: map[string]error{},
	}
	sysd := Systemd{Runner: fr}
	status, err := sysd.StatusService(context.Background(), "immich-server.service")
	if err != nil {
		t.Fatalf("StatusService: %v", err)
	}
	if status.ActiveState != "active" || status.SubState != "running" {
		t.Errorf("got %+v", status)
	}
}

func TestReloadAndEnableServicesTrackedPartialFailureRollback(t *testing.T) {
	fr := &fakeRunner{
		results: map[string]RunResult{},
		errs: map[string]error{
			"systemctl --user enable c.service": errFake,
		},
	}
	sysd := Systemd{Runner: fr}
	ctx := context.Background()

	result, err := ReloadAndEnableServicesTracked(ctx, sysd, []string{"a.service", "b.service", "c.service", "d.service"}, true)
	if err == nil {
		t.Fatalf("expected failure enabling c.service")
	}
	if len(result.Enabled) != 2 || result.Enabled[0] != "a.service" || result.Enabled[1] != "b.service" {
		t.Fatalf("got enabled=%v, want [a.service b.service]", result.Enabled)
	}
	if len(result.Started) != 2 {
		t.Fatalf("got started=%v, want both enabled units started", result.Started)
	}

	if err := RollbackServiceChanges(ctx, sysd, result); err != nil {
		t.Fatalf("RollbackServiceChanges: %v", err)
	}
	last := fr.calls[len(fr.calls)-4:]
	want := []string{
		"systemctl --user stop b.service",
		"systemctl --user stop a.service",
		"systemctl --user disable b.service",
		"systemctl --user disable a.service",
	}
	for i := range want {
		if last[i] != want[i] {
			t.Errorf("rollback call %d: got %q, want %q", i, last[i], want[i])
		}
	}
}

var errFake = &fakeErr{}

type fakeErr struct{}

func (*fakeErr) Error() string { return "fake failure" }

func TestEnsureDirectoriesTrackedAndRollback(t *testing.T) {
	root := t.TempDir()
	a := ids.MustAbsolutePath(filepath.Join(root, "a"))
	b := ids.MustAbsolutePath(filepath.Join(root, "a", "b"))

	created, err := EnsureDirectoriesTracked([]ids.AbsolutePath{a, b}, -1, -1)
	if err != nil {
		t.Fatalf("EnsureDirectoriesTracked: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("got %d created dirs, want 2", len(created))
	}
	if !DirectoryExists(b) {
		t.Fatalf("expected %s to exist", b)
	}

	if err := RemoveDirectoriesReverse(created); err != nil {
		t.Fatalf("RemoveDirectoriesReverse: %v", err)
	}
	if DirectoryExists(a) {
		t.Errorf("expected %s to be removed", a)
	}
}

func TestWriteGeneratedFilesTrackedRollbackRestoresExisting(t *testing.T) {
	root := t.TempDir()
	path := ids.MustAbsolutePath(filepath.Join(root, "immich.container"))
	if err := os.WriteFile(path.String(), []byte("old content"), 0o640); err != nil {
		t.Fatalf("seed: %v", err)
	}

	written, err := WriteGeneratedFilesTracked(map[ids.AbsolutePath][]byte{path: []byte("new content")})
	if err != nil {
		t.Fatalf("WriteGeneratedFilesTracked: %v", err)
	}
	if !written[0].Existed {
		t.Fatalf("expected existing file to be tracked as Existed")
	}

	if err := RollbackFileWrites(written); err != nil {
		t.Fatalf("RollbackFileWrites: %v", err)
	}
	got, err := os.ReadFile(path.String())
	if err != nil {
		t.Fatalf("read after rollback: %v", err)
	}
	if string(got) != "old content" {
		t.Errorf("got %q, want original content restored", got)
	}
}

func TestWriteGeneratedFilesTrackedRollbackRemovesNew(t *testing.T) {
	root := t.TempDir()
	path := ids.MustAbsolutePath(filepath.Join(root, "new.container"))

	written, err := WriteGeneratedFilesTracked(map[ids.AbsolutePath][]byte{path: []byte("content")})
	if err != nil {
		t.Fatalf("WriteGeneratedFilesTracked: %v", err)
	}
	if written[0].Existed {
		t.Fatalf("expected new file to be tracked as not Existed")
	}

	if err := RollbackFileWrites(written); err != nil {
		t.Fatalf("RollbackFileWrites: %v", err)
	}
	if FileExists(path) {
		t.Errorf("expected %s to have been removed by rollback", path)
	}
}

func TestSecretStoreEnsureTracked(t *testing.T) {
	fr := &fakeRunner{
		results: map[string]RunResult{
			"podman secret inspect immich-db-password": {},
		},
		errs: map[string]error{
			"podman secret inspect immich-db-password": errFake,
		},
	}
	store := SecretStore{Runner: fr}
	created, err := store.EnsureServiceSecretsTracked(context.Background(), map[string]string{
		"immich-db-password": "s3cret",
	})
	if err != nil {
		t.Fatalf("EnsureServiceSecretsTracked: %v", err)
	}
	if len(created) != 1 || created[0] != "immich-db-password" {
		t.Fatalf("got created=%v", created)
	}
}
