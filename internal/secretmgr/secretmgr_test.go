package secretmgr

import (
	"strings"
	"testing"
)

func TestGenerateLengthAndAlphabet(t *testing.T) {
	pw, err := Generate(40)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(pw) != 40 {
		t.Fatalf("got length %d, want 40", len(pw))
	}
	for _, r := range pw {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("character %q not in alphabet", r)
		}
	}
}

func TestGenerateDefaultLength(t *testing.T) {
	pw, err := Generate(0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(pw) != DefaultLength {
		t.Fatalf("got length %d, want %d", len(pw), DefaultLength)
	}
}

func TestGenerateIsNotConstant(t *testing.T) {
	a, _ := Generate(32)
	b, _ := Generate(32)
	if a == b {
		t.Fatalf("two generated passwords were identical: %q", a)
	}
}

func TestFullName(t *testing.T) {
	if got := FullName("immich", "db-password"); got != "immich-db-password" {
		t.Errorf("got %q", got)
	}
}

func TestGenerateAll(t *testing.T) {
	specs := []Spec{{Name: "db-password", Length: 24}, {Name: "admin-token"}}
	out, err := GenerateAll("actual", specs)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if len(out["actual-db-password"]) != 24 {
		t.Errorf("db-password length = %d, want 24", len(out["actual-db-password"]))
	}
	if len(out["actual-admin-token"]) != DefaultLength {
		t.Errorf("admin-token length = %d, want %d", len(out["actual-admin-token"]), DefaultLength)
	}
}

func TestMountAndEnvBindings(t *testing.T) {
	m := MountBinding("immich", "db-password", "")
	if m.MountPath != "/run/secrets/db-password" || m.Name != "immich-db-password" {
		t.Errorf("got %+v", m)
	}
	e := EnvBinding("immich", "db-password", "DB_PASSWORD")
	if e.EnvVarName != "DB_PASSWORD" || e.MountPath != "" {
		t.Errorf("got %+v", e)
	}
}
