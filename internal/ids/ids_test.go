package ids

import "testing"

func TestParseUsername(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"immich", false},
		{"_svc-1", false},
		{"Invalid", true},
		{"", true},
		{"this-username-is-definitely-too-long-to-be-valid-32", true},
	}
	for _, c := range cases {
		_, err := ParseUsername(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseUsername(%q) err=%v, wantErr=%v", c.in, err, c.wantErr)
		}
	}
}

func TestParseAbsolutePath(t *testing.T) {
	if _, err := ParseAbsolutePath("relative/path"); err == nil {
		t.Error("expected error for relative path")
	}
	p, err := ParseAbsolutePath("/srv/immich")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Join("upload"); got != "/srv/immich/upload" {
		t.Errorf("Join got %q", got)
	}
}

func TestParseDuration(t *testing.T) {
	for _, ok := range []string{"30s", "5m", "1h", "500ms"} {
		if _, err := ParseDuration(ok); err != nil {
			t.Errorf("ParseDuration(%q) unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"30", "5min", "-1s"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Errorf("ParseDuration(%q) expected error", bad)
		}
	}
}

func TestParseContainerImage(t *testing.T) {
	img, err := ParseContainerImage("ghcr.io/immich-app/immich-server:v1.113.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Name != "ghcr.io/immich-app/immich-server" || img.Tag != "v1.113.0" || img.Digest != "" {
		t.Errorf("got %+v", img)
	}

	digest := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	img2, err := ParseContainerImage("redis:7@sha256:" + digest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img2.Name != "redis" || img2.Tag != "7" || img2.Digest != "sha256:"+digest {
		t.Errorf("got %+v", img2)
	}

	if _, err := ParseContainerImage(""); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestSemVerCompare(t *testing.T) {
	a := MustSemVer("1.0.0")
	b := MustSemVer("1.1.0")
	if a.Compare(b) >= 0 {
		t.Error("expected a < b")
	}
	if b.Compare(a) <= 0 {
		t.Error("expected b > a")
	}
	if a.Compare(MustSemVer("1.0.0")) != 0 {
		t.Error("expected equal")
	}
}
