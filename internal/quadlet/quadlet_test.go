package quadlet

import (
	"strings"
	"testing"

	"github.com/aryonoco/divban/internal/ids"
)

func TestEscapeRoundTrip(t *testing.T) {
	cases := []string{
		`plain value`,
		`has "quotes"`,
		`back\slash`,
		`dollar $HOME sign`,
		"multi\nline",
		"`backtick`",
		``,
	}
	for _, c := range cases {
		if got := QuoteCodec.Unescape(QuoteCodec.Escape(c)); got != c {
			t.Errorf("QuoteCodec round-trip failed: got %q, want %q", got, c)
		}
		if got := EnvCodec.Unescape(EnvCodec.Escape(c)); got != c {
			t.Errorf("EnvCodec round-trip failed: got %q, want %q", got, c)
		}
	}
}

func TestSubstitution(t *testing.T) {
	subs := Substitutions{DBUsername: "immich", DBDatabaseName: "immich"}
	got := subs.Apply("pg_isready -U ${DB_USERNAME} -d ${DB_DATABASE_NAME}")
	want := "pg_isready -U immich -d immich"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSELinuxRelabeling(t *testing.T) {
	spec := ContainerSpec{
		StackName: "immich",
		Name:      ids.MustContainerName("immich-server"),
		Image:     ids.MustContainerImage("ghcr.io/immich-app/immich-server:v1"),
		Volumes: []Volume{
			{Source: "/srv/immich/upload", Target: "/usr/src/app/upload"},
			{Source: "immich-model-cache", Target: "/cache"},
		},
	}
	unit := BuildContainer(spec, Capabilities{SELinuxEnforcing: true}, Substitutions{})
	if !strings.Contains(unit.Content, "/srv/immich/upload:/usr/src/app/upload:z") {
		t.Errorf("expected bind mount to carry z suffix, got:\n%s", unit.Content)
	}
	if strings.Contains(unit.Content, "immich-model-cache:/cache:z") {
		t.Errorf("named volume must not be relabeled, got:\n%s", unit.Content)
	}
}

func TestContainerRequiresNetwork(t *testing.T) {
	spec := ContainerSpec{
		StackName:  "immich",
		Name:       ids.MustContainerName("immich-server"),
		Image:      ids.MustContainerImage("ghcr.io/immich-app/immich-server:v1"),
		HasNetwork: true,
		Requires:   []string{"redis", "postgres"},
		Wants:      []string{"machine-learning"},
	}
	unit := BuildContainer(spec, Capabilities{}, Substitutions{})
	if !strings.Contains(unit.Content, "Requires=immich-network.service immich-redis.service immich-postgres.service") {
		t.Errorf("missing expected Requires line, got:\n%s", unit.Content)
	}
	if !strings.Contains(unit.Content, "Wants=immich-machine-learning.service") {
		t.Errorf("missing expected Wants line, got:\n%s", unit.Content)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	spec := ContainerSpec{
		StackName:   "immich",
		Name:        ids.MustContainerName("immich-server"),
		Image:       ids.MustContainerImage("ghcr.io/immich-app/immich-server:v1"),
		HasNetwork:  true,
		Environment: map[string]string{"B": "2", "A": "1", "C": "3"},
	}
	a := BuildContainer(spec, Capabilities{}, Substitutions{})
	b := BuildContainer(spec, Capabilities{}, Substitutions{})
	if a.Content != b.Content {
		t.Errorf("generate is not deterministic:\n--- a ---\n%s\n--- b ---\n%s", a.Content, b.Content)
	}
}

func TestRenderUserNS(t *testing.T) {
	uid, gid := 1000, 1000
	cases := []struct {
		in   UserNS
		want string
	}{
		{UserNS{Mode: "auto"}, "auto"},
		{UserNS{Mode: "host"}, "host"},
		{UserNS{Mode: "keep-id", UID: &uid}, "keep-id:uid=1000"},
		{UserNS{Mode: "keep-id", UID: &uid, GID: &gid}, "keep-id:uid=1000,gid=1000"},
	}
	for _, c := range cases {
		if got := RenderUserNS(c.in); got != c.want {
			t.Errorf("RenderUserNS(%+v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRKMPPHardware(t *testing.T) {
	eff := TranscodingHardware(TranscodingRKMPP)
	wantDevices := []string{"/dev/dri:/dev/dri", "/dev/rga:/dev/rga", "/dev/mpp_service:/dev/mpp_service"}
	if len(eff.Devices) != len(wantDevices) {
		t.Fatalf("got %d devices, want %d", len(eff.Devices), len(wantDevices))
	}
	for i, d := range eff.Devices {
		got := d.Host + ":" + d.Container
		if got != wantDevices[i] {
			t.Errorf("device %d: got %q, want %q", i, got, wantDevices[i])
		}
	}
	wantSec := []string{"systempaths=unconfined", "apparmor=unconfined"}
	if len(eff.SecurityOpts) != len(wantSec) || eff.SecurityOpts[0] != wantSec[0] || eff.SecurityOpts[1] != wantSec[1] {
		t.Errorf("got security opts %v, want %v", eff.SecurityOpts, wantSec)
	}
}
