package stack

import (
	"strings"
	"testing"

	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/quadlet"
)

// immichStack uses short, unprefixed container names ("redis", not
// "immich-redis"): BuildContainer derives both the unit file name and the
// Requires/Wants dependency names by prefixing StackName onto these,
// producing "immich-redis.container" / "Requires=...immich-redis.service...".
func immichStack() Stack {
	return Stack{
		Name:    "immich",
		Network: &Network{Internal: true},
		Containers: []Container{
			{
				Name:  ids.MustContainerName("redis"),
				Image: ids.MustContainerImage("redis:7"),
			},
			{
				Name:  ids.MustContainerName("postgres"),
				Image: ids.MustContainerImage("ghcr.io/immich-app/postgres:16"),
				Volumes: []quadlet.Volume{
					{Source: "immich-db-data", Target: "/var/lib/postgresql/data"},
				},
			},
			{
				Name:     ids.MustContainerName("machine-learning"),
				Image:    ids.MustContainerImage("ghcr.io/immich-app/immich-machine-learning:v1.113.0-cuda"),
				Requires: []string{"redis", "postgres"},
			},
			{
				Name:     ids.MustContainerName("server"),
				Image:    ids.MustContainerImage("ghcr.io/immich-app/immich-server:v1.113.0"),
				Requires: []string{"redis", "postgres"},
				Wants:    []string{"machine-learning"},
				Ports: []quadlet.Port{
					{HostPort: 2283, ContainerPort: 2283},
				},
			},
		},
	}
}

func TestComposeTopologicalOrder(t *testing.T) {
	out := Compose(immichStack(), quadlet.Capabilities{}, quadlet.Substitutions{})
	if out.IsErr() {
		t.Fatalf("unexpected error: %v", out.Error())
	}
	files, _ := out.Unwrap()

	if len(files.Containers) != 4 {
		t.Fatalf("got %d container units, want 4", len(files.Containers))
	}

	index := map[string]int{}
	for i, u := range files.Containers {
		index[u.Name] = i
	}
	if index["immich-redis.container"] >= index["immich-server.container"] {
		t.Errorf("redis must precede server in output order")
	}
	if index["immich-postgres.container"] >= index["immich-machine-learning.container"] {
		t.Errorf("postgres must precede machine-learning in output order")
	}
}

func TestComposeNetworkUnit(t *testing.T) {
	out := Compose(immichStack(), quadlet.Capabilities{}, quadlet.Substitutions{})
	files, _ := out.Unwrap()
	if len(files.Networks) != 1 {
		t.Fatalf("got %d network units, want 1", len(files.Networks))
	}
	if files.Networks[0].Name != "immich.network" {
		t.Errorf("got network unit name %q", files.Networks[0].Name)
	}
	if !strings.Contains(files.Networks[0].Content, "Internal=true") {
		t.Errorf("expected Internal=true in network unit, got:\n%s", files.Networks[0].Content)
	}
}

func TestComposeNamedVolumeUnit(t *testing.T) {
	out := Compose(immichStack(), quadlet.Capabilities{}, quadlet.Substitutions{})
	files, _ := out.Unwrap()
	if len(files.Volumes) != 1 {
		t.Fatalf("got %d volume units, want 1 (immich-db-data)", len(files.Volumes))
	}
	if files.Volumes[0].Name != "immich-db-data.volume" {
		t.Errorf("got volume unit name %q", files.Volumes[0].Name)
	}
}

func TestComposeServerRequiresAndWants(t *testing.T) {
	out := Compose(immichStack(), quadlet.Capabilities{}, quadlet.Substitutions{})
	files, _ := out.Unwrap()

	var server quadlet.Unit
	for _, u := range files.Containers {
		if u.Name == "immich-server.container" {
			server = u
		}
	}
	if !strings.Contains(server.Content, "Requires=immich-network.service immich-redis.service immich-postgres.service") {
		t.Errorf("missing expected Requires line, got:\n%s", server.Content)
	}
	if !strings.Contains(server.Content, "Wants=immich-machine-learning.service") {
		t.Errorf("missing expected Wants line, got:\n%s", server.Content)
	}
	if !strings.Contains(server.Content, "PublishPort") {
		t.Errorf("missing PublishPort directive, got:\n%s", server.Content)
	}
}

func TestComposeDependencyCycle(t *testing.T) {
	s := Stack{
		Name: "cyclic",
		Containers: []Container{
			{Name: ids.MustContainerName("a"), Image: ids.MustContainerImage("x:1"), Requires: []string{"b"}},
			{Name: ids.MustContainerName("b"), Image: ids.MustContainerImage("x:1"), Requires: []string{"a"}},
		},
	}
	out := Compose(s, quadlet.Capabilities{}, quadlet.Substitutions{})
	if !out.IsErr() {
		t.Fatalf("expected cycle to be rejected")
	}
}

func TestComposeUnknownDependencyRejected(t *testing.T) {
	s := Stack{
		Name: "broken",
		Containers: []Container{
			{Name: ids.MustContainerName("a"), Image: ids.MustContainerImage("x:1"), Requires: []string{"ghost"}},
		},
	}
	out := Compose(s, quadlet.Capabilities{}, quadlet.Substitutions{})
	if !out.IsErr() {
		t.Fatalf("expected unknown dependency to be rejected")
	}
}

func TestComposeDuplicateNameRejected(t *testing.T) {
	s := Stack{
		Name: "dup",
		Containers: []Container{
			{Name: ids.MustContainerName("a"), Image: ids.MustContainerImage("x:1")},
			{Name: ids.MustContainerName("a"), Image: ids.MustContainerImage("y:1")},
		},
	}
	out := Compose(s, quadlet.Capabilities{}, quadlet.Substitutions{})
	if !out.IsErr() {
		t.Fatalf("expected duplicate container name to be rejected")
	}
}
