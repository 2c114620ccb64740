package actual

import (
	"testing"

	"github.com/aryonoco/divban/internal/config"
)

func TestBuildStackSingleContainerNoNetwork(t *testing.T) {
	cfg := Config{Base: config.Base{
		SchemaVersion: config.CurrentSchemaVersion,
		Paths:         config.Paths{DataDir: "/srv/actual"},
	}}
	s := buildStack(cfg)
	if s.Network != nil {
		t.Errorf("expected no shared network for a single-container service, got %+v", s.Network)
	}
	if len(s.Containers) != 1 {
		t.Fatalf("expected exactly one container, got %d", len(s.Containers))
	}
	if s.Containers[0].Volumes[0].Source != "/srv/actual" {
		t.Errorf("expected data dir bind mount, got %+v", s.Containers[0].Volumes)
	}
}

func TestBuildStackImageOverride(t *testing.T) {
	cfg := Config{Base: config.Base{
		SchemaVersion: config.CurrentSchemaVersion,
		Paths:         config.Paths{DataDir: "/srv/actual"},
		Container:     &config.Container{Image: "docker.io/actualbudget/actual-server:custom"},
	}}
	s := buildStack(cfg)
	if s.Containers[0].Image.String() != "docker.io/actualbudget/actual-server:custom" {
		t.Errorf("expected image override to apply, got %q", s.Containers[0].Image.String())
	}
}
