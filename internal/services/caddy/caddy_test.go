package caddy

import (
	"testing"

	"github.com/aryonoco/divban/internal/config"
)

func TestBuildStackDefaultPorts(t *testing.T) {
	cfg := Config{Base: config.Base{
		SchemaVersion: config.CurrentSchemaVersion,
		Paths:         config.Paths{DataDir: "/srv/caddy"},
	}}
	s := buildStack(cfg)
	if len(s.Containers) != 1 {
		t.Fatalf("expected exactly one container, got %d", len(s.Containers))
	}
	ports := s.Containers[0].Ports
	if len(ports) != 2 {
		t.Fatalf("expected default 80/443 publish ports, got %+v", ports)
	}
}

func TestBuildStackCaddyfileMount(t *testing.T) {
	cfg := Config{
		Base: config.Base{
			SchemaVersion: config.CurrentSchemaVersion,
			Paths:         config.Paths{DataDir: "/srv/caddy"},
		},
		CaddyfilePath: "/etc/divban/caddy/Caddyfile",
	}
	s := buildStack(cfg)
	found := false
	for _, v := range s.Containers[0].Volumes {
		if v.Source == "/etc/divban/caddy/Caddyfile" && v.Target == "/etc/caddy/Caddyfile" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Caddyfile bind mount, got %+v", s.Containers[0].Volumes)
	}
}
