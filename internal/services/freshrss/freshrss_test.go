package freshrss

import (
	"testing"

	"github.com/aryonoco/divban/internal/config"
)

func TestBuildStackTimezoneEnv(t *testing.T) {
	cfg := Config{
		Base: config.Base{
			SchemaVersion: config.CurrentSchemaVersion,
			Paths:         config.Paths{DataDir: "/srv/freshrss"},
		},
		Timezone: "Australia/Sydney",
	}
	s := buildStack(cfg)
	if len(s.Containers) != 1 {
		t.Fatalf("expected exactly one container, got %d", len(s.Containers))
	}
	if s.Containers[0].Environment["TZ"] != "Australia/Sydney" {
		t.Errorf("expected TZ to be set from config, got %+v", s.Containers[0].Environment)
	}
}

func TestBuildStackNoNetworkUnit(t *testing.T) {
	cfg := Config{Base: config.Base{
		SchemaVersion: config.CurrentSchemaVersion,
		Paths:         config.Paths{DataDir: "/srv/freshrss"},
	}}
	s := buildStack(cfg)
	if s.Network != nil {
		t.Errorf("expected no shared network for a single-container service, got %+v", s.Network)
	}
}
