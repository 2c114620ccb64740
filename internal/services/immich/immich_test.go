package immich

import (
	"strings"
	"testing"

	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/quadlet"
	"github.com/aryonoco/divban/internal/stack"
)

func baseConfig() Config {
	return Config{
		Base: config.Base{
			SchemaVersion: config.CurrentSchemaVersion,
			Paths:         config.Paths{DataDir: "/srv/immich"},
			Network:       &config.Network{Host: "127.0.0.1", Port: 2283},
		},
		Database: Database{Username: "immich", Database: "immich"},
	}
}

func build(cfg Config) stack.Stack {
	return buildStack(cfg, quadlet.Capabilities{}, quadlet.Substitutions{})
}

func TestBuildStackDeterministic(t *testing.T) {
	cfg := baseConfig()
	a := build(cfg)
	b := build(cfg)
	if len(a.Containers) != len(b.Containers) {
		t.Fatalf("buildStack is not deterministic in container count")
	}
}

func TestBuildStackTopologyAndNetwork(t *testing.T) {
	cfg := baseConfig()
	s := build(cfg)

	if s.Network == nil || !s.Network.Internal {
		t.Fatalf("expected internal network, got %+v", s.Network)
	}

	order, err := stack.Order(s)
	if err != nil {
		t.Fatalf("unexpected topology error: %v", err)
	}
	idx := map[string]int{}
	for i, n := range order {
		idx[n] = i
	}
	if idx["redis"] >= idx["server"] || idx["postgres"] >= idx["server"] {
		t.Errorf("server must come after redis and postgres, got order %v", order)
	}
}

func TestBuildStackMachineLearningOptional(t *testing.T) {
	cfg := baseConfig()
	withoutML := build(cfg)
	for _, c := range withoutML.Containers {
		if string(c.Name) == "machine-learning" {
			t.Fatalf("machine-learning container present when not enabled")
		}
	}

	cfg.Containers.MachineLearning.Enabled = true
	withML := build(cfg)
	found := false
	for _, c := range withML.Containers {
		if string(c.Name) == "machine-learning" {
			found = true
		}
	}
	if !found {
		t.Fatalf("machine-learning container missing when enabled")
	}
}

func TestBuildStackRKMPPHardware(t *testing.T) {
	cfg := baseConfig()
	cfg.Hardware = &config.Hardware{Transcoding: "rkmpp"}
	s := build(cfg)
	for _, c := range s.Containers {
		if string(c.Name) != "server" {
			continue
		}
		if len(c.Devices) == 0 {
			t.Fatalf("expected rkmpp devices on server container")
		}
		foundRga := false
		for _, d := range c.Devices {
			if strings.Contains(d.Host, "rga") {
				foundRga = true
			}
		}
		if !foundRga {
			t.Errorf("expected /dev/rga among server devices, got %+v", c.Devices)
		}
	}
}
