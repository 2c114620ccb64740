package main

import (
	"fmt"

	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/service"
	"github.com/aryonoco/divban/internal/services/actual"
	"github.com/aryonoco/divban/internal/services/caddy"
	"github.com/aryonoco/divban/internal/services/freshrss"
	"github.com/aryonoco/divban/internal/services/immich"
)

// startOrder is the fixed order in which services are brought up: caddy
// first since every other service sits behind it, immich last since it is
// the heaviest stack to become healthy. Stop runs this list in reverse.
var startOrder = []string{caddy.Name, actual.Name, freshrss.Name, immich.Name}

// AllCmd runs one operation across every configured service, honoring
// startOrder for start and its reverse for stop; the order is a fixed,
// hand-chosen list, not derived from any dependency graph.
type AllCmd struct {
	Start   AllStartCmd   `cmd:"" help:"start every configured service, caddy first"`
	Stop    AllStopCmd    `cmd:"" help:"stop every configured service, immich first"`
	Status  AllStatusCmd  `cmd:"" help:"report status for every configured service"`
	Restart AllRestartCmd `cmd:"" help:"stop then start every configured service"`
}

// allConfigPath is the conventional per-service config path; services
// missing a config file are skipped with a warning rather than aborting
// the whole fan-out, since not every host runs all four services.
func allConfigPath(name string) string {
	return "/etc/divban/" + name + ".toml"
}

func loadAllServices(cctx *Context, names []string) ([]service.Service, error) {
	services := make([]service.Service, 0, len(names))
	for _, name := range names {
		svcCtx, err := cctx.ServiceContext(name)
		if err != nil {
			return nil, err
		}
		path := ids.MustAbsolutePath(allConfigPath(name))
		var svc service.Service
		switch name {
		case caddy.Name:
			cfg, err := config.Load[caddy.Config](path)
			if err != nil {
				fmt.Printf("%s: skipped (%v)\n", name, err)
				continue
			}
			svc, err = caddy.New(cfg, svcCtx)
			if err != nil {
				return nil, err
			}
		case actual.Name:
			cfg, err := config.Load[actual.Config](path)
			if err != nil {
				fmt.Printf("%s: skipped (%v)\n", name, err)
				continue
			}
			svc, err = actual.New(cfg, svcCtx)
			if err != nil {
				return nil, err
			}
		case freshrss.Name:
			cfg, err := config.Load[freshrss.Config](path)
			if err != nil {
				fmt.Printf("%s: skipped (%v)\n", name, err)
				continue
			}
			svc, err = freshrss.New(cfg, svcCtx)
			if err != nil {
				return nil, err
			}
		case immich.Name:
			cfg, err := config.Load[immich.Config](path)
			if err != nil {
				fmt.Printf("%s: skipped (%v)\n", name, err)
				continue
			}
			svc, err = immich.New(cfg, svcCtx)
			if err != nil {
				return nil, err
			}
		}
		services = append(services, svc)
	}
	return services, nil
}

func reversedNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[len(names)-1-i] = n
	}
	return out
}

type AllStartCmd struct{}

func (s *AllStartCmd) Run(cctx *Context) error {
	svcs, err := loadAllServices(cctx, startOrder)
	if err != nil {
		return err
	}
	for _, svc := range svcs {
		if err := runStart(cctx.ctx(), svc); err != nil {
			return err
		}
	}
	return nil
}

type AllStopCmd struct{}

func (s *AllStopCmd) Run(cctx *Context) error {
	svcs, err := loadAllServices(cctx, reversedNames(startOrder))
	if err != nil {
		return err
	}
	for _, svc := range svcs {
		if err := runStop(cctx.ctx(), svc); err != nil {
			return err
		}
	}
	return nil
}

type AllRestartCmd struct{}

func (r *AllRestartCmd) Run(cctx *Context) error {
	if err := (&AllStopCmd{}).Run(cctx); err != nil {
		return err
	}
	return (&AllStartCmd{}).Run(cctx)
}

type AllStatusCmd struct{}

func (s *AllStatusCmd) Run(cctx *Context) error {
	svcs, err := loadAllServices(cctx, startOrder)
	if err != nil {
		return err
	}
	for _, svc := range svcs {
		if err := runStatus(cctx.ctx(), svc, cctx.Format); err != nil {
			return err
		}
	}
	return nil
}
