package main

import (
	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/service"
	"github.com/aryonoco/divban/internal/services/caddy"
)

// CaddyCmd groups every operation exposed for the caddy service.
type CaddyCmd struct {
	Config     string `default:"/etc/divban/caddy.toml" help:"path to caddy's TOML configuration file"`
	QuadletDir string `help:"override the quadlet output directory (defaults to ~/.config/containers/systemd)"`

	Validate CaddyValidateCmd `cmd:"" help:"check the configuration file without writing anything"`
	Generate CaddyGenerateCmd `cmd:"" help:"render the quadlet/env files"`
	Setup    CaddySetupCmd    `cmd:"" help:"run the full install pipeline"`
	Start    CaddyStartCmd    `cmd:"" help:"start the container"`
	Stop     CaddyStopCmd     `cmd:"" help:"stop the container"`
	Restart  CaddyRestartCmd  `cmd:"" help:"stop then start the container"`
	Status   CaddyStatusCmd   `cmd:"" help:"report the container's systemd state"`
	Logs     CaddyLogsCmd     `cmd:"" help:"tail the container's journal"`
	Backup   CaddyBackupCmd   `cmd:"" help:"create a backup archive"`
	Restore  CaddyRestoreCmd  `cmd:"" help:"restore from a backup archive"`
	Doctor   CaddyDoctorCmd   `cmd:"" help:"diagnose config and quadlet drift"`
}

func (c *CaddyCmd) quadletDir(cctx *Context) (ids.AbsolutePath, service.Context, error) {
	svcCtx, err := cctx.ServiceContext(caddy.Name)
	if err != nil {
		return "", service.Context{}, err
	}
	if c.QuadletDir != "" {
		return ids.MustAbsolutePath(c.QuadletDir), svcCtx, nil
	}
	return svcCtx.Paths.QuadletDir, svcCtx, nil
}

func (c *CaddyCmd) load(svcCtx service.Context) (*caddy.Service, error) {
	cfg, err := config.Load[caddy.Config](ids.MustAbsolutePath(c.Config))
	if err != nil {
		return nil, err
	}
	return caddy.New(cfg, svcCtx)
}

type CaddyValidateCmd struct{}

func (v *CaddyValidateCmd) Run(cctx *Context, parent *CaddyCmd) error {
	return runValidate(parent.Config, func(p ids.AbsolutePath) error {
		_, err := config.Load[caddy.Config](p)
		return err
	})
}

type CaddyGenerateCmd struct{}

func (g *CaddyGenerateCmd) Run(cctx *Context, parent *CaddyCmd) error {
	dir, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	return runGenerate(cctx.ctx(), svc, dir)
}

type CaddySetupCmd struct{}

func (s *CaddySetupCmd) Run(cctx *Context, parent *CaddyCmd) error {
	_, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	return runSetup(cctx.ctx(), svc)
}

type CaddyStartCmd struct{}

func (s *CaddyStartCmd) Run(cctx *Context, parent *CaddyCmd) error {
	_, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	return runStart(cctx.ctx(), svc)
}

type CaddyStopCmd struct{}

func (s *CaddyStopCmd) Run(cctx *Context, parent *CaddyCmd) error {
	_, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	return runStop(cctx.ctx(), svc)
}

type CaddyRestartCmd struct{}

func (s *CaddyRestartCmd) Run(cctx *Context, parent *CaddyCmd) error {
	_, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	return runRestart(cctx.ctx(), svc)
}

type CaddyStatusCmd struct{}

func (s *CaddyStatusCmd) Run(cctx *Context, parent *CaddyCmd) error {
	_, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	return runStatus(cctx.ctx(), svc, cctx.Format)
}

type CaddyLogsCmd struct {
	Follow    bool   `short:"f" help:"stream new log lines as they arrive"`
	Lines     int    `short:"n" default:"100" help:"number of trailing lines to show"`
	Container string `short:"c" help:"restrict to one container"`
}

func (l *CaddyLogsCmd) Run(cctx *Context, parent *CaddyCmd) error {
	_, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	return runLogs(cctx.ctx(), svc, service.LogOptions{Follow: l.Follow, Lines: l.Lines, Container: l.Container})
}

type CaddyBackupCmd struct {
	List bool `help:"list existing backups instead of creating one"`
}

func (b *CaddyBackupCmd) Run(cctx *Context, parent *CaddyCmd) error {
	_, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	if b.List {
		infos, err := svc.ListBackups()
		return runBackupList(infos, err, cctx.Format)
	}
	return runBackup(cctx.ctx(), svc, cctx.Format)
}

type CaddyRestoreCmd struct {
	Path string `arg:"" help:"path to the backup archive to restore"`
}

func (r *CaddyRestoreCmd) Run(cctx *Context, parent *CaddyCmd) error {
	_, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	return runRestore(cctx.ctx(), svc, r.Path, cctx.Force)
}

type CaddyDoctorCmd struct{}

func (d *CaddyDoctorCmd) Run(cctx *Context, parent *CaddyCmd) error {
	dir, svcCtx, err := parent.quadletDir(cctx)
	if err != nil {
		return err
	}
	svc, err := parent.load(svcCtx)
	if err != nil {
		return err
	}
	return runDoctor(cctx.ctx(), svc, parent.Config, dir.String())
}
