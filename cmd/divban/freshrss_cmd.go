package main

import (
	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/service"
	"github.com/aryonoco/divban/internal/services/freshrss"
)

// FreshRSSCmd groups every operation exposed for the freshrss service.
type FreshRSSCmd struct {
	Config     string `default:"/etc/divban/freshrss.toml" help:"path to freshrss's TOML configuration file"`
	QuadletDir string `help:"override the quadlet output directory (defaults to ~/.config/containers/systemd)"`

	Validate FreshRSSValidateCmd `cmd:"" help:"check the configuration file without writing anything"`
	Generate FreshRSSGenerateCmd `cmd:"" help:"render the quadlet/env files"`
	Setup    FreshRSSSetupCmd    `cmd:"" help:"run the full install pipeline"`
	Start    FreshRSSStartCmd    `cmd:"" help:"start the container"`
	Stop     FreshRSSStopCmd     `cmd:"" help:"stop the container"`
	Restart  FreshRSSRestartCmd  `cmd:"" help:"stop then start the container"`
	Status   FreshRSSStatusCmd   `cmd:"" help:"report the container's systemd state"`
	Logs     FreshRSSLogsCmd     `cmd:"" help:"tail the container's journal"`
	Backup   FreshRSSBackupCmd   `cmd:"" help:"create a backup archive"`
	Restore  FreshRSSRestoreCmd  `cmd:"" help:"restore from a backup archive"`
	Doctor   FreshRSSDoctorCmd   `cmd:"" help:"diagnose config and quadlet drift"`
}

func (c *FreshRSSCmd) quadletDir(cctx *Context) (ids.AbsolutePath, service.Context, error) {
	svcCtx, err := cctx.ServiceContext(freshrss.Name)
	if err != nil {
		return "", service.Context{}, err
	}
	if c.QuadletDir != "" {
		return ids.MustAbsolutePath(c.QuadletDir), svcCtx, nil
	}
	return svcCtx.Paths.QuadletDir, svcCtx, nil
}

func (c *FreshRSSCmd) load(svcCtx service.Context) (*freshrss.Service, error) {
	cfg, err := config.Load[freshrss.Config](ids.MustAbsolutePath(c.Config))
	if err != nil {
		return nil, err
	}
	return freshrss.New(cfg, svcCtx)
}

type FreshRSSValidateCmd struct{}

func (v *FreshRSSValidateCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
	return runValidate(parent.Config, func(p ids.AbsolutePath) error {
		_, err := config.Load[freshrss.Config](p)
		return err
	})
}

type FreshRSSGenerateCmd struct{}

func (g *FreshRSSGenerateCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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

type FreshRSSSetupCmd struct{}

func (s *FreshRSSSetupCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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

type FreshRSSStartCmd struct{}

func (s *FreshRSSStartCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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

type FreshRSSStopCmd struct{}

func (s *FreshRSSStopCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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

type FreshRSSRestartCmd struct{}

func (s *FreshRSSRestartCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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

type FreshRSSStatusCmd struct{}

func (s *FreshRSSStatusCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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

type FreshRSSLogsCmd struct {
	Follow    bool   `short:"f" help:"stream new log lines as they arrive"`
	Lines     int    `short:"n" default:"100" help:"number of trailing lines to show"`
	Container string `short:"c" help:"restrict to one container"`
}

func (l *FreshRSSLogsCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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

type FreshRSSBackupCmd struct {
	List bool `help:"list existing backups instead of creating one"`
}

func (b *FreshRSSBackupCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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

type FreshRSSRestoreCmd struct {
	Path string `arg:"" help:"path to the backup archive to restore"`
}

func (r *FreshRSSRestoreCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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

type FreshRSSDoctorCmd struct{}

func (d *FreshRSSDoctorCmd) Run(cctx *Context, parent *FreshRSSCmd) error {
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
