package main

import (
	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/service"
	"github.com/aryonoco/divban/internal/services/immich"
)

// ImmichCmd groups every operation exposed for the immich service, sharing
// its config/quadlet-dir flags across all subcommands the way a single
// `divban immich <verb>` invocation expects them.
type ImmichCmd struct {
	Config     string `default:"/etc/divban/immich.toml" help:"path to immich's TOML configuration file"`
	QuadletDir string `help:"override the quadlet output directory (defaults to ~/.config/containers/systemd)"`

	Validate ImmichValidateCmd `cmd:"" help:"check the configuration file without writing anything"`
	Generate ImmichGenerateCmd `cmd:"" help:"render quadlet/network/volume/env files"`
	Setup    ImmichSetupCmd    `cmd:"" help:"run the full install pipeline"`
	Start    ImmichStartCmd    `cmd:"" help:"start every container in dependency order"`
	Stop     ImmichStopCmd     `cmd:"" help:"stop every container in reverse dependency order"`
	Restart  ImmichRestartCmd  `cmd:"" help:"stop then start every container"`
	Status   ImmichStatusCmd   `cmd:"" help:"report each container's systemd state"`
	Logs     ImmichLogsCmd     `cmd:"" help:"tail a container's journal"`
	Backup   ImmichBackupCmd   `cmd:"" help:"create a backup archive"`
	Restore  ImmichRestoreCmd  `cmd:"" help:"restore from a backup archive"`
	Doctor   ImmichDoctorCmd   `cmd:"" help:"diagnose config and quadlet drift"`
}

func (c *ImmichCmd) quadletDir(cctx *Context) (ids.AbsolutePath, service.Context, error) {
	svcCtx, err := cctx.ServiceContext(immich.Name)
	if err != nil {
		return "", service.Context{}, err
	}
	if c.QuadletDir != "" {
		return ids.MustAbsolutePath(c.QuadletDir), svcCtx, nil
	}
	return svcCtx.Paths.QuadletDir, svcCtx, nil
}

func (c *ImmichCmd) load(svcCtx service.Context) (*immich.Service, error) {
	cfg, err := config.Load[immich.Config](ids.MustAbsolutePath(c.Config))
	if err != nil {
		return nil, err
	}
	return immich.New(cfg, svcCtx)
}

type ImmichValidateCmd struct{}

func (v *ImmichValidateCmd) Run(cctx *Context, parent *ImmichCmd) error {
	return runValidate(parent.Config, func(p ids.AbsolutePath) error {
		_, err := config.Load[immich.Config](p)
		return err
	})
}

type ImmichGenerateCmd struct{}

func (g *ImmichGenerateCmd) Run(cctx *Context, parent *ImmichCmd) error {
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

type ImmichSetupCmd struct{}

func (s *ImmichSetupCmd) Run(cctx *Context, parent *ImmichCmd) error {
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

type ImmichStartCmd struct{}

func (s *ImmichStartCmd) Run(cctx *Context, parent *ImmichCmd) error {
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

type ImmichStopCmd struct{}

func (s *ImmichStopCmd) Run(cctx *Context, parent *ImmichCmd) error {
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

type ImmichRestartCmd struct{}

func (s *ImmichRestartCmd) Run(cctx *Context, parent *ImmichCmd) error {
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

type ImmichStatusCmd struct{}

func (s *ImmichStatusCmd) Run(cctx *Context, parent *ImmichCmd) error {
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

type ImmichLogsCmd struct {
	Follow    bool   `short:"f" help:"stream new log lines as they arrive"`
	Lines     int    `short:"n" default:"100" help:"number of trailing lines to show"`
	Container string `short:"c" help:"restrict to one container (defaults to the first in start order)"`
}

func (l *ImmichLogsCmd) Run(cctx *Context, parent *ImmichCmd) error {
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

type ImmichBackupCmd struct {
	List bool `help:"list existing backups instead of creating one"`
}

func (b *ImmichBackupCmd) Run(cctx *Context, parent *ImmichCmd) error {
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

type ImmichRestoreCmd struct {
	Path string `arg:"" help:"path to the backup archive to restore"`
}

func (r *ImmichRestoreCmd) Run(cctx *Context, parent *ImmichCmd) error {
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

type ImmichDoctorCmd struct{}

func (d *ImmichDoctorCmd) Run(cctx *Context, parent *ImmichCmd) error {
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
