package main

import (
	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/service"
	"github.com/aryonoco/divban/internal/services/actual"
)

// ActualCmd groups every operation exposed for the actual service.
type ActualCmd struct {
	Config     string `default:"/etc/divban/actual.toml" help:"path to actual's TOML configuration file"`
	QuadletDir string `help:"override the quadlet output directory (defaults to ~/.config/containers/systemd)"`

	Validate ActualValidateCmd `cmd:"" help:"check the configuration file without writing anything"`
	Generate ActualGenerateCmd `cmd:"" help:"render the quadlet/env files"`
	Setup    ActualSetupCmd    `cmd:"" help:"run the full install pipeline"`
	Start    ActualStartCmd    `cmd:"" help:"start the container"`
	Stop     ActualStopCmd     `cmd:"" help:"stop the container"`
	Restart  ActualRestartCmd  `cmd:"" help:"stop then start the container"`
	Status   ActualStatusCmd   `cmd:"" help:"report the container's systemd state"`
	Logs     ActualLogsCmd     `cmd:"" help:"tail the container's journal"`
	Backup   ActualBackupCmd   `cmd:"" help:"create a backup archive"`
	Restore  ActualRestoreCmd  `cmd:"" help:"restore from a backup archive"`
	Doctor   ActualDoctorCmd   `cmd:"" help:"diagnose config and quadlet drift"`
}

func (c *ActualCmd) quadletDir(cctx *Context) (ids.AbsolutePath, service.Context, error) {
	svcCtx, err := cctx.ServiceContext(actual.Name)
	if err != nil {
		return "", service.Context{}, err
	}
	if c.QuadletDir != "" {
		return ids.MustAbsolutePath(c.QuadletDir), svcCtx, nil
	}
	return svcCtx.Paths.QuadletDir, svcCtx, nil
}

func (c *ActualCmd) load(svcCtx service.Context) (*actual.Service, error) {
	cfg, err := config.Load[actual.Config](ids.MustAbsolutePath(c.Config))
	if err != nil {
		return nil, err
	}
	return actual.New(cfg, svcCtx)
}

type ActualValidateCmd struct{}

func (v *ActualValidateCmd) Run(cctx *Context, parent *ActualCmd) error {
	return runValidate(parent.Config, func(p ids.AbsolutePath) error {
		_, err := config.Load[actual.Config](p)
		return err
	})
}

type ActualGenerateCmd struct{}

func (g *ActualGenerateCmd) Run(cctx *Context, parent *ActualCmd) error {
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

type ActualSetupCmd struct{}

func (s *ActualSetupCmd) Run(cctx *Context, parent *ActualCmd) error {
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

type ActualStartCmd struct{}

func (s *ActualStartCmd) Run(cctx *Context, parent *ActualCmd) error {
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

type ActualStopCmd struct{}

func (s *ActualStopCmd) Run(cctx *Context, parent *ActualCmd) error {
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

type ActualRestartCmd struct{}

func (s *ActualRestartCmd) Run(cctx *Context, parent *ActualCmd) error {
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

type ActualStatusCmd struct{}

func (s *ActualStatusCmd) Run(cctx *Context, parent *ActualCmd) error {
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

type ActualLogsCmd struct {
	Follow    bool   `short:"f" help:"stream new log lines as they arrive"`
	Lines     int    `short:"n" default:"100" help:"number of trailing lines to show"`
	Container string `short:"c" help:"restrict to one container"`
}

func (l *ActualLogsCmd) Run(cctx *Context, parent *ActualCmd) error {
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

type ActualBackupCmd struct {
	List bool `help:"list existing backups instead of creating one"`
}

func (b *ActualBackupCmd) Run(cctx *Context, parent *ActualCmd) error {
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

type ActualRestoreCmd struct {
	Path string `arg:"" help:"path to the backup archive to restore"`
}

func (r *ActualRestoreCmd) Run(cctx *Context, parent *ActualCmd) error {
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

type ActualDoctorCmd struct{}

func (d *ActualDoctorCmd) Run(cctx *Context, parent *ActualCmd) error {
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
