// Package freshrss implements the service contract for FreshRSS, a
// single-container, file-backed RSS aggregator service, following the same
// shape as internal/services/actual (one container, directory-snapshot
// backup, no internal network).
package freshrss

import (
	"context"

	"github.com/aryonoco/divban/internal/archive"
	"github.com/aryonoco/divban/internal/backup"
	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/envfile"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/quadlet"
	"github.com/aryonoco/divban/internal/service"
	"github.com/aryonoco/divban/internal/stack"
)

// Name is this service's registration name in the CLI's <service> dispatch.
const Name = "freshrss"

const defaultImage = "docker.io/freshrss/freshrss:1.25.0"

// Config is freshrss's TOML configuration: the common Base plus the
// timezone and admin username FreshRSS needs on first run.
type Config struct {
	config.Base
	Timezone      string `toml:"timezone"`
	AdminUsername string `toml:"adminUsername"`
}

// Service implements the service contract for freshrss.
type Service struct {
	cfg     Config
	svcCtx  service.Context
	runtime service.Runtime
}

// New builds a freshrss Service from an already-loaded, validated Config.
func New(cfg Config, svcCtx service.Context) (*Service, error) {
	order, err := stack.Order(buildStack(cfg))
	if err != nil {
		return nil, err
	}
	units := service.UnitNames(Name, order)
	if err := service.RequireUnits(units); err != nil {
		return nil, err
	}
	return &Service{
		cfg:    cfg,
		svcCtx: svcCtx,
		runtime: service.Runtime{
			StackName: Name,
			Units:     units,
			Ctx:       svcCtx,
		},
	}, nil
}

func (s *Service) Name() ids.ServiceName { return ids.MustServiceName(Name) }

// Validate decodes configPath and checks it, performing no side effects.
func (s *Service) Validate(ctx context.Context, configPath ids.AbsolutePath) error {
	_, err := config.Load[Config](configPath)
	return err
}

func buildStack(cfg Config) stack.Stack {
	image := defaultImage
	if cfg.Container != nil && cfg.Container.Image != "" {
		image = cfg.Container.Image
	}

	var ports []quadlet.Port
	if cfg.Network != nil {
		ports = append(ports, quadlet.Port{HostIP: cfg.Network.Host, HostPort: cfg.Network.Port, ContainerPort: 80})
	}

	env := map[string]string{}
	if cfg.Timezone != "" {
		env["TZ"] = cfg.Timezone
	}
	if cfg.AdminUsername != "" {
		env["CRON_MIN"] = "random"
	}

	return stack.Stack{
		Name: Name,
		Containers: []stack.Container{
			{
				Name:  ids.MustContainerName("server"),
				Image: ids.MustContainerImage(image),
				Ports: ports,
				Volumes: []quadlet.Volume{
					{Source: cfg.Paths.DataDir, Target: "/var/www/FreshRSS/data"},
				},
				Environment: env,
				Service: quadlet.ServicePolicy{
					Restart:    "on-failure",
					RestartSec: ids.MustDuration("5s"),
				},
			},
		},
	}
}

// Generate composes the single container unit plus the `freshrss.env` file.
func (s *Service) Generate(ctx context.Context) (service.GeneratedFiles, error) {
	out := stack.Compose(buildStack(s.cfg), quadlet.Capabilities{SELinuxEnforcing: s.svcCtx.Capabilities.SELinuxEnforcing}, quadlet.Substitutions{DataDir: s.cfg.Paths.DataDir})
	if out.IsErr() {
		return service.GeneratedFiles{}, out.Error()
	}
	files := service.FromStackFiles(out.UnwrapOr(stack.GeneratedFiles{}))

	env := envfile.Render([]envfile.Group{
		{Name: "server", Vars: map[string]string{"ADMIN_USERNAME": s.cfg.AdminUsername}},
	})
	files.Environment = &service.Unit{Name: Name + ".env", Content: env}
	return files, nil
}

func (s *Service) directories() []ids.AbsolutePath {
	return []ids.AbsolutePath{ids.MustAbsolutePath(s.cfg.Paths.DataDir)}
}

// Setup runs the five-step install pipeline.
func (s *Service) Setup(ctx context.Context) error {
	files, err := s.Generate(ctx)
	if err != nil {
		return err
	}

	fileMap := map[ids.AbsolutePath][]byte{}
	for _, u := range files.AllFiles() {
		fileMap[s.svcCtx.Paths.ConfigDir.Join(u.Name)] = []byte(u.Content)
	}

	plan := service.InstallPlan{
		ServiceName: s.Name(),
		Directories: s.directories(),
		Files:       fileMap,
		Units:       s.runtime.Units,
	}
	return service.RunInstall(ctx, s.svcCtx, plan)
}

func (s *Service) Start(ctx context.Context) error   { return s.runtime.Start(ctx) }
func (s *Service) Stop(ctx context.Context) error    { return s.runtime.Stop(ctx) }
func (s *Service) Restart(ctx context.Context) error { return s.runtime.Restart(ctx) }

func (s *Service) Status(ctx context.Context) (service.StatusReport, error) {
	return s.runtime.Status(ctx)
}

func (s *Service) Logs(ctx context.Context, opts service.LogOptions) error {
	return s.runtime.Logs(ctx, opts)
}

func (s *Service) backupsDir() ids.AbsolutePath {
	return ids.MustAbsolutePath(s.cfg.Paths.DataDir).Join("backups")
}

func (s *Service) backupPlan() service.BackupPlan {
	compression := archive.Gzip
	if s.cfg.Backup.CompressionOrDefault() == "zstd" {
		compression = archive.Zstd
	}
	collector := backup.FileCollector{
		Root:     ids.MustAbsolutePath(s.cfg.Paths.DataDir),
		Excludes: s.cfg.Backup.Exclude,
		SkipDirs: []string{"backups"},
	}
	return service.BackupPlan{
		ServiceName: s.Name(),
		BackupsDir:  s.backupsDir(),
		Compression: compression,
		Files:       &collector,
		TargetDir:   ids.MustAbsolutePath(s.cfg.Paths.DataDir),
	}
}

// ListBackups exposes freshrss's backup listing, sorted newest-first, for
// the CLI's `backup list` surface.
func (s *Service) ListBackups() ([]backup.Info, error) {
	return service.ListBackups(s.backupsDir(), Name)
}

func (s *Service) Backup(ctx context.Context) (service.BackupResult, error) {
	return service.RunBackup(ctx, s.svcCtx, s.backupPlan())
}

func (s *Service) Restore(ctx context.Context, path ids.AbsolutePath) error {
	return service.RunRestore(ctx, s.svcCtx, s.backupPlan(), path)
}
