// Package caddy implements the service contract for Caddy, the reverse
// proxy fronting every other managed service. Unlike the file-backed
// services it has no data-directory subdirectories to create and nothing
// to back up beyond its own Caddyfile, so its install plan and backup plan
// are the thinnest of the four.
package caddy

import (
	"context"

	"github.com/aryonoco/divban/internal/archive"
	"github.com/aryonoco/divban/internal/backup"
	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/quadlet"
	"github.com/aryonoco/divban/internal/service"
	"github.com/aryonoco/divban/internal/stack"
)

// Name is this service's registration name in the CLI's <service> dispatch.
const Name = "caddy"

const defaultImage = "docker.io/library/caddy:2.8"

// Config is caddy's TOML configuration: the common Base plus the path to a
// hand-maintained Caddyfile that is bind-mounted read-only into the
// container rather than templated by generate.
type Config struct {
	config.Base
	CaddyfilePath string `toml:"caddyfilePath"`
}

// Service implements the service contract for caddy.
type Service struct {
	cfg     Config
	svcCtx  service.Context
	runtime service.Runtime
}

// New builds a caddy Service from an already-loaded, validated Config.
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

	caddyfile := cfg.CaddyfilePath
	if caddyfile == "" {
		caddyfile = cfg.Paths.DataDir + "/Caddyfile"
	}

	var ports []quadlet.Port
	ports = append(ports,
		quadlet.Port{HostIP: "0.0.0.0", HostPort: 80, ContainerPort: 80, Protocol: "tcp"},
		quadlet.Port{HostIP: "0.0.0.0", HostPort: 443, ContainerPort: 443, Protocol: "tcp"},
	)
	if cfg.Network != nil && cfg.Network.Port != 0 {
		ports = []quadlet.Port{{HostIP: cfg.Network.Host, HostPort: cfg.Network.Port, ContainerPort: 443}}
	}

	return stack.Stack{
		Name: Name,
		Containers: []stack.Container{
			{
				Name:  ids.MustContainerName("server"),
				Image: ids.MustContainerImage(image),
				Ports: ports,
				Volumes: []quadlet.Volume{
					{Source: caddyfile, Target: "/etc/caddy/Caddyfile", Options: []string{"ro"}},
					{Source: "caddy-data", Target: "/data"},
				},
				Service: quadlet.ServicePolicy{
					Restart:    "on-failure",
					RestartSec: ids.MustDuration("5s"),
				},
			},
		},
	}
}

// Generate composes the single container unit and the `caddy-data.volume`
// unit for Caddy's managed-certificate state; it emits no environment file
// since Caddy takes no secrets through the container engine's env path.
func (s *Service) Generate(ctx context.Context) (service.GeneratedFiles, error) {
	out := stack.Compose(buildStack(s.cfg), quadlet.Capabilities{SELinuxEnforcing: s.svcCtx.Capabilities.SELinuxEnforcing}, quadlet.Substitutions{DataDir: s.cfg.Paths.DataDir})
	if out.IsErr() {
		return service.GeneratedFiles{}, out.Error()
	}
	return service.FromStackFiles(out.UnwrapOr(stack.GeneratedFiles{})), nil
}

// Setup runs the five-step install pipeline. Its install plan lists no
// directories, so not even the directory holding the Caddyfile is created.
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

// backupPlan snapshots the data directory (minus backups/), which holds the
// Caddyfile unless caddyfilePath points elsewhere; a Caddyfile outside the
// data directory is not in the archive. Caddy's managed-certificate state
// lives in the caddy-data named volume, outside the data directory, and is
// not in the archive either.
func (s *Service) backupPlan() service.BackupPlan {
	compression := archive.Gzip
	if s.cfg.Backup.CompressionOrDefault() == "zstd" {
		compression = archive.Zstd
	}
	dir := s.cfg.Paths.DataDir
	collector := backup.FileCollector{
		Root:     ids.MustAbsolutePath(dir),
		Excludes: s.cfg.Backup.Exclude,
		SkipDirs: []string{"backups"},
	}
	return service.BackupPlan{
		ServiceName: s.Name(),
		BackupsDir:  s.backupsDir(),
		Compression: compression,
		Files:       &collector,
		TargetDir:   ids.MustAbsolutePath(dir),
	}
}

func (s *Service) backupsDir() ids.AbsolutePath {
	return ids.MustAbsolutePath(s.cfg.Paths.DataDir).Join("backups")
}

// ListBackups exposes caddy's backup listing, sorted newest-first, for the
// CLI's `backup list` surface.
func (s *Service) ListBackups() ([]backup.Info, error) {
	return service.ListBackups(s.backupsDir(), Name)
}

func (s *Service) Backup(ctx context.Context) (service.BackupResult, error) {
	return service.RunBackup(ctx, s.svcCtx, s.backupPlan())
}

func (s *Service) Restore(ctx context.Context, path ids.AbsolutePath) error {
	return service.RunRestore(ctx, s.svcCtx, s.backupPlan(), path)
}
