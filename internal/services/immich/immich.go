// Package immich implements the service contract for immich, the
// multi-container photo management stack: redis, postgres, the immich
// server, and an optional machine-learning container, wired through
// internal/stack so dependency ordering, SELinux relabeling, and hardware
// acceleration all come from the shared composer.
package immich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aryonoco/divban/internal/archive"
	"github.com/aryonoco/divban/internal/backup"
	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/envfile"
	"github.com/aryonoco/divban/internal/errs"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/quadlet"
	"github.com/aryonoco/divban/internal/secretmgr"
	"github.com/aryonoco/divban/internal/service"
	"github.com/aryonoco/divban/internal/stack"
	"github.com/aryonoco/divban/internal/system"
)

// Name is this service's registration name in the CLI's <service> dispatch.
const Name = "immich"

const (
	defaultTag        = "v1.113.0"
	defaultRedisImage = "redis:7-alpine"
	defaultPGImage    = "ghcr.io/immich-app/postgres:16"
)

// MachineLearning is immich's optional ML container toggle and image.
type MachineLearning struct {
	Enabled bool   `toml:"enabled"`
	Image   string `toml:"image"`
}

// Containers carries per-component image overrides; any left empty use
// this build's default image for that component.
type Containers struct {
	Server          string          `toml:"server"`
	Postgres        string          `toml:"postgres"`
	Redis           string          `toml:"redis"`
	MachineLearning MachineLearning `toml:"machineLearning"`
}

// Database names the Postgres role and database immich connects to.
type Database struct {
	Username string `toml:"username"`
	Database string `toml:"database"`
}

// Config is immich's full TOML configuration: the common Base plus
// immich-specific database credentials and per-container image overrides.
type Config struct {
	config.Base
	Database   Database   `toml:"database"`
	Containers Containers `toml:"containers"`
}

// Service implements the service contract for immich.
type Service struct {
	cfg     Config
	svcCtx  service.Context
	runtime service.Runtime
}

// New builds an immich Service from an already-loaded, validated Config.
func New(cfg Config, svcCtx service.Context) (*Service, error) {
	order, err := stack.Order(buildStack(cfg, quadlet.Capabilities{}, substitutions(cfg)))
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

func substitutions(cfg Config) quadlet.Substitutions {
	return quadlet.Substitutions{
		DataDir:        cfg.Paths.DataDir,
		UploadLocation: orDefault(cfg.Paths.Upload, cfg.Paths.DataDir+"/upload"),
		DBDataLocation: orDefault(cfg.Paths.Postgres, cfg.Paths.DataDir+"/postgres"),
		DBUsername:     cfg.Database.Username,
		DBDatabaseName: cfg.Database.Database,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// buildStack is the pure function Generate and the constructor both call:
// a stack.Stack is fully determined by Config and host Capabilities, so
// calling it twice with the same inputs always yields the same output.
func buildStack(cfg Config, caps quadlet.Capabilities, subs quadlet.Substitutions) stack.Stack {
	transcoding := backendOrDefault(cfg.Hardware)
	ml := mlBackendOrDefault(cfg.Hardware)

	uploadDir := orDefault(cfg.Paths.Upload, cfg.Paths.DataDir+"/upload")
	pgDataDir := orDefault(cfg.Paths.Postgres, cfg.Paths.DataDir+"/postgres")

	redisImage := cfg.Containers.Redis
	if redisImage == "" {
		redisImage = defaultRedisImage
	}
	pgImage := cfg.Containers.Postgres
	if pgImage == "" {
		pgImage = defaultPGImage
	}
	serverImage := cfg.Containers.Server
	if serverImage == "" {
		serverImage = fmt.Sprintf("ghcr.io/immich-app/immich-server:%s", defaultTag)
	}

	containers := []stack.Container{
		{
			Name:  ids.MustContainerName("redis"),
			Image: ids.MustContainerImage(redisImage),
		},
		{
			Name:  ids.MustContainerName("postgres"),
			Image: ids.MustContainerImage(pgImage),
			Volumes: []quadlet.Volume{
				{Source: pgDataDir, Target: "/var/lib/postgresql/data"},
			},
			Environment: map[string]string{
				"POSTGRES_USER": cfg.Database.Username,
				"POSTGRES_DB":   cfg.Database.Database,
			},
			SecretEnvs: []quadlet.EnvSecret{
				{Name: secretmgr.FullName(Name, "db-password"), Target: "POSTGRES_PASSWORD"},
			},
		},
	}

	serverRequires := []string{"redis", "postgres"}
	var serverWants []string

	serverVolumes := []quadlet.Volume{
		{Source: uploadDir, Target: "/usr/src/app/upload"},
	}
	for _, lib := range cfg.ExternalLibraries {
		opts := []string{}
		if lib.ReadOnly {
			opts = append(opts, "ro")
		}
		serverVolumes = append(serverVolumes, quadlet.Volume{Source: lib.HostPath, Target: lib.ContainerPath, Options: opts})
	}

	transcodingEffect := quadlet.TranscodingHardware(transcoding)

	var ports []quadlet.Port
	if cfg.Network != nil {
		ports = append(ports, quadlet.Port{HostIP: cfg.Network.Host, HostPort: cfg.Network.Port, ContainerPort: 2283})
	}

	serverEnv := map[string]string{
		"DB_HOSTNAME":       "immich-postgres",
		"DB_USERNAME":       "${DB_USERNAME}",
		"DB_DATABASE_NAME":  "${DB_DATABASE_NAME}",
		"REDIS_HOSTNAME":    "immich-redis",
		"UPLOAD_LOCATION":   "${UPLOAD_LOCATION}",
	}
	for k, v := range transcodingEffect.Environment {
		serverEnv[k] = v
	}

	if cfg.Containers.MachineLearning.Enabled {
		serverWants = append(serverWants, "machine-learning")
	}

	containers = append(containers, stack.Container{
		Name:         ids.MustContainerName("server"),
		Image:        ids.MustContainerImage(serverImage),
		Requires:     serverRequires,
		Wants:        serverWants,
		Ports:        ports,
		Volumes:      serverVolumes,
		Environment:  serverEnv,
		SecretEnvs:   []quadlet.EnvSecret{{Name: secretmgr.FullName(Name, "db-password"), Target: "DB_PASSWORD"}},
		Devices:      transcodingEffect.Devices,
		SecurityOpts: transcodingEffect.SecurityOpts,
		Groups:       transcodingEffect.Groups,
		Service: quadlet.ServicePolicy{
			Restart:    "on-failure",
			RestartSec: ids.MustDuration("5s"),
		},
	})

	if cfg.Containers.MachineLearning.Enabled {
		mlImage := cfg.Containers.MachineLearning.Image
		mlEffect := quadlet.MLHardware(ml)
		if mlImage == "" {
			mlImage = fmt.Sprintf("ghcr.io/immich-app/immich-machine-learning:%s%s", defaultTag, mlEffect.ImageSuffix)
		}
		containers = append(containers, stack.Container{
			Name:    ids.MustContainerName("machine-learning"),
			Image:   ids.MustContainerImage(mlImage),
			Devices: mlEffect.Devices,
			Groups:  mlEffect.Groups,
			Volumes: mlEffect.Volumes,
			Environment: mergeEnv(map[string]string{
				"REDIS_HOSTNAME": "immich-redis",
			}, mlEffect.Environment),
			SecurityOpts: mlEffect.SecurityOpts,
		})
	}

	return stack.Stack{
		Name:       Name,
		Network:    &stack.Network{Internal: true},
		Containers: containers,
	}
}

func mergeEnv(base map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func backendOrDefault(hw *config.Hardware) quadlet.TranscodingBackend {
	if hw == nil || hw.Transcoding == "" {
		return quadlet.TranscodingDisabled
	}
	return quadlet.TranscodingBackend(hw.Transcoding)
}

func mlBackendOrDefault(hw *config.Hardware) quadlet.MLBackend {
	if hw == nil || hw.ML == "" {
		return quadlet.MLDisabled
	}
	return quadlet.MLBackend(hw.ML)
}

// Generate composes the full stack of quadlet/network/volume units plus
// the `immich.env` environment file.
func (s *Service) Generate(ctx context.Context) (service.GeneratedFiles, error) {
	stk := buildStack(s.cfg, quadlet.Capabilities{SELinuxEnforcing: s.svcCtx.Capabilities.SELinuxEnforcing}, substitutions(s.cfg))
	out := stack.Compose(stk, quadlet.Capabilities{SELinuxEnforcing: s.svcCtx.Capabilities.SELinuxEnforcing}, substitutions(s.cfg))
	if out.IsErr() {
		return service.GeneratedFiles{}, out.Error()
	}
	files := service.FromStackFiles(out.UnwrapOr(stack.GeneratedFiles{}))

	env := envfile.Render([]envfile.Group{
		{Name: "database", Vars: map[string]string{
			"DB_USERNAME":      s.cfg.Database.Username,
			"DB_DATABASE_NAME": s.cfg.Database.Database,
		}},
	})
	files.Environment = &service.Unit{Name: Name + ".env", Content: env}
	return files, nil
}

// directories returns the data, upload and postgres directories Generate's
// bind mounts use, so Setup's create-directories step can ensure them up
// front; external-library host paths are not included.
func (s *Service) directories() []ids.AbsolutePath {
	dirs := []ids.AbsolutePath{
		ids.MustAbsolutePath(s.cfg.Paths.DataDir),
		ids.MustAbsolutePath(orDefault(s.cfg.Paths.Upload, s.cfg.Paths.DataDir+"/upload")),
		ids.MustAbsolutePath(orDefault(s.cfg.Paths.Postgres, s.cfg.Paths.DataDir+"/postgres")),
	}
	return dirs
}

// Setup runs the five-step install pipeline: generate is already pure, so
// this step only needs to turn that output plus secrets/directories/units
// into an service.InstallPlan.
func (s *Service) Setup(ctx context.Context) error {
	files, err := s.Generate(ctx)
	if err != nil {
		return err
	}

	secrets, err := secretmgr.GenerateAll(Name, []secretmgr.Spec{{Name: "db-password"}})
	if err != nil {
		return err
	}

	fileMap := map[ids.AbsolutePath][]byte{}
	for _, u := range files.AllFiles() {
		fileMap[s.svcCtx.Paths.ConfigDir.Join(u.Name)] = []byte(u.Content)
	}

	plan := service.InstallPlan{
		ServiceName: s.Name(),
		Secrets:     secrets,
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

// dumpTimeout bounds pg_dumpall and psql; a cluster dump of a large photo
// library's metadata can legitimately run for minutes, but not forever.
const dumpTimeout = 30 * time.Minute

func (s *Service) backupsDir() ids.AbsolutePath {
	return ids.MustAbsolutePath(s.cfg.Paths.DataDir).Join("backups")
}

func (s *Service) backupPlan() service.BackupPlan {
	compression := archive.Gzip
	if s.cfg.Backup.CompressionOrDefault() == "zstd" {
		compression = archive.Zstd
	}
	runner := s.svcCtx.Runner
	logger := s.svcCtx.Logger
	dbUser := s.cfg.Database.Username
	dump := func(ctx context.Context) ([]byte, error) {
		res, err := runner.Run(ctx, system.RunOptions{
			Command: "podman",
			Args:    []string{"exec", "immich-postgres", "pg_dumpall", "--clean", "--if-exists", "-U", dbUser},
			Timeout: dumpTimeout,
		})
		if err != nil {
			return nil, errs.Wrap(errs.Backup, "BACKUP_FAILED", "pg_dumpall", err)
		}
		return []byte(res.Stdout), nil
	}
	restore := func(ctx context.Context, dump []byte) error {
		res, err := runner.Run(ctx, system.RunOptions{
			Command: "podman",
			Args:    []string{"exec", "-i", "immich-postgres", "psql", "-U", dbUser},
			Stdin:   dump,
			Timeout: dumpTimeout,
		})
		if err != nil {
			// psql exits non-zero for recoverable notices too; only stderr
			// actually reporting ERROR makes the restore fatal.
			if strings.Contains(res.Stderr, "ERROR") {
				return errs.Wrap(errs.Backup, "RESTORE_FAILED", "psql reported errors applying the dump", err)
			}
			logger.Warn(ctx, "psql exited non-zero without ERROR output, continuing", "stderr", res.Stderr)
		}
		return nil
	}
	return service.BackupPlan{
		ServiceName: s.Name(),
		BackupsDir:  s.backupsDir(),
		Compression: compression,
		Dump:        dump,
		Restore:     restore,
	}
}

func (s *Service) Backup(ctx context.Context) (service.BackupResult, error) {
	return service.RunBackup(ctx, s.svcCtx, s.backupPlan())
}

func (s *Service) Restore(ctx context.Context, path ids.AbsolutePath) error {
	return service.RunRestore(ctx, s.svcCtx, s.backupPlan(), path)
}

// ListBackups exposes immich's backup listing, sorted newest-first, for
// the CLI's `backup list` surface.
func (s *Service) ListBackups() ([]backup.Info, error) {
	return service.ListBackups(s.backupsDir(), Name)
}
