package orchestrator

import (
	"context"

	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/system"
)

// InstallState is threaded through the canonical five-step install
// pipeline (secrets -> generate -> create dirs -> write files -> enable
// services), accumulating what each step produced so later steps and
// rollback both have what they need.
type InstallState struct {
	ServiceName string

	Secrets map[string]string // name -> value, provided before the pipeline runs
	Store   system.SecretStore
	Sysd    system.Systemd

	DirectoriesToEnsure []ids.AbsolutePath
	DirUID, DirGID      int

	GeneratedFiles map[ids.AbsolutePath][]byte
	Units          []string // systemd unit names to enable, in start order
	StartUnits     bool     // also start each unit after enabling it

	CreatedSecrets []string
	CreatedDirs    []ids.AbsolutePath
	WrittenFiles   []system.WrittenFile
	EnabledUnits   system.EnableResult
}

// SecretsStep creates any podman secrets the service's quadlets reference
// that do not already exist.
func SecretsStep() Step[InstallState] {
	return Step[InstallState]{
		Name: "create secrets",
		Acquire: func(ctx context.Context, s InstallState) (InstallState, func(context.Context) error, error) {
			created, err := s.Store.EnsureServiceSecretsTracked(ctx, s.Secrets)
			s.CreatedSecrets = created
			if err != nil {
				// Undo this step's own partial progress: the release stack
				// only covers steps that returned success.
				_ = s.Store.DeletePodmanSecrets(ctx, created)
				return s, nil, err
			}
			release := func(ctx context.Context) error {
				if len(created) == 0 {
					return nil
				}
				return s.Store.DeletePodmanSecrets(ctx, created)
			}
			return s, release, nil
		},
	}
}

// GenerateStep is a no-op acquire: quadlet/stack generation is pure and
// already computed into s.GeneratedFiles before the pipeline runs. It
// exists as its own step so its completion is logged and traced like every
// other stage, matching the pipeline's numbered step output.
func GenerateStep() Step[InstallState] {
	return Step[InstallState]{
		Name: "generate quadlet units",
		Acquire: func(ctx context.Context, s InstallState) (InstallState, func(context.Context) error, error) {
			return s, nil, nil
		},
	}
}

// CreateDirsStep ensures every directory the service's bind mounts need.
func CreateDirsStep() Step[InstallState] {
	return Step[InstallState]{
		Name: "create directories",
		Acquire: func(ctx context.Context, s InstallState) (InstallState, func(context.Context) error, error) {
			created, err := system.EnsureDirectoriesTracked(s.DirectoriesToEnsure, s.DirUID, s.DirGID)
			s.CreatedDirs = created
			if err != nil {
				_ = system.RemoveDirectoriesReverse(created)
				return s, nil, err
			}
			release := func(ctx context.Context) error {
				return system.RemoveDirectoriesReverse(created)
			}
			return s, release, nil
		},
	}
}

// WriteFilesStep writes every generated quadlet unit (and any other
// service config file) to disk, backing up anything it overwrites.
func WriteFilesStep() Step[InstallState] {
	return Step[InstallState]{
		Name: "write generated files",
		Acquire: func(ctx context.Context, s InstallState) (InstallState, func(context.Context) error, error) {
			written, err := system.WriteGeneratedFilesTracked(s.GeneratedFiles)
			s.WrittenFiles = written
			if err != nil {
				_ = system.RollbackFileWrites(written)
				return s, nil, err
			}
			release := func(ctx context.Context) error {
				return system.RollbackFileWrites(written)
			}
			return s, release, nil
		},
	}
}

// EnableServicesStep reloads the systemd manager, enables every unit, and
// starts each one when the plan asks for it.
func EnableServicesStep() Step[InstallState] {
	return Step[InstallState]{
		Name: "enable services",
		Acquire: func(ctx context.Context, s InstallState) (InstallState, func(context.Context) error, error) {
			result, err := system.ReloadAndEnableServicesTracked(ctx, s.Sysd, s.Units, s.StartUnits)
			s.EnabledUnits = result
			if err != nil {
				_ = system.RollbackServiceChanges(ctx, s.Sysd, result)
				return s, nil, err
			}
			sysd := s.Sysd
			release := func(ctx context.Context) error {
				return system.RollbackServiceChanges(ctx, sysd, result)
			}
			return s, release, nil
		},
	}
}

// InstallPipeline builds the canonical five-step install pipeline every
// service's `setup` operation runs.
func InstallPipeline() []Step[InstallState] {
	return []Step[InstallState]{
		SecretsStep(),
		GenerateStep(),
		CreateDirsStep(),
		WriteFilesStep(),
		EnableServicesStep(),
	}
}
