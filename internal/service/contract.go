package service

import (
	"context"

	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/stack"
)

// GeneratedFiles is the generate operation's output: the composer's
// partitioned file set plus any non-quadlet files (environment file, other
// per-service config) a concrete service adds.
type GeneratedFiles struct {
	Containers  []Unit
	Networks    []Unit
	Volumes     []Unit
	Environment *Unit // the `<service>.env` file, when the service has one
	Other       []Unit
}

// Unit is one generated text file's name (relative to ConfigDir) and
// content; an alias of quadlet.Unit's shape kept local so this package
// doesn't need to import internal/quadlet for such a small type.
type Unit struct {
	Name    string
	Content string
}

// FromStackFiles adapts a stack.GeneratedFiles into a service GeneratedFiles,
// the conversion every concrete service's Generate performs after calling
// stack.Compose.
func FromStackFiles(f stack.GeneratedFiles) GeneratedFiles {
	out := GeneratedFiles{}
	for _, u := range f.Containers {
		out.Containers = append(out.Containers, Unit{Name: u.Name, Content: u.Content})
	}
	for _, u := range f.Networks {
		out.Networks = append(out.Networks, Unit{Name: u.Name, Content: u.Content})
	}
	for _, u := range f.Volumes {
		out.Volumes = append(out.Volumes, Unit{Name: u.Name, Content: u.Content})
	}
	return out
}

// AllFiles flattens every generated unit, for callers (setup, the `doctor`
// diagnostic) that only care about the full write set.
func (g GeneratedFiles) AllFiles() []Unit {
	all := make([]Unit, 0, len(g.Containers)+len(g.Networks)+len(g.Volumes)+len(g.Other)+1)
	all = append(all, g.Containers...)
	all = append(all, g.Networks...)
	all = append(all, g.Volumes...)
	if g.Environment != nil {
		all = append(all, *g.Environment)
	}
	all = append(all, g.Other...)
	return all
}

// ContainerStatus is one container's aggregated systemd unit state.
type ContainerStatus struct {
	Name   string
	Status string // "running", "stopped", "failed", "unknown"
}

// StatusReport is the `status` operation's output.
type StatusReport struct {
	Running    bool
	Containers []ContainerStatus
}

// LogOptions is the `logs` operation's input.
type LogOptions struct {
	Follow    bool
	Lines     int
	Container string // optional: restrict to one container's unit
}

// BackupResult is the `backup` operation's output.
type BackupResult struct {
	Path      ids.AbsolutePath
	SizeBytes int64
}

// Service is the uniform operation set every managed application exposes.
// Every operation consumes the Context it was constructed with and
// returns a divban *errs.Error on failure.
type Service interface {
	Name() ids.ServiceName

	// Validate decodes the config file at configPath and checks it,
	// performing no side effects.
	Validate(ctx context.Context, configPath ids.AbsolutePath) error

	// Generate is pure and deterministic given the service's already-loaded
	// config and Context.Capabilities.
	Generate(ctx context.Context) (GeneratedFiles, error)

	// Setup runs the five-step install pipeline.
	Setup(ctx context.Context) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error

	Status(ctx context.Context) (StatusReport, error)
	Logs(ctx context.Context, opts LogOptions) error

	Backup(ctx context.Context) (BackupResult, error)
	Restore(ctx context.Context, path ids.AbsolutePath) error
}
