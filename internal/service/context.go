// Package service defines the uniform contract every managed application
// exposes and the per-invocation context propagated to it: no global
// state, everything a service needs arrives through one struct built once
// per CLI invocation.
package service

import (
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/logging"
	"github.com/aryonoco/divban/internal/system"
)

// Paths is a service's filesystem layout.
type Paths struct {
	DataDir    ids.AbsolutePath
	QuadletDir ids.AbsolutePath
	ConfigDir  ids.AbsolutePath
	HomeDir    ids.AbsolutePath
}

// User is the rootless POSIX identity every adapter call runs as.
type User struct {
	Name ids.Username
	UID  ids.UserId
	GID  ids.GroupId
}

// Options are the global CLI flags that change how every operation
// behaves, independent of which service is targeted.
type Options struct {
	DryRun  bool
	Verbose bool
	Force   bool
}

// Capabilities are host facts the generator and runtime need (SELinux
// relabeling today; room for more as the engine adapter grows).
type Capabilities struct {
	SELinuxEnforcing bool
}

// Context is propagated to every service operation. It is built once per CLI
// invocation (cmd/divban) and never mutated afterward; nothing in this
// package or internal/services reaches for ambient/global state instead of
// reading it from here.
type Context struct {
	Paths        Paths
	User         User
	Options      Options
	Capabilities Capabilities
	Logger       *logging.Logger

	Runner  system.Runner
	Systemd system.Systemd
	Secrets system.SecretStore
}

// NewContext builds a Context from its parts, wiring the Systemd and
// SecretStore adapters to the given Runner the way cmd/divban's command
// constructors do for every service. The adapters run as the invoking
// process's own identity; User records who that is expected to be (for
// directory ownership), it never triggers elevation.
func NewContext(paths Paths, user User, opts Options, caps Capabilities, logger *logging.Logger, runner system.Runner) Context {
	return Context{
		Paths:        paths,
		User:         user,
		Options:      opts,
		Capabilities: caps,
		Logger:       logger,
		Runner:       runner,
		Systemd:      system.Systemd{Runner: runner},
		Secrets:      system.SecretStore{Runner: runner},
	}
}
