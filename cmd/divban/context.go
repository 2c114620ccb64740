package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strconv"

	"github.com/aryonoco/divban/internal/errs"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/logging"
	"github.com/aryonoco/divban/internal/service"
	"github.com/aryonoco/divban/internal/system"
)

// Context is bound to every command's Run method. It owns the CLI's
// global flags and builds a fresh service.Context per invocation rather
// than holding one in a package-level global.
type Context struct {
	Verbose  bool
	DryRun   bool
	Force    bool
	LogLevel string
	Format   string
	BaseDir  string

	Logger *logging.Logger
	Runner system.Runner
}

// ServiceContext builds the per-invocation service.Context for one
// service: its data directory under Context.BaseDir, and its quadlet and
// config directories under ~/.config/containers/systemd.
func (c *Context) ServiceContext(serviceName string) (service.Context, error) {
	u, err := user.Current()
	if err != nil {
		return service.Context{}, errs.Wrap(errs.System, "USER_LOOKUP_FAILED", "resolve current user", err)
	}
	uid, err := strconv.ParseInt(u.Uid, 10, 64)
	if err != nil {
		return service.Context{}, errs.Wrap(errs.Config, "INVALID_UID", "parse current uid", err)
	}
	gid, err := strconv.ParseInt(u.Gid, 10, 64)
	if err != nil {
		return service.Context{}, errs.Wrap(errs.Config, "INVALID_GID", "parse current gid", err)
	}
	userID, err := ids.ParseUserId(uid)
	if err != nil {
		return service.Context{}, err
	}
	groupID, err := ids.ParseGroupId(gid)
	if err != nil {
		return service.Context{}, err
	}
	username, err := ids.ParseUsername(u.Username)
	if err != nil {
		return service.Context{}, err
	}

	base := c.BaseDir
	if base == "" {
		base = fmt.Sprintf("/home/%s/.local/share/divban", u.Username)
	}

	paths := service.Paths{
		DataDir:    ids.MustAbsolutePath(base + "/" + serviceName),
		QuadletDir: ids.MustAbsolutePath(u.HomeDir + "/.config/containers/systemd"),
		ConfigDir:  ids.MustAbsolutePath(u.HomeDir + "/.config/containers/systemd"),
		HomeDir:    ids.MustAbsolutePath(u.HomeDir),
	}

	return service.NewContext(
		paths,
		service.User{Name: username, UID: userID, GID: groupID},
		service.Options{DryRun: c.DryRun, Verbose: c.Verbose, Force: c.Force},
		service.Capabilities{SELinuxEnforcing: selinuxEnforcing()},
		c.Logger,
		c.Runner,
	), nil
}

// ctx returns the background context every command's Run method operates
// under; it carries no deadline and is never cancelled.
func (c *Context) ctx() context.Context { return context.Background() }

// selinuxEnforcing reports whether the host is running SELinux in
// enforcing mode, read from /sys/fs/selinux/enforce the way a quadlet
// generator that needs to decide on `:z`/`:Z` suffixes would probe it.
func selinuxEnforcing() bool {
	b, err := os.ReadFile("/sys/fs/selinux/enforce")
	if err != nil {
		return false
	}
	return len(b) > 0 && b[0] == '1'
}
