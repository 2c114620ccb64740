package system

import (
	"context"
	"fmt"

	"github.com/aryonoco/divban/internal/errs"
)

// Systemd drives the invoking user's own systemd instance
// (`systemctl --user`) the way quadlets require rootless containers to be
// managed; the process must already run as that user, elevation is never
// attempted.
type Systemd struct {
	Runner Runner
}

func (s Systemd) run(ctx context.Context, args ...string) (RunResult, error) {
	return s.Runner.Run(ctx, RunOptions{
		Command: "systemctl",
		Args:    append([]string{"--user"}, args...),
		Timeout: DefaultTimeout,
	})
}

// DaemonReload re-reads unit files, required after any quadlet is written,
// changed, or removed before the corresponding .service can be started.
func (s Systemd) DaemonReload(ctx context.Context) error {
	_, err := s.run(ctx, "daemon-reload")
	return wrapUnitErr(err, "daemon-reload")
}

func (s Systemd) EnableService(ctx context.Context, unit string) error {
	_, err := s.run(ctx, "enable", unit)
	return wrapUnitErr(err, unit)
}

func (s Systemd) DisableService(ctx context.Context, unit string) error {
	_, err := s.run(ctx, "disable", unit)
	return wrapUnitErr(err, unit)
}

func (s Systemd) StartService(ctx context.Context, unit string) error {
	_, err := s.run(ctx, "start", unit)
	return wrapUnitErr(err, unit)
}

func (s Systemd) StopService(ctx context.Context, unit string) error {
	_, err := s.run(ctx, "stop", unit)
	return wrapUnitErr(err, unit)
}

func (s Systemd) RestartService(ctx context.Context, unit string) error {
	_, err := s.run(ctx, "restart", unit)
	return wrapUnitErr(err, unit)
}

// UnitStatus is systemctl's per-unit ActiveState/SubState pair.
type UnitStatus struct {
	Unit        string
	ActiveState string
	SubState    string
}

// StatusService reports a unit's ActiveState/SubState through `systemctl
// show`, which exits zero for an inactive unit, so a stopped unit is a
// normal result rather than an adapter error.
func (s Systemd) StatusService(ctx context.Context, unit string) (UnitStatus, error) {
	active, err := s.run(ctx, "show", unit, "--property=ActiveState", "--value")
	if err != nil {
		return UnitStatus{}, wrapUnitErr(err, unit)
	}
	sub, err := s.run(ctx, "show", unit, "--property=SubState", "--value")
	if err != nil {
		return UnitStatus{}, wrapUnitErr(err, unit)
	}
	return UnitStatus{
		Unit:        unit,
		ActiveState: trimNewline(active.Stdout),
		SubState:    trimNewline(sub.Stdout),
	}, nil
}

// JournalCtl tails a unit's journal, the same way `divban <service> logs`
// surfaces container output (quadlet containers always log to journald,
// internal/quadlet.buildContainerSection sets LogDriver=journald). With
// follow the output streams directly to the terminal until interrupted;
// without it the captured lines are returned.
func (s Systemd) JournalCtl(ctx context.Context, unit string, lines int, follow bool) (string, error) {
	args := []string{"--user", "-u", unit, fmt.Sprintf("-n%d", lines)}
	if follow {
		args = append(args, "-f")
	}
	opts := RunOptions{Command: "journalctl", Args: args, Stream: follow}
	if !follow {
		opts.Timeout = DefaultTimeout
	}
	out, err := s.Runner.Run(ctx, opts)
	if err != nil {
		return "", errs.Wrap(errs.System, "JOURNAL_READ_FAILED", fmt.Sprintf("journalctl -u %s", unit), err)
	}
	return out.Stdout, nil
}

func wrapUnitErr(err error, unit string) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(errs.System, "SYSTEMD_COMMAND_FAILED", fmt.Sprintf("systemctl --user on %s", unit), err)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
