package service

import (
	"context"
	"fmt"

	"github.com/aryonoco/divban/internal/errs"
)

// Runtime implements the shared half of a service's lifecycle operations
// (start/stop/restart/status/logs): translating a stack's container order
// into systemd unit names and driving the Context's Systemd adapter. Every
// concrete service embeds a Runtime built from its own stack.Order output
// so the translation logic lives in exactly one place.
type Runtime struct {
	StackName string
	// Units is every container's systemd unit name ("<stack>-<name>.service"),
	// in start order; Stop reverses it.
	Units []string
	Ctx   Context
}

func unitName(stackName, container string) string {
	return fmt.Sprintf("%s-%s.service", stackName, container)
}

// UnitNames builds the ordered systemd unit name list from a stack's
// container order, the form both Runtime and the install pipeline's
// EnableServicesStep consume.
func UnitNames(stackName string, order []string) []string {
	units := make([]string, len(order))
	for i, name := range order {
		units[i] = unitName(stackName, name)
	}
	return units
}

// Start enables no units (that's setup's job) but starts every unit in
// order, honoring dry-run by only logging what would happen.
func (r Runtime) Start(ctx context.Context) error {
	if r.Ctx.Options.DryRun {
		r.logDryRun(ctx, "start", r.Units)
		return nil
	}
	for _, u := range r.Units {
		r.Ctx.Logger.Info(ctx, "starting unit", "unit", u)
		if err := r.Ctx.Systemd.StartService(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops every unit in reverse of start order.
func (r Runtime) Stop(ctx context.Context) error {
	reversed := reverse(r.Units)
	if r.Ctx.Options.DryRun {
		r.logDryRun(ctx, "stop", reversed)
		return nil
	}
	for _, u := range reversed {
		r.Ctx.Logger.Info(ctx, "stopping unit", "unit", u)
		if err := r.Ctx.Systemd.StopService(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// Restart stops in reverse order then starts in forward order, rather than
// relying on systemctl restart across a multi-container stack, so
// dependency ordering is respected the same way setup/start/stop are.
func (r Runtime) Restart(ctx context.Context) error {
	if err := r.Stop(ctx); err != nil {
		return err
	}
	return r.Start(ctx)
}

// Status aggregates every unit's ActiveState into one ContainerStatus.
func (r Runtime) Status(ctx context.Context) (StatusReport, error) {
	report := StatusReport{Running: true}
	for _, u := range r.Units {
		st, err := r.Ctx.Systemd.StatusService(ctx, u)
		if err != nil {
			return report, err
		}
		status := mapActiveState(st.ActiveState)
		if status != "running" {
			report.Running = false
		}
		report.Containers = append(report.Containers, ContainerStatus{Name: u, Status: status})
	}
	return report, nil
}

func mapActiveState(state string) string {
	switch state {
	case "active":
		return "running"
	case "inactive":
		return "stopped"
	case "failed":
		return "failed"
	default:
		return "unknown"
	}
}

// Logs streams (or dumps, without Follow) one unit's journal: the unit
// named by opts.Container if set, otherwise the first unit in start order.
func (r Runtime) Logs(ctx context.Context, opts LogOptions) error {
	unit := r.Units[0]
	if opts.Container != "" {
		unit = unitName(r.StackName, opts.Container)
	}
	lines := opts.Lines
	if lines <= 0 {
		lines = 100
	}
	out, err := r.Ctx.Systemd.JournalCtl(ctx, unit, lines, opts.Follow)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func (r Runtime) logDryRun(ctx context.Context, verb string, units []string) {
	for _, u := range units {
		r.Ctx.Logger.Info(ctx, "dry-run: would "+verb+" unit", "unit", u)
	}
}

func reverse(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// RequireUnits is a small guard constructors call so a caller never
// accidentally builds a Runtime against zero units (an empty stack is a
// config error, not silently a no-op runtime).
func RequireUnits(units []string) error {
	if len(units) == 0 {
		return errs.New(errs.Config, "EMPTY_STACK", "stack has no containers to operate on")
	}
	return nil
}
