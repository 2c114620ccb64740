package system

import "context"

// EnableResult records what ReloadAndEnableServicesTracked actually did, the
// exact set RollbackServiceChanges needs to undo it.
type EnableResult struct {
	Enabled []string
	Started []string
}

// ReloadAndEnableServicesTracked reloads the systemd manager once (so newly
// written quadlets are picked up) and then enables every named unit,
// starting each one as well when start is true. It returns the subset it
// actually enabled and started, so a failure partway through leaves rollback
// exactly what it needs to undo.
func ReloadAndEnableServicesTracked(ctx context.Context, sysd Systemd, units []string, start bool) (EnableResult, error) {
	var result EnableResult
	if err := sysd.DaemonReload(ctx); err != nil {
		return result, err
	}
	for _, u := range units {
		if err := sysd.EnableService(ctx, u); err != nil {
			return result, err
		}
		result.Enabled = append(result.Enabled, u)
		if !start {
			continue
		}
		if err := sysd.StartService(ctx, u); err != nil {
			return result, err
		}
		result.Started = append(result.Started, u)
	}
	return result, nil
}

// RollbackServiceChanges stops every started unit in reverse order, then
// disables every enabled unit in reverse order, best effort: it keeps going
// even if one unit fails so the rest of the rollback is still attempted,
// returning the first error seen.
func RollbackServiceChanges(ctx context.Context, sysd Systemd, result EnableResult) error {
	var firstErr error
	for i := len(result.Started) - 1; i >= 0; i-- {
		if err := sysd.StopService(ctx, result.Started[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for i := len(result.Enabled) - 1; i >= 0; i-- {
		if err := sysd.DisableService(ctx, result.Enabled[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
