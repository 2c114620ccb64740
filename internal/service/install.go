package service

import (
	"context"

	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/orchestrator"
	"github.com/aryonoco/divban/internal/system"
)

// InstallPlan is everything a concrete service's Setup needs to hand to
// the shared orchestrator pipeline: the generated files to write, the
// directories they depend on, the secrets they reference, and the unit
// names to enable (in start order).
type InstallPlan struct {
	ServiceName ids.ServiceName
	Secrets     map[string]string
	Directories []ids.AbsolutePath
	Files       map[ids.AbsolutePath][]byte
	Units       []string
}

// RunInstall executes the canonical five-step install pipeline for
// plan against ctx, honoring Options.DryRun by skipping straight to success
// after logging every step it would have taken instead of writing anything.
func RunInstall(ctx context.Context, svcCtx Context, plan InstallPlan) error {
	if svcCtx.Options.DryRun {
		return runDryRun(ctx, svcCtx, plan)
	}

	initial := orchestrator.InstallState{
		ServiceName:         string(plan.ServiceName),
		Secrets:             plan.Secrets,
		Store:               svcCtx.Secrets,
		Sysd:                svcCtx.Systemd,
		DirectoriesToEnsure: plan.Directories,
		DirUID:              int(svcCtx.User.UID),
		DirGID:              int(svcCtx.User.GID),
		GeneratedFiles:      plan.Files,
		Units:               plan.Units,
		StartUnits:          true,
	}

	pipeline := orchestrator.Pipeline[orchestrator.InstallState]{
		Steps:  orchestrator.InstallPipeline(),
		Logger: svcCtx.Logger,
	}

	final, _, err := pipeline.Execute(ctx, initial)
	if err != nil {
		return err
	}

	system.CleanupFileBackups(final.WrittenFiles)
	return nil
}

func runDryRun(ctx context.Context, svcCtx Context, plan InstallPlan) error {
	steps := orchestrator.InstallPipeline()
	for i, step := range steps {
		svcCtx.Logger.Step(ctx, i+1, len(steps), "dry-run: "+step.Name)
	}
	for name := range plan.Secrets {
		svcCtx.Logger.Info(ctx, "dry-run: would ensure secret", "name", name)
	}
	for _, dir := range plan.Directories {
		svcCtx.Logger.Info(ctx, "dry-run: would ensure directory", "path", dir.String())
	}
	for path := range plan.Files {
		svcCtx.Logger.Info(ctx, "dry-run: would write file", "path", path.String())
	}
	for _, unit := range plan.Units {
		svcCtx.Logger.Info(ctx, "dry-run: would enable and start unit", "unit", unit)
	}
	svcCtx.Logger.Success(ctx, "dry-run complete, no changes made")
	return nil
}
