package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/aryonoco/divban/internal/backup"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/service"
)

// runValidate decodes and checks a service's config file via decode,
// without ever constructing the service itself, so a malformed config
// never reaches a constructor that assumes it is already valid.
func runValidate(configPath string, decode func(ids.AbsolutePath) error) error {
	if err := decode(ids.MustAbsolutePath(configPath)); err != nil {
		return err
	}
	fmt.Println("configuration is valid")
	return nil
}

// runGenerate writes every file Generate produces to outDir (the
// service's configured quadlet directory, or an override), printing each
// file's name as it goes.
func runGenerate(ctx context.Context, svc service.Service, outDir ids.AbsolutePath) error {
	files, err := svc.Generate(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir.String(), 0o755); err != nil {
		return err
	}
	for _, u := range files.AllFiles() {
		path := outDir.Join(u.Name)
		if err := os.WriteFile(path.String(), []byte(u.Content), 0o644); err != nil {
			return err
		}
		fmt.Println(path.String())
	}
	return nil
}

func runSetup(ctx context.Context, svc service.Service) error {
	if err := svc.Setup(ctx); err != nil {
		return err
	}
	fmt.Println("setup complete")
	return nil
}

func runStart(ctx context.Context, svc service.Service) error {
	if err := svc.Start(ctx); err != nil {
		return err
	}
	fmt.Println("started")
	return nil
}

func runStop(ctx context.Context, svc service.Service) error {
	if err := svc.Stop(ctx); err != nil {
		return err
	}
	fmt.Println("stopped")
	return nil
}

func runRestart(ctx context.Context, svc service.Service) error {
	if err := svc.Restart(ctx); err != nil {
		return err
	}
	fmt.Println("restarted")
	return nil
}

func runStatus(ctx context.Context, svc service.Service, format string) error {
	report, err := svc.Status(ctx)
	if err != nil {
		return err
	}
	if format == "json" {
		return json.NewEncoder(os.Stdout).Encode(report)
	}
	state := "running"
	if !report.Running {
		state = "stopped"
	}
	fmt.Printf("%s: %s\n", svc.Name(), state)
	for _, c := range report.Containers {
		fmt.Printf("  %-30s %s\n", c.Name, c.Status)
	}
	return nil
}

func runLogs(ctx context.Context, svc service.Service, opts service.LogOptions) error {
	return svc.Logs(ctx, opts)
}

func runBackup(ctx context.Context, svc service.Service, format string) error {
	result, err := svc.Backup(ctx)
	if err != nil {
		return err
	}
	if format == "json" {
		return json.NewEncoder(os.Stdout).Encode(result)
	}
	fmt.Printf("backup written: %s (%s)\n", result.Path, humanize.Bytes(uint64(result.SizeBytes)))
	return nil
}

// runRestore overwrites the service's data directory with the archive at
// path, so it asks for confirmation on an interactive terminal unless
// force is set.
func runRestore(ctx context.Context, svc service.Service, path string, force bool) error {
	if !force && !confirm(fmt.Sprintf("restore %s will overwrite %s's current data; continue?", path, svc.Name())) {
		return errors.New("restore aborted")
	}
	if err := svc.Restore(ctx, ids.MustAbsolutePath(path)); err != nil {
		return err
	}
	fmt.Println("restore complete")
	return nil
}

// confirm prompts on stdin/stdout when stdin is an interactive terminal,
// and otherwise refuses silently rather than blocking on a read that will
// never produce input (a script piping divban would hang forever
// waiting on a prompt it can never answer).
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runBackupList(infos []backup.Info, err error, format string) error {
	if err != nil {
		return err
	}
	if format == "json" {
		return json.NewEncoder(os.Stdout).Encode(infos)
	}
	for _, i := range infos {
		fmt.Printf("%-40s %10s  %s\n", i.Name, humanize.Bytes(uint64(i.Size)), i.ModTime.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

// runDoctor runs validate plus a dry-run generate and reports drift
// between on-disk quadlets and what generate would produce now. Read-only:
// it never writes anything.
func runDoctor(ctx context.Context, svc service.Service, configPath, quadletDir string) error {
	if err := svc.Validate(ctx, ids.MustAbsolutePath(configPath)); err != nil {
		fmt.Printf("config: FAIL (%v)\n", err)
		return err
	}
	fmt.Println("config: OK")

	files, err := svc.Generate(ctx)
	if err != nil {
		fmt.Printf("generate: FAIL (%v)\n", err)
		return err
	}

	drift := 0
	for _, u := range files.AllFiles() {
		onDisk, readErr := os.ReadFile(ids.MustAbsolutePath(quadletDir).Join(u.Name).String())
		switch {
		case readErr != nil:
			fmt.Printf("  %s: missing on disk\n", u.Name)
			drift++
		case string(onDisk) != u.Content:
			fmt.Printf("  %s: drifted from generate\n", u.Name)
			drift++
		}
	}
	if drift == 0 {
		fmt.Println("generate: up to date")
	} else {
		fmt.Printf("generate: %d file(s) drifted\n", drift)
	}
	return nil
}
