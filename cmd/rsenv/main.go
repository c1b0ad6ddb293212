// Command rsenv wires the library managers together behind a minimal
// surface. Per spec §1's Non-goals, the full CLI frontend and its flag
// grammar are out of scope for this repository; this binary exists only to
// prove the managers compose, not to be a complete command-line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aureuma/rsenv/internal/capability"
	"github.com/aureuma/rsenv/internal/config"
	"github.com/aureuma/rsenv/internal/cryptmgr"
	"github.com/aureuma/rsenv/internal/execx"
	"github.com/aureuma/rsenv/internal/fsx"
	"github.com/aureuma/rsenv/internal/hostid"
	"github.com/aureuma/rsenv/internal/pathutil"
	"github.com/aureuma/rsenv/internal/render"
	"github.com/aureuma/rsenv/internal/swapmgr"
	"github.com/aureuma/rsenv/internal/vaultmgr"
)

// sysexits, per spec §6.
const (
	exitOK      = 0
	exitUsage   = 64
	exitSoft    = 70
	exitNoVault = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: rsenv <info|swap status|sops status [--check]|config edit>")
		return exitUsage
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSoft
	}
	project := filepath.Clean(cwd)

	fs := fsx.Real{}
	localConfigPath := filepath.Join(project, ".rsenv.toml")
	if v, ok, _ := vaultmgr.NewManager(fs, "").Discover(project); ok {
		localConfigPath = filepath.Join(v.Path, ".rsenv.toml")
	}
	global, _ := os.ReadFile(filepath.Join(os.Getenv("HOME"), ".config", "rsenv", "rsenv.toml"))
	local, _ := os.ReadFile(localConfigPath)
	resolved, err := config.Load(global, local, os.Environ())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSoft
	}

	vaultBase, err := pathutil.ExpandHome(resolved.Config.VaultBaseDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSoft
	}
	vault := vaultmgr.NewManager(fs, vaultBase)

	switch args[0] {
	case "info":
		return cmdInfo(vault, project)
	case "swap":
		return cmdSwap(vault, project, args[1:])
	case "sops":
		return cmdSops(vault, resolved.Config.Sops, project, args[1:])
	case "config":
		return cmdConfig(resolved.Config, localConfigPath, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "rsenv: unknown command %q\n", args[0])
		return exitUsage
	}
}

func cmdInfo(vault *vaultmgr.Manager, project string) int {
	v, ok, err := vault.Discover(project)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSoft
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "rsenv: no vault for", project)
		return exitNoVault
	}
	fmt.Printf("project: %s\nvault:   %s\nid:      %s\n", project, v.Path, v.Sentinel)
	return exitOK
}

func cmdSwap(vault *vaultmgr.Manager, project string, args []string) int {
	if len(args) < 1 || args[0] != "status" {
		fmt.Fprintln(os.Stderr, "usage: rsenv swap status")
		return exitUsage
	}
	mgr := swapmgr.NewManager(fsx.Real{}, hostid.OS{}, vault)
	files, err := mgr.Status(project)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSoft
	}
	rows := make([][]string, len(files))
	for i, f := range files {
		state, host := "out", ""
		if f.State == swapmgr.StateIn {
			state, host = "in", f.Host
		}
		rows[i] = []string{f.Rel, state, host}
	}
	for _, line := range render.Table([]string{"FILE", "STATE", "HOST"}, rows, 2) {
		fmt.Println(line)
	}
	return exitOK
}

func cmdSops(vault *vaultmgr.Manager, sopsCfg config.Sops, project string, args []string) int {
	if len(args) < 1 || args[0] != "status" {
		fmt.Fprintln(os.Stderr, "usage: rsenv sops status [--check]")
		return exitUsage
	}
	check := len(args) > 1 && args[1] == "--check"

	mgr := &cryptmgr.Manager{
		FS:  fsx.Real{},
		Cmd: execx.Real{},
		Config: cryptmgr.Config{
			GPGKey:            sopsCfg.GPGKey,
			AgeKey:            sopsCfg.AgeKey,
			FileExtensionsEnc: sopsCfg.FileExtensionsEnc,
			FileNamesEnc:      sopsCfg.FileNamesEnc,
		},
	}
	report, err := mgr.Status(project)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSoft
	}
	if check {
		if report.NeedsEncryption() {
			return 1
		}
		return exitOK
	}
	rows := make([][]string, 0, len(report.Plaintexts)+len(report.Orphans))
	for _, p := range report.Plaintexts {
		rows = append(rows, []string{p.Path, string(p.Status)})
	}
	for _, o := range report.Orphans {
		rows = append(rows, []string{o, "orphaned"})
	}
	for _, line := range render.Table([]string{"PATH", "STATUS"}, rows, 2) {
		fmt.Println(line)
	}
	return exitOK
}

// cmdConfig implements "config edit", opening the vault-local config file
// (creating it with the currently effective settings if absent) in the
// configured editor. When the project has no vault, the .rsenv.toml in the
// project directory is used instead. This is the one interactive flow
// cmd/rsenv wires up; it refuses to run when stdout is not a terminal.
func cmdConfig(cfg config.Config, localConfigPath string, args []string) int {
	if len(args) < 1 || args[0] != "edit" {
		fmt.Fprintln(os.Stderr, "usage: rsenv config edit")
		return exitUsage
	}
	if _, err := os.Stat(localConfigPath); err != nil {
		data, encErr := config.Encode(cfg)
		if encErr != nil {
			fmt.Fprintln(os.Stderr, encErr)
			return exitSoft
		}
		if err := (fsx.Real{}).WriteFileAtomic(localConfigPath, data); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitSoft
		}
	}
	editor := capability.RealEditor{Cmd: execx.Real{}, Command: cfg.Editor}
	if err := editor.Edit(context.Background(), localConfigPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSoft
	}
	return exitOK
}
