package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/irgordon/ak/api/internal/config"
	"github.com/irgordon/ak/api/internal/core/domain"
)

type checkStatus string

const (
	statusPass checkStatus = "pass"
	statusWarn checkStatus = "warn"
	statusFail checkStatus = "fail"
)

type checkResult struct {
	Name    string      `json:"name"`
	Status  checkStatus `json:"status"`
	Message string      `json:"message"`
}

// doctorExitFunc can be overridden in tests.
var doctorExitFunc = os.Exit

func newDoctorCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the vault's configuration and on-disk state",
		Long: `Runs a series of checks on the vault and reports issues.

The doctor command checks:
  - Config directory permissions
  - Encryption backend availability
  - Passphrase presence for non-interactive use
  - The default profile
  - Profiles with a stale plaintext copy next to the encrypted artifact
  - Plaintext contents readable by other users

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runChecks(cmd.Context(), a.cfg, a.enc, a.store)
			if err := printResults(cmd.OutOrStdout(), results, jsonOutput); err != nil {
				return err
			}
			if code := exitCode(results); code != 0 {
				doctorExitFunc(code)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func runChecks(ctx context.Context, cfg *config.Config, enc domain.Encryptor, store domain.ProfileStore) []checkResult {
	var results []checkResult
	add := func(name string, s checkStatus, format string, args ...any) {
		results = append(results, checkResult{Name: name, Status: s, Message: fmt.Sprintf(format, args...)})
	}

	// --- Check 1: Config directory permissions ---
	if info, err := os.Stat(cfg.ConfigDir); err != nil {
		add("config_dir", statusFail, "cannot stat %s: %v", cfg.ConfigDir, err)
	} else if perm := info.Mode().Perm(); perm&0o077 != 0 {
		add("config_dir", statusWarn, "%s is mode %o, expected %o", cfg.ConfigDir, perm, config.DirMode)
	} else {
		add("config_dir", statusPass, "%s is private", cfg.ConfigDir)
	}

	// --- Check 2: Encryption backend ---
	switch {
	case enc.Available():
		add("encryption", statusPass, "%s backend is available", enc.Name())
	case cfg.ForcePlain:
		add("encryption", statusWarn, "encryption disabled by AK_DISABLE_GPG, keys are stored in plaintext")
	default:
		add("encryption", statusWarn, "%s backend unavailable, keys are stored in plaintext", enc.Name())
	}

	// --- Check 3: Passphrase ---
	if enc.Available() && enc.Name() == config.BackendGPG && cfg.PresetPassphrase == "" {
		add("passphrase", statusWarn, "AK_PASSPHRASE is not set, gpg will prompt through its agent")
	} else {
		add("passphrase", statusPass, "no interactive prompt needed")
	}

	// --- Check 4: Profiles ---
	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		add("profiles", statusFail, "cannot list profiles: %v", err)
		return results
	}

	hasDefault := false
	for _, p := range profiles {
		if p == domain.DefaultProfile {
			hasDefault = true
		}
	}
	if hasDefault {
		add("default_profile", statusPass, "default profile present")
	} else {
		add("default_profile", statusFail, "default profile missing, run serve once to create it")
	}

	// --- Check 5: Stale plaintext and loose permissions ---
	for _, p := range profiles {
		paths := store.Paths(p)
		plain, plainErr := os.Stat(paths.Plain)
		if plainErr != nil {
			continue
		}
		if _, err := os.Stat(paths.Encrypted); err == nil {
			add("stale_plaintext", statusWarn, "profile %q has both %s and %s, the plaintext copy may be stale", p, paths.Encrypted, paths.Plain)
		}
		if plain.Mode().Perm()&0o077 != 0 {
			add("plaintext_mode", statusWarn, "%s is mode %o", paths.Plain, plain.Mode().Perm())
		}
	}

	return results
}

func printResults(w io.Writer, results []checkResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"checks": results, "exit_code": exitCode(results)})
	}

	fmt.Fprintln(w, "🔍 ak vault: running checks...")
	for _, r := range results {
		icon := "✅ PASS"
		switch r.Status {
		case statusWarn:
			icon = "⚠️  WARN"
		case statusFail:
			icon = "❌ FAIL"
		}
		fmt.Fprintf(w, "%s: %s\n", icon, r.Message)
	}
	fmt.Fprintln(w, "--------------------------------------------------")
	switch exitCode(results) {
	case 2:
		fmt.Fprintln(w, "🚨 VERDICT: errors found.")
	case 1:
		fmt.Fprintln(w, "VERDICT: warnings found.")
	default:
		fmt.Fprintln(w, "🚀 VERDICT: vault is healthy.")
	}
	return nil
}

func exitCode(results []checkResult) int {
	code := 0
	for _, r := range results {
		switch r.Status {
		case statusFail:
			return 2
		case statusWarn:
			code = 1
		}
	}
	return code
}
