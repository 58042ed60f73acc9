package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DirMode is applied to the root, profiles and persist directories.
	DirMode = 0o700

	// ProbeTimeout bounds the `gpg --version` capability probe.
	ProbeTimeout = 5 * time.Second

	appDirName = "ak"
)

// Backend names accepted by AK_BACKEND and server.yaml.
const (
	BackendGPG  = "gpg"
	BackendAES  = "aes"
	BackendNone = "none"
)

// Config is resolved once at startup and passed by pointer into the store,
// the encryption backend and the HTTP layer. Nothing reads the environment
// after Load returns.
type Config struct {
	// On-disk layout: <ConfigDir>/profiles holds the profile artifacts.
	ConfigDir   string
	ProfilesDir string
	PersistDir  string
	InstanceID  string

	// 🛡️ Encryption capability
	Backend          string
	GPGBinary        string
	GPGAvailable     bool
	ForcePlain       bool   // AK_DISABLE_GPG
	PresetPassphrase string // AK_PASSPHRASE, empty means absent
	MasterKeyHex     string // AK_MASTER_KEY, aes backend only

	// HTTP gateway
	Port           string
	AllowedOrigins []string

	ReconcileInterval time.Duration
	LogLevel          slog.Level
}

// Prober reports whether the gpg binary answers a version probe.
type Prober func(binary string) bool

// Load resolves the root directory, creates the directory tree, reads the
// optional server.yaml and applies environment overrides.
func Load() (*Config, error) {
	return LoadWith(ProbeGPG)
}

// LoadWith is Load with an injectable capability probe.
func LoadWith(probe Prober) (*Config, error) {
	root, err := ResolveRoot()
	if err != nil {
		return nil, err
	}

	file, err := LoadFile(filepath.Join(root, FileName))
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", FileName, err)
	}

	cfg := &Config{
		ConfigDir:        root,
		ProfilesDir:      filepath.Join(root, "profiles"),
		PersistDir:       filepath.Join(root, "persist"),
		Backend:          strings.ToLower(getEnv("AK_BACKEND", orDefault(file.Backend, BackendGPG))),
		GPGBinary:        getEnv("AK_GPG_BINARY", orDefault(file.GPGBinary, "gpg")),
		ForcePlain:       isTruthy(os.Getenv("AK_DISABLE_GPG")),
		PresetPassphrase: PresetPassphrase(),
		MasterKeyHex:     getEnv("AK_MASTER_KEY", ""),
		Port:             getEnv("AK_PORT", orDefault(file.Port, "5000")),
		LogLevel:         ParseLogLevel(getEnv("AK_LOG_LEVEL", "info")),
	}

	switch cfg.Backend {
	case BackendGPG, BackendAES, BackendNone:
	default:
		return nil, fmt.Errorf("config: unknown backend %q", cfg.Backend)
	}

	origins := getEnv("AK_CORS_ORIGINS", "")
	switch {
	case origins != "":
		cfg.AllowedOrigins = splitList(origins)
	case len(file.AllowedOrigins) > 0:
		cfg.AllowedOrigins = file.AllowedOrigins
	default:
		cfg.AllowedOrigins = []string{"*"}
	}

	if raw := getEnv("AK_RECONCILE_INTERVAL", file.ReconcileInterval); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: invalid reconcile interval %q: %w", raw, err)
		}
		cfg.ReconcileInterval = d
	}

	// A truthy AK_DISABLE_GPG bypasses the probe entirely. Otherwise gpg is
	// probed whatever the backend, so health reports what is installed.
	if !cfg.ForcePlain {
		cfg.GPGAvailable = probe(cfg.GPGBinary)
	}

	cfg.InstanceID, err = loadOrCreateInstanceID(root)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// EncryptionAvailable is true iff gpg answered the probe and encryption has
// not been disabled explicitly.
func (c *Config) EncryptionAvailable() bool {
	return c.GPGAvailable && !c.ForcePlain
}

// ResolveRoot returns $XDG_CONFIG_HOME/ak, or $HOME/.config/ak when the
// variable is unset or empty, and makes sure the directory tree exists.
func ResolveRoot() (string, error) {
	var root string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		root = filepath.Join(xdg, appDirName)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: resolving home directory: %w", err)
		}
		root = filepath.Join(home, ".config", appDirName)
	}

	if err := EnsureTree(root); err != nil {
		return "", err
	}
	return root, nil
}

// EnsureTree creates root, root/profiles and root/persist. Existing
// directories are left alone.
func EnsureTree(root string) error {
	for _, dir := range []string{root, filepath.Join(root, "profiles"), filepath.Join(root, "persist")} {
		if err := os.MkdirAll(dir, DirMode); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	return nil
}

// PresetPassphrase reads AK_PASSPHRASE. The empty string means no passphrase.
func PresetPassphrase() string {
	return os.Getenv("AK_PASSPHRASE")
}

// ProbeGPG runs `<binary> --version` bounded by ProbeTimeout.
func ProbeGPG(binary string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), ProbeTimeout)
	defer cancel()

	return exec.CommandContext(ctx, binary, "--version").Run() == nil
}

// ParseLogLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadOrCreateInstanceID(root string) (string, error) {
	path := filepath.Join(root, "instance.id")

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0]); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("config: reading instance id: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("config: writing instance id: %w", err)
	}
	return id, nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
