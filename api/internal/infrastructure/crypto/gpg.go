package crypto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultGPGTimeout bounds every encrypt/decrypt subprocess call.
const DefaultGPGTimeout = 10 * time.Second

// GPGOptions configures GPGEncryptor.
type GPGOptions struct {
	Binary     string        // defaults to "gpg"
	Available  bool          // probe result with AK_DISABLE_GPG applied
	Passphrase string        // preset passphrase, empty means interactive
	Timeout    time.Duration // defaults to DefaultGPGTimeout
	TempDir    string        // defaults to os.TempDir()
}

// GPGEncryptor encrypts contents with `gpg --symmetric --cipher-algo AES256`.
//
// Every plaintext or passphrase handed to gpg goes through a uniquely named
// 0600 temp file that is removed on every exit path, including timeouts.
type GPGEncryptor struct {
	opts   GPGOptions
	logger *slog.Logger
}

// NewGPGEncryptor builds the subprocess backend.
func NewGPGEncryptor(opts GPGOptions, logger *slog.Logger) *GPGEncryptor {
	if opts.Binary == "" {
		opts.Binary = "gpg"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultGPGTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GPGEncryptor{opts: opts, logger: logger.With("component", "gpg")}
}

func (g *GPGEncryptor) Name() string    { return "gpg" }
func (g *GPGEncryptor) Available() bool { return g.opts.Available }

// Decrypt runs `gpg --decrypt`. Without a preset passphrase gpg may prompt
// through its agent or fail; either outcome is acceptable here.
func (g *GPGEncryptor) Decrypt(ctx context.Context, path string) (string, bool) {
	if !g.opts.Available {
		return "", false
	}

	args := []string{"--quiet", "--decrypt", path}

	if g.opts.Passphrase != "" {
		passFile, cleanup, err := g.writeTemp("ak-*.pass", g.opts.Passphrase)
		if err != nil {
			g.logger.Error("Failed to stage passphrase file", slog.Any("error", err))
			return "", false
		}
		defer cleanup()

		args = []string{
			"--batch", "--yes", "--quiet",
			"--pinentry-mode", "loopback",
			"--passphrase-file", passFile,
			"--decrypt", path,
		}
	}

	out, err := g.run(ctx, args)
	if err != nil {
		g.logger.Warn("Failed to decrypt", slog.String("path", path), slog.Any("error", err))
		return "", false
	}
	if !utf8.Valid(out) {
		g.logger.Warn("Decrypted contents are not UTF-8", slog.String("path", path))
		return "", false
	}
	return string(out), true
}

// Encrypt stages data in a temp file and has gpg write the symmetric
// artifact to path, overwriting any existing file.
func (g *GPGEncryptor) Encrypt(ctx context.Context, data string, path string) bool {
	if !g.opts.Available {
		return false
	}

	dataFile, cleanupData, err := g.writeTemp("ak-*.tmp", data)
	if err != nil {
		g.logger.Error("Failed to stage plaintext file", slog.Any("error", err))
		return false
	}
	defer cleanupData()

	args := []string{"--yes", "-o", path, "--symmetric", "--cipher-algo", "AES256", dataFile}

	if g.opts.Passphrase != "" {
		passFile, cleanupPass, err := g.writeTemp("ak-*.pass", g.opts.Passphrase)
		if err != nil {
			g.logger.Error("Failed to stage passphrase file", slog.Any("error", err))
			return false
		}
		defer cleanupPass()

		args = []string{
			"--batch", "--yes", "-o", path,
			"--pinentry-mode", "loopback",
			"--passphrase-file", passFile,
			"--symmetric", "--cipher-algo", "AES256", dataFile,
		}
	}

	if _, err := g.run(ctx, args); err != nil {
		g.logger.Warn("Failed to encrypt", slog.String("path", path), slog.Any("error", err))
		return false
	}
	return true
}

func (g *GPGEncryptor) run(ctx context.Context, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.opts.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("gpg timed out after %s: %w", g.opts.Timeout, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("gpg exit code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// writeTemp creates an owner-only temp file holding content. The returned
// cleanup removes it and is safe to defer immediately.
func (g *GPGEncryptor) writeTemp(pattern, content string) (string, func(), error) {
	f, err := os.CreateTemp(g.opts.TempDir, pattern)
	if err != nil {
		return "", nil, err
	}
	name := f.Name()
	cleanup := func() {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			g.logger.Warn("Failed to remove temp file", slog.String("path", name), slog.Any("error", err))
		}
	}

	if err := f.Chmod(0o600); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return name, cleanup, nil
}
