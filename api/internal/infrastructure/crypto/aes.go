package crypto

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

// Artifact layout: magic | salt | nonce | ciphertext+tag.
var aesMagic = []byte("AKV1")

const (
	saltSize = 16

	// Argon2id parameters (RFC 9106 second recommended option).
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keySize      = 32
)

// AESEncryptor is the in-process backend: AES-256-GCM with either a fixed
// master key or a per-file key derived from the passphrase with Argon2id.
type AESEncryptor struct {
	masterKey  []byte
	passphrase []byte
	logger     *slog.Logger
}

// NewAESEncryptor accepts a 64-char hex master key, or falls back to the
// passphrase when hexKey is empty. One of the two is required.
func NewAESEncryptor(hexKey, passphrase string, logger *slog.Logger) (*AESEncryptor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &AESEncryptor{logger: logger.With("component", "aes")}

	switch {
	case hexKey != "":
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("crypto: invalid key encoding: %w", err)
		}
		if len(key) != keySize {
			return nil, errors.New("crypto: key must be 32 bytes for AES-256")
		}
		e.masterKey = key
	case passphrase != "":
		e.passphrase = []byte(passphrase)
	default:
		return nil, errors.New("crypto: aes backend needs AK_MASTER_KEY or AK_PASSPHRASE")
	}

	return e, nil
}

func (e *AESEncryptor) Name() string    { return "aes" }
func (e *AESEncryptor) Available() bool { return true }

// Encrypt seals data and atomically replaces path with the artifact.
func (e *AESEncryptor) Encrypt(ctx context.Context, data string, path string) bool {
	sealed, err := e.seal([]byte(data))
	if err != nil {
		e.logger.Warn("Failed to encrypt", slog.String("path", path), slog.Any("error", err))
		return false
	}
	if err := writeFileAtomic(path, sealed); err != nil {
		e.logger.Warn("Failed to write encrypted artifact", slog.String("path", path), slog.Any("error", err))
		return false
	}
	return true
}

// Decrypt opens the artifact at path. A missing file, foreign format or
// wrong key all yield ("", false).
func (e *AESEncryptor) Decrypt(ctx context.Context, path string) (string, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("Failed to read encrypted artifact", slog.String("path", path), slog.Any("error", err))
		}
		return "", false
	}

	plaintext, err := e.open(raw)
	if err != nil {
		e.logger.Warn("Failed to decrypt", slog.String("path", path), slog.Any("error", err))
		return "", false
	}
	if !utf8.Valid(plaintext) {
		e.logger.Warn("Decrypted contents are not UTF-8", slog.String("path", path))
		return "", false
	}
	return string(plaintext), true
}

func (e *AESEncryptor) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: salt generation failure: %w", err)
	}

	aead, err := e.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce generation failure: %w", err)
	}

	// 🛡️ Pre-allocate the exact size: header + salt + nonce + plaintext + tag
	out := make([]byte, 0, len(aesMagic)+saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, aesMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	// The magic is bound as associated data so a relabelled artifact fails.
	return aead.Seal(out, nonce, plaintext, aesMagic), nil
}

func (e *AESEncryptor) open(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, aesMagic) {
		return nil, errors.New("crypto: not an AKV1 artifact")
	}
	data = data[len(aesMagic):]

	if len(data) < saltSize {
		return nil, errors.New("crypto: ciphertext too short")
	}
	salt, data := data[:saltSize], data[saltSize:]

	aead, err := e.aead(salt)
	if err != nil {
		return nil, err
	}

	ns := aead.NonceSize()
	if len(data) < ns {
		return nil, errors.New("crypto: ciphertext too short")
	}
	nonce, ciphertext := data[:ns], data[ns:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, aesMagic)
	if err != nil {
		return nil, errors.New("crypto: integrity violation - wrong key or tampered artifact")
	}
	return plaintext, nil
}

func (e *AESEncryptor) aead(salt []byte) (cipher.AEAD, error) {
	key := e.masterKey
	if key == nil {
		key = argon2.IDKey(e.passphrase, salt, argonTime, argonMemory, argonThreads, keySize)
		// 🛡️ Zeroize the derived key once the cipher has its own copy
		defer func() {
			for i := range key {
				key[i] = 0
			}
		}()
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: block cipher failure: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: GCM failure: %w", err)
	}
	return aesGCM, nil
}

// writeFileAtomic writes data next to path and renames it into place, so a
// crash never leaves a truncated artifact behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ak-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
