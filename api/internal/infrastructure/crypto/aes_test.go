package crypto_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/irgordon/ak/api/internal/infrastructure/crypto"
)

// generateTestKey creates a random 256-bit AES key in hex
func generateTestKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("Failed to generate test key: %v", err)
	}
	return hex.EncodeToString(key)
}

func newMasterKeyEncryptor(t *testing.T) *crypto.AESEncryptor {
	t.Helper()
	enc, err := crypto.NewAESEncryptor(generateTestKey(t), "", nil)
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	return enc
}

// ==============================================================================
// 1. Fundamental Correctness
// ==============================================================================

func TestAES_EncryptDecrypt_RoundTrip(t *testing.T) {
	enc := newMasterKeyEncryptor(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "work.keys.gpg")
	contents := "OPENAI_KEY=c2stYWJj\n"

	if !enc.Encrypt(ctx, contents, path) {
		t.Fatal("Encrypt reported failure")
	}

	got, ok := enc.Decrypt(ctx, path)
	if !ok {
		t.Fatal("Decrypt reported failure")
	}
	if got != contents {
		t.Errorf("Round-trip failed: got %q, want %q", got, contents)
	}
}

func TestAES_Passphrase_RoundTrip(t *testing.T) {
	enc, err := crypto.NewAESEncryptor("", "correct horse", nil)
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "p.keys.gpg")

	if !enc.Encrypt(ctx, "A=YQ==\n", path) {
		t.Fatal("Encrypt reported failure")
	}
	got, ok := enc.Decrypt(ctx, path)
	if !ok || got != "A=YQ==\n" {
		t.Fatalf("Passphrase round-trip failed: got %q ok=%v", got, ok)
	}
}

func TestAES_ArtifactIsOwnerOnlyAndNotPlaintext(t *testing.T) {
	enc := newMasterKeyEncryptor(t)
	path := filepath.Join(t.TempDir(), "x.keys.gpg")

	if !enc.Encrypt(context.Background(), "SECRET=c2VjcmV0\n", path) {
		t.Fatal("Encrypt reported failure")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("artifact mode = %o, want 600", perm)
	}

	raw, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(raw), "AKV1") {
		t.Error("artifact is missing the AKV1 header")
	}
	if strings.Contains(string(raw), "SECRET") {
		t.Error("SECURITY VIOLATION: key name visible in encrypted artifact")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in the directory, found %d entries", len(entries))
	}
}

// ==============================================================================
// 2. Wrong Key Detection
// ==============================================================================

func TestAES_WrongKey_Fails(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "k.keys.gpg")

	if !newMasterKeyEncryptor(t).Encrypt(ctx, "A=YQ==\n", path) {
		t.Fatal("Encrypt reported failure")
	}

	if _, ok := newMasterKeyEncryptor(t).Decrypt(ctx, path); ok {
		t.Fatal("SECURITY VIOLATION: Decrypt succeeded with a different key")
	}
}

func TestAES_WrongPassphrase_Fails(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "k.keys.gpg")

	good, _ := crypto.NewAESEncryptor("", "right", nil)
	bad, _ := crypto.NewAESEncryptor("", "wrong", nil)

	if !good.Encrypt(ctx, "A=YQ==\n", path) {
		t.Fatal("Encrypt reported failure")
	}
	if _, ok := bad.Decrypt(ctx, path); ok {
		t.Fatal("SECURITY VIOLATION: Decrypt succeeded with a wrong passphrase")
	}
}

// ==============================================================================
// 3. Nonce Uniqueness (Semantic Security)
// ==============================================================================

func TestAES_Nonce_Uniqueness(t *testing.T) {
	enc := newMasterKeyEncryptor(t)
	ctx := context.Background()
	dir := t.TempDir()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		path := filepath.Join(dir, "same.keys.gpg")
		if !enc.Encrypt(ctx, "identical-contents", path) {
			t.Fatalf("Encrypt #%d failed", i)
		}
		raw, _ := os.ReadFile(path)
		if seen[string(raw)] {
			t.Fatalf("SECURITY VIOLATION: identical artifact produced at iteration %d", i)
		}
		seen[string(raw)] = true
	}
}

// ==============================================================================
// 4. Key Validation
// ==============================================================================

func TestAES_Rejects_Short_Key(t *testing.T) {
	shortKey := strings.Repeat("ab", 16) // 128 bits
	if _, err := crypto.NewAESEncryptor(shortKey, "", nil); err == nil {
		t.Fatal("SECURITY VIOLATION: Accepted 128-bit key - must require 256-bit")
	}
}

func TestAES_Rejects_Invalid_Hex(t *testing.T) {
	if _, err := crypto.NewAESEncryptor("not-a-valid-hex-string-at-all!!!", "", nil); err == nil {
		t.Fatal("SECURITY VIOLATION: Accepted non-hex key")
	}
}

func TestAES_Rejects_No_Key_Material(t *testing.T) {
	if _, err := crypto.NewAESEncryptor("", "", nil); err == nil {
		t.Fatal("SECURITY VIOLATION: Accepted empty key and empty passphrase")
	}
}

// ==============================================================================
// 5. Artifact Tampering Detection
// ==============================================================================

func TestAES_Ciphertext_Tamper_Detection(t *testing.T) {
	enc := newMasterKeyEncryptor(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "t.keys.gpg")

	if !enc.Encrypt(ctx, "sensitive-data", path) {
		t.Fatal("Encrypt reported failure")
	}

	raw, _ := os.ReadFile(path)
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	if _, ok := enc.Decrypt(ctx, path); ok {
		t.Fatal("SECURITY VIOLATION: Decrypt succeeded with tampered ciphertext - GCM auth tag not verified")
	}
}

func TestAES_Foreign_Or_Missing_Artifact(t *testing.T) {
	enc := newMasterKeyEncryptor(t)
	ctx := context.Background()
	dir := t.TempDir()

	foreign := filepath.Join(dir, "gpg.keys.gpg")
	if err := os.WriteFile(foreign, []byte("\x8c\x0d\x04\x09\x03\x02"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := enc.Decrypt(ctx, foreign); ok {
		t.Error("Decrypt accepted an artifact without the AKV1 header")
	}
	if _, ok := enc.Decrypt(ctx, filepath.Join(dir, "missing.keys.gpg")); ok {
		t.Error("Decrypt reported success for a missing file")
	}
}

// ==============================================================================
// 6. Empty Contents Edge Case
// ==============================================================================

func TestAES_Empty_Contents(t *testing.T) {
	enc := newMasterKeyEncryptor(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "empty.keys.gpg")

	if !enc.Encrypt(ctx, "", path) {
		t.Fatal("Encrypt of empty contents failed")
	}
	got, ok := enc.Decrypt(ctx, path)
	if !ok {
		t.Fatal("Decrypt of empty contents failed")
	}
	if got != "" {
		t.Errorf("Expected empty contents, got %q", got)
	}
}
