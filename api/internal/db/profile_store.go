package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/irgordon/ak/api/internal/config"
	"github.com/irgordon/ak/api/internal/core/codec"
	"github.com/irgordon/ak/api/internal/core/domain"
)

// File suffixes of the on-disk layout under <config_dir>/profiles.
const (
	NameListExt  = ".profile"
	EncryptedExt = ".keys.gpg"
	PlainExt     = ".keys"

	fileMode = 0o600
)

// FileProfileStore implements domain.ProfileStore on flat files.
// 🛡️ SLA: No locking. Concurrent writers to one profile race and the last
// writer wins; correctness holds for a single writer per profile name.
type FileProfileStore struct {
	dir    string
	enc    domain.Encryptor
	logger *slog.Logger
}

// NewFileProfileStore creates a store rooted at cfg.ProfilesDir.
func NewFileProfileStore(cfg *config.Config, enc domain.Encryptor, logger *slog.Logger) *FileProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileProfileStore{
		dir:    cfg.ProfilesDir,
		enc:    enc,
		logger: logger.With("component", "profile_store"),
	}
}

// Paths returns the three artifact locations for name.
func (s *FileProfileStore) Paths(name string) domain.ProfilePaths {
	base := filepath.Join(s.dir, name)
	return domain.ProfilePaths{
		NameList:  base + NameListExt,
		Encrypted: base + EncryptedExt,
		Plain:     base + PlainExt,
	}
}

// ListProfiles enumerates profiles by their name-list files, sorted.
func (s *FileProfileStore) ListProfiles(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), NameListExt)
		if !ok {
			continue
		}
		if domain.ValidateProfileName(name) != nil {
			s.logger.Debug("Ignoring name list with unsafe name", slog.String("file", e.Name()))
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadNameList returns the stored key names in file order. A missing or
// unreadable file yields an empty list.
func (s *FileProfileStore) ReadNameList(ctx context.Context, name string) []string {
	if domain.ValidateProfileName(name) != nil {
		return []string{}
	}

	raw, err := os.ReadFile(s.Paths(name).NameList)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to read name list", slog.String("profile", name), slog.Any("error", err))
		}
		return []string{}
	}

	keys := []string{}
	for _, line := range strings.Split(string(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			keys = append(keys, line)
		}
	}
	return keys
}

// WriteNameList deduplicates and sorts keys, then replaces the file.
func (s *FileProfileStore) WriteNameList(ctx context.Context, name string, keys []string) error {
	if err := domain.ValidateProfileName(name); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(keys))
	unique := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
	}
	sort.Strings(unique)

	var b strings.Builder
	for _, k := range unique {
		b.WriteString(k)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(s.Paths(name).NameList, []byte(b.String()), fileMode); err != nil {
		s.logger.Error("Failed to write name list", slog.String("profile", name), slog.Any("error", err))
		return fmt.Errorf("failed to write name list for %s: %w", name, err)
	}
	return nil
}

// LoadKeys resolves the contents: the encrypted artifact when it exists and
// decrypts, else the plaintext file, else nothing.
func (s *FileProfileStore) LoadKeys(ctx context.Context, name string) (map[string]string, error) {
	keys, _, err := s.load(ctx, name)
	return keys, err
}

// load is LoadKeys that also reports whether an encrypted artifact was on
// disk but failed to decrypt.
func (s *FileProfileStore) load(ctx context.Context, name string) (map[string]string, bool, error) {
	if err := domain.ValidateProfileName(name); err != nil {
		return nil, false, err
	}
	paths := s.Paths(name)

	// 1. Encrypted artifact
	decryptFailed := false
	if fileExists(paths.Encrypted) {
		text, ok := s.enc.Decrypt(ctx, paths.Encrypted)
		if ok && text != "" {
			return codec.Decode(text, s.logger), false, nil
		}
		decryptFailed = !ok
		s.logger.Debug("Encrypted contents yielded no data, trying plaintext", slog.String("profile", name))
	}

	// 2. Plaintext fallback
	raw, err := os.ReadFile(paths.Plain)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, decryptFailed, nil
		}
		s.logger.Error("Failed to read plaintext contents", slog.String("profile", name), slog.Any("error", err))
		return nil, decryptFailed, fmt.Errorf("failed to load keys for %s: %w", name, err)
	}
	return codec.Decode(string(raw), s.logger), decryptFailed, nil
}

// SaveKeys encrypts the encoded contents, or writes them as plaintext when
// the backend declines. A plaintext file left by an earlier run is not
// removed after a successful encrypted write.
func (s *FileProfileStore) SaveKeys(ctx context.Context, name string, keys map[string]string) error {
	if err := domain.ValidateProfileName(name); err != nil {
		return err
	}
	paths := s.Paths(name)
	data := codec.Encode(keys)

	if s.enc.Available() && s.enc.Encrypt(ctx, data, paths.Encrypted) {
		return nil
	}

	if err := os.WriteFile(paths.Plain, []byte(data), fileMode); err != nil {
		s.logger.Error("Failed to write plaintext contents", slog.String("profile", name), slog.Any("error", err))
		return fmt.Errorf("failed to save keys for %s: %w", name, err)
	}
	return nil
}

// AddKey upserts key and makes sure it appears in the name list.
func (s *FileProfileStore) AddKey(ctx context.Context, profile, key, value string) error {
	if err := s.upsert(ctx, profile, key, value); err != nil {
		return err
	}

	names := s.ReadNameList(ctx, profile)
	for _, n := range names {
		if n == key {
			return nil
		}
	}
	return s.WriteNameList(ctx, profile, append(names, key))
}

// UpdateKey upserts key without touching the name list.
func (s *FileProfileStore) UpdateKey(ctx context.Context, profile, key, value string) error {
	return s.upsert(ctx, profile, key, value)
}

func (s *FileProfileStore) upsert(ctx context.Context, profile, key, value string) error {
	if err := domain.ValidateProfileName(profile); err != nil {
		return err
	}
	if err := domain.ValidateKeyName(key); err != nil {
		return err
	}

	keys, err := s.LoadKeys(ctx, profile)
	if err != nil {
		return err
	}
	keys[key] = value
	return s.SaveKeys(ctx, profile, keys)
}

// DeleteKey removes key from the contents and then from the name list.
func (s *FileProfileStore) DeleteKey(ctx context.Context, profile, key string) error {
	if err := domain.ValidateProfileName(profile); err != nil {
		return err
	}

	keys, err := s.LoadKeys(ctx, profile)
	if err != nil {
		return err
	}
	if _, ok := keys[key]; !ok {
		return domain.ErrKeyNotFound
	}

	delete(keys, key)
	if err := s.SaveKeys(ctx, profile, keys); err != nil {
		return err
	}

	names := s.ReadNameList(ctx, profile)
	kept := names[:0]
	for _, n := range names {
		if n != key {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(names) {
		return nil
	}
	return s.WriteNameList(ctx, profile, kept)
}

// CreateProfile writes an empty name list. Contents appear with the first key.
func (s *FileProfileStore) CreateProfile(ctx context.Context, name string) error {
	if err := domain.ValidateProfileName(name); err != nil {
		return err
	}

	existing, err := s.ListProfiles(ctx)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p == name {
			return domain.ErrProfileExists
		}
	}
	return s.WriteNameList(ctx, name, nil)
}

// DeleteProfile removes every artifact of name. Missing files are skipped.
func (s *FileProfileStore) DeleteProfile(ctx context.Context, name string) error {
	if name == domain.DefaultProfile {
		return domain.ErrDefaultProfileProtected
	}
	if err := domain.ValidateProfileName(name); err != nil {
		return err
	}

	paths := s.Paths(name)
	var errs []error
	for _, p := range []string{paths.NameList, paths.Encrypted, paths.Plain} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("Failed to remove profile artifact", slog.String("path", p), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EnsureDefaultProfile creates "default" unless it is already listed.
func (s *FileProfileStore) EnsureDefaultProfile(ctx context.Context) error {
	err := s.CreateProfile(ctx, domain.DefaultProfile)
	if err == nil {
		s.logger.Info("Created default profile")
		return nil
	}
	if errors.Is(err, domain.ErrProfileExists) {
		return nil
	}
	return err
}

// Reconcile rewrites the name list to match the contents: listed names
// that no longer have a value are dropped, unlisted keys are added. When the
// encrypted artifact does not decrypt, the list is left alone and
// ErrContentsUnreadable is returned.
func (s *FileProfileStore) Reconcile(ctx context.Context, name string) ([]string, error) {
	if err := domain.ValidateProfileName(name); err != nil {
		return nil, err
	}
	if !s.Exists(name) {
		return nil, domain.ErrProfileNotFound
	}

	keys, decryptFailed, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	if decryptFailed {
		s.logger.Warn("Skipping reconcile, encrypted contents unreadable", slog.String("profile", name))
		return nil, fmt.Errorf("reconcile %s: %w", name, domain.ErrContentsUnreadable)
	}

	merged := make([]string, 0, len(keys))
	for k := range keys {
		merged = append(merged, k)
	}
	sort.Strings(merged)

	if !slices.Equal(s.ReadNameList(ctx, name), merged) {
		if err := s.WriteNameList(ctx, name, merged); err != nil {
			return nil, err
		}
		s.logger.Info("Reconciled name list", slog.String("profile", name), slog.Int("keys", len(merged)))
	}
	return merged, nil
}

// Exists reports whether any artifact of name is on disk.
func (s *FileProfileStore) Exists(name string) bool {
	if domain.ValidateProfileName(name) != nil {
		return false
	}
	paths := s.Paths(name)
	return fileExists(paths.NameList) || fileExists(paths.Encrypted) || fileExists(paths.Plain)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
