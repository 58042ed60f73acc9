package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/irgordon/ak/api/internal/core/domain"
)

// Masking keeps this many leading and trailing characters visible.
const (
	maskPrefix = 8
	maskSuffix = 4
)

// VaultService sits between the HTTP handlers and the profile store. It
// shapes store results for the web interface and announces every mutation
// on the event publisher.
type VaultService struct {
	store  domain.ProfileStore
	events domain.EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewVaultService(
	store domain.ProfileStore,
	events domain.EventPublisher,
	logger *slog.Logger,
) *VaultService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VaultService{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// ListProfiles returns every profile with its key count.
func (s *VaultService) ListProfiles(ctx context.Context) ([]domain.ProfileSummary, error) {
	names, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ProfileSummary, 0, len(names))
	for _, name := range names {
		keys, err := s.store.LoadKeys(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to count keys of %s: %w", name, err)
		}
		out = append(out, domain.ProfileSummary{
			Name:      name,
			KeyCount:  len(keys),
			IsDefault: name == domain.DefaultProfile,
		})
	}
	return out, nil
}

// Keys returns the profile's keys sorted by name, each labelled with its service.
func (s *VaultService) Keys(ctx context.Context, profile string) ([]domain.KeyEntry, error) {
	return s.keyEntries(ctx, profile, false)
}

// MaskedKeys is Keys with values passed through MaskValue.
func (s *VaultService) MaskedKeys(ctx context.Context, profile string) ([]domain.KeyEntry, error) {
	return s.keyEntries(ctx, profile, true)
}

func (s *VaultService) keyEntries(ctx context.Context, profile string, masked bool) ([]domain.KeyEntry, error) {
	keys, err := s.store.LoadKeys(ctx, profile)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.KeyEntry, 0, len(names))
	for _, name := range names {
		value := keys[name]
		if masked {
			value = MaskValue(value)
		}
		out = append(out, domain.KeyEntry{
			Name:    name,
			Value:   value,
			Service: ClassifyKey(name),
			Masked:  masked,
		})
	}
	return out, nil
}

func (s *VaultService) AddKey(ctx context.Context, profile, key, value string) error {
	if err := s.store.AddKey(ctx, profile, key, value); err != nil {
		return err
	}
	s.publish(domain.EventKeyAdded, profile, key)
	return nil
}

func (s *VaultService) UpdateKey(ctx context.Context, profile, key, value string) error {
	if err := s.store.UpdateKey(ctx, profile, key, value); err != nil {
		return err
	}
	s.publish(domain.EventKeyUpdated, profile, key)
	return nil
}

func (s *VaultService) DeleteKey(ctx context.Context, profile, key string) error {
	if err := s.store.DeleteKey(ctx, profile, key); err != nil {
		return err
	}
	s.publish(domain.EventKeyDeleted, profile, key)
	return nil
}

func (s *VaultService) CreateProfile(ctx context.Context, name string) error {
	if err := s.store.CreateProfile(ctx, name); err != nil {
		return err
	}
	s.logger.Info("Profile created", slog.String("profile", name))
	s.publish(domain.EventProfileCreated, name, "")
	return nil
}

func (s *VaultService) DeleteProfile(ctx context.Context, name string) error {
	if err := s.store.DeleteProfile(ctx, name); err != nil {
		return err
	}
	s.logger.Info("Profile deleted", slog.String("profile", name))
	s.publish(domain.EventProfileDeleted, name, "")
	return nil
}

// Export renders the profile as shell `export` statements in name-list
// order. Listed names without a value are skipped.
func (s *VaultService) Export(ctx context.Context, profile string) (string, error) {
	if err := domain.ValidateProfileName(profile); err != nil {
		return "", err
	}
	if !s.store.Exists(profile) {
		return "", domain.ErrProfileNotFound
	}

	keys, err := s.store.LoadKeys(ctx, profile)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, name := range s.store.ReadNameList(ctx, profile) {
		value, ok := keys[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "export %s=\"%s\"\n", name, EscapeShellValue(value))
	}
	return b.String(), nil
}

// Import parses dotenv text and upserts every entry into the profile with a
// single contents write followed by a single name-list write.
func (s *VaultService) Import(ctx context.Context, profile, dotenv string) (int, error) {
	if err := domain.ValidateProfileName(profile); err != nil {
		return 0, err
	}

	parsed, err := godotenv.Unmarshal(dotenv)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if len(parsed) == 0 {
		return 0, nil
	}
	for name := range parsed {
		if err := domain.ValidateKeyName(name); err != nil {
			return 0, fmt.Errorf("%w: %q", err, name)
		}
	}

	keys, err := s.store.LoadKeys(ctx, profile)
	if err != nil {
		return 0, err
	}
	names := s.store.ReadNameList(ctx, profile)
	for name, value := range parsed {
		keys[name] = value
		names = append(names, name)
	}

	if err := s.store.SaveKeys(ctx, profile, keys); err != nil {
		return 0, err
	}
	if err := s.store.WriteNameList(ctx, profile, names); err != nil {
		return 0, err
	}

	s.logger.Info("Imported keys", slog.String("profile", profile), slog.Int("count", len(parsed)))
	s.publish(domain.EventKeysImported, profile, "")
	return len(parsed), nil
}

// Reconcile aligns the name list with the contents on demand.
func (s *VaultService) Reconcile(ctx context.Context, profile string) ([]string, error) {
	keys, err := s.store.Reconcile(ctx, profile)
	if err != nil {
		return nil, err
	}
	s.publish(domain.EventReconciled, profile, "")
	return keys, nil
}

func (s *VaultService) publish(t domain.EventType, profile, key string) {
	if s.events == nil {
		return
	}
	s.events.Publish(domain.Event{Type: t, Profile: profile, Key: key, At: s.now().UTC()})
}

// MaskValue hides the middle of a secret. Short values are fully starred.
func MaskValue(v string) string {
	if v == "" {
		return "(empty)"
	}
	r := []rune(v)
	if len(r) <= maskPrefix+maskSuffix {
		return strings.Repeat("*", len(r))
	}
	return string(r[:maskPrefix]) + "***" + string(r[len(r)-maskSuffix:])
}

var shellEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// EscapeShellValue escapes v for a double-quoted shell word: backslash and
// quote are escaped, newlines become a literal \n.
func EscapeShellValue(v string) string {
	return shellEscaper.Replace(v)
}
