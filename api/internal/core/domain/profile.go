package domain

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// DefaultProfile always exists after startup and can never be deleted.
const DefaultProfile = "default"

// MaxKeyNameLength caps key names accepted by the engine.
const MaxKeyNameLength = 256

// Domain signals. The HTTP boundary maps these to 400/404/409 with errors.Is.
var (
	// ErrProfileExists is returned by CreateProfile for a name already listed.
	ErrProfileExists = errors.New("profile already exists")

	// ErrProfileNotFound is returned when neither a name list nor contents exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrKeyNotFound is returned by DeleteKey when the key is absent from the contents.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDefaultProfileProtected is returned by DeleteProfile("default").
	ErrDefaultProfileProtected = errors.New("cannot delete default profile")

	// ErrInvalidProfileName rejects names that are not filesystem-safe tokens.
	ErrInvalidProfileName = errors.New("invalid profile name")

	// ErrInvalidKeyName rejects key names the contents format cannot carry.
	ErrInvalidKeyName = errors.New("invalid key name")

	// ErrContentsUnreadable is returned by Reconcile when the encrypted
	// artifact exists but does not decrypt. The name list is left untouched.
	ErrContentsUnreadable = errors.New("profile contents unreadable")
)

var profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateProfileName accepts filesystem-safe tokens: no separators, no leading dot.
func ValidateProfileName(name string) error {
	if !profileNamePattern.MatchString(name) {
		return ErrInvalidProfileName
	}
	return nil
}

// ValidateKeyName rejects names the line-oriented files cannot round-trip:
// empty, longer than MaxKeyNameLength, containing '=' or line breaks,
// padded with whitespace, or starting with the '#' comment marker.
func ValidateKeyName(name string) error {
	if name == "" || len(name) > MaxKeyNameLength || strings.TrimSpace(name) != name {
		return ErrInvalidKeyName
	}
	if strings.HasPrefix(name, "#") || strings.ContainsAny(name, "=\t\r\n") {
		return ErrInvalidKeyName
	}
	return nil
}

// ProfileSummary is one row of the profile listing.
type ProfileSummary struct {
	Name      string `json:"name"`
	KeyCount  int    `json:"keyCount"`
	IsDefault bool   `json:"isDefault"`
}

// KeyEntry is a key as shown to the web interface.
type KeyEntry struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Service string `json:"service"`
	Tested  bool   `json:"tested"`
	Masked  bool   `json:"masked,omitempty"`
}

// ProfilePaths are the three possible on-disk artifacts of a profile.
type ProfilePaths struct {
	NameList  string
	Encrypted string
	Plain     string
}

// ProfileStore persists profiles as a name list plus key-value contents.
//
// The contents write and the name list write are independent; a failure
// between them leaves the name list stale until the next successful write
// or an explicit Reconcile.
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]string, error)
	ReadNameList(ctx context.Context, name string) []string
	WriteNameList(ctx context.Context, name string, keys []string) error

	LoadKeys(ctx context.Context, name string) (map[string]string, error)
	SaveKeys(ctx context.Context, name string, keys map[string]string) error

	AddKey(ctx context.Context, profile, key, value string) error
	UpdateKey(ctx context.Context, profile, key, value string) error
	DeleteKey(ctx context.Context, profile, key string) error

	CreateProfile(ctx context.Context, name string) error
	DeleteProfile(ctx context.Context, name string) error
	EnsureDefaultProfile(ctx context.Context) error

	Reconcile(ctx context.Context, name string) ([]string, error)
	Exists(name string) bool
	Paths(name string) ProfilePaths
}
