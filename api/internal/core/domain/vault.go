package domain

import "context"

// VaultService is what the HTTP layer and the CLI consume.
type VaultService interface {
	ListProfiles(ctx context.Context) ([]ProfileSummary, error)
	CreateProfile(ctx context.Context, name string) error
	DeleteProfile(ctx context.Context, name string) error

	Keys(ctx context.Context, profile string) ([]KeyEntry, error)
	MaskedKeys(ctx context.Context, profile string) ([]KeyEntry, error)
	AddKey(ctx context.Context, profile, key, value string) error
	UpdateKey(ctx context.Context, profile, key, value string) error
	DeleteKey(ctx context.Context, profile, key string) error

	Export(ctx context.Context, profile string) (string, error)
	Import(ctx context.Context, profile, dotenv string) (int, error)
	Reconcile(ctx context.Context, profile string) ([]string, error)
}
