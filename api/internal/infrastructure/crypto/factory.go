package crypto

import (
	"fmt"
	"log/slog"

	"github.com/irgordon/ak/api/internal/config"
	"github.com/irgordon/ak/api/internal/core/domain"
)

// NewEncryptor selects the backend named by cfg.Backend. AK_DISABLE_GPG
// forces the no-op backend regardless of the selection.
func NewEncryptor(cfg *config.Config, logger *slog.Logger) (domain.Encryptor, error) {
	if cfg.ForcePlain {
		return NewNoopEncryptor(), nil
	}

	switch cfg.Backend {
	case config.BackendGPG, "":
		return NewGPGEncryptor(GPGOptions{
			Binary:     cfg.GPGBinary,
			Available:  cfg.EncryptionAvailable(),
			Passphrase: cfg.PresetPassphrase,
		}, logger), nil
	case config.BackendAES:
		return NewAESEncryptor(cfg.MasterKeyHex, cfg.PresetPassphrase, logger)
	case config.BackendNone:
		return NewNoopEncryptor(), nil
	default:
		return nil, fmt.Errorf("crypto: unknown backend %q", cfg.Backend)
	}
}
