package crypto

import "context"

// NoopEncryptor is the backend used when encryption is disabled. Every call
// fails, which sends the store down its plaintext path.
type NoopEncryptor struct{}

func NewNoopEncryptor() *NoopEncryptor { return &NoopEncryptor{} }

func (NoopEncryptor) Name() string    { return "none" }
func (NoopEncryptor) Available() bool { return false }

func (NoopEncryptor) Encrypt(context.Context, string, string) bool { return false }

func (NoopEncryptor) Decrypt(context.Context, string) (string, bool) { return "", false }
