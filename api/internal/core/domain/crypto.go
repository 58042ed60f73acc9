package domain

import "context"

// Encryptor defines the contract for the contents encryption backend.
// Failures are signals, not errors: the store falls back to plaintext
// whenever Encrypt reports false or Decrypt yields nothing.
type Encryptor interface {
	// Available reports whether this backend can encrypt at all.
	Available() bool

	// Encrypt writes data as an encrypted artifact at path, overwriting it.
	// It returns true iff the artifact was produced.
	Encrypt(ctx context.Context, data string, path string) bool

	// Decrypt returns the plaintext of the artifact at path. A wrong or
	// missing passphrase, a corrupt file and an unavailable backend all
	// report false.
	Decrypt(ctx context.Context, path string) (string, bool)

	// Name identifies the backend in health output and logs.
	Name() string
}
