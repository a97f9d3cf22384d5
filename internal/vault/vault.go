// Package vault decrypts secret fields referenced by a declaration.
//
// The real secret store (F5's local secure-storage daemon, or an external
// KMS) is an out-of-scope collaborator. Vault exposes the narrow contract
// the system poller needs to decrypt credentials and defaults to a passthrough Decrypter so tests
// and local development work without a real backend.
package vault

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// Decrypter turns a cipher-text string into its plaintext value. It is a
// swappable func field, following the teacher's poller.PoolOptions.Dial
// pattern, so tests can inject a fake without standing up a real vault.
type Decrypter func(ctx context.Context, cipherText string) (string, error)

// Vault resolves models.Secret values in place.
type Vault struct {
	decrypt Decrypter
	logger  *slog.Logger
}

// Config selects the decrypt backend. Decrypt defaults to an identity
// function (cipher-text is returned unchanged) when nil, which is only
// appropriate for local/dev declarations that do not encrypt passphrases.
type Config struct {
	Decrypt Decrypter
}

// New constructs a Vault.
func New(cfg Config, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	dec := cfg.Decrypt
	if dec == nil {
		dec = func(_ context.Context, cipherText string) (string, error) {
			return cipherText, nil
		}
	}
	return &Vault{decrypt: dec, logger: logger}
}

// Resolve decrypts a Secret's CipherText into Plaintext, returning the
// updated value. An empty CipherText resolves to an empty Plaintext without
// invoking the backend.
func (v *Vault) Resolve(ctx context.Context, s models.Secret) (models.Secret, error) {
	if s.CipherText == "" {
		return s, nil
	}
	plain, err := v.decrypt(ctx, s.CipherText)
	if err != nil {
		v.logger.Error("vault: decrypt failed", "error", err.Error())
		return s, fmt.Errorf("vault: decrypt: %w", err)
	}
	s.Plaintext = plain
	return s, nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
