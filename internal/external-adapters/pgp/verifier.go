// Package pgp provides detached PGP signature verification for pinned
// tool source archives.
//
// This is in external-adapters to isolate the external dependency:
// ProtonMail's go-crypto, a maintained, modern fork of
// golang.org/x/crypto/openpgp.
package pgp

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Verifier verifies detached signatures against a recipe-pinned keyring
type Verifier struct{}

// NewVerifier creates a new PGP verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyDetached verifies that signaturePath is a valid detached
// signature over signedPath by a key in the keyring at keyringPath.
func (v *Verifier) VerifyDetached(signedPath, signaturePath, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return err
	}

	//nolint:gosec // G304: signedPath is the verified archive under the workspace
	signed, err := os.Open(signedPath)
	if err != nil {
		return fmt.Errorf("failed to open signed file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer signed.Close()

	//nolint:gosec // G304: signaturePath is the downloaded signature under the workspace
	sig, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("failed to open signature: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer sig.Close()

	config := &packet.Config{}

	// Armored first; fall back to binary signatures
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, signed, sig, config)
	if err != nil {
		if _, seekErr := signed.Seek(0, 0); seekErr != nil {
			return fmt.Errorf("failed to reset signed file: %w", seekErr)
		}
		if _, seekErr := sig.Seek(0, 0); seekErr != nil {
			return fmt.Errorf("failed to reset signature: %w", seekErr)
		}
		_, err = openpgp.CheckDetachedSignature(keyring, signed, sig, config)
	}
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	return nil
}

// loadKeyring reads an armored or binary keyring from a file
func loadKeyring(keyringPath string) (openpgp.EntityList, error) {
	//nolint:gosec // G304: keyringPath is a recipe asset path
	f, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		// Try reading as binary
		if _, seekErr := f.Seek(0, 0); seekErr != nil {
			return nil, fmt.Errorf("failed to reset keyring file: %w", seekErr)
		}
		keyring, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("no keys found in keyring")
	}

	return keyring, nil
}
