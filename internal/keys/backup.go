package keys

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/muhasabah-app/profilesync/internal/crypto"
	perrors "github.com/muhasabah-app/profilesync/internal/errors"

	"golang.org/x/crypto/argon2"
)

// Backup envelope layout: magic ‖ 16-byte salt ‖ 12-byte nonce ‖ sealed key.
var backupMagic = []byte("PSKB1")

const backupSaltSize = 16

// argon2id parameters for deriving the wrapping key from the passphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// ExportForBackup wraps the key in a passphrase-protected envelope for
// user-initiated transfer to another device. The exported key is never
// plaintext at rest.
func ExportForBackup(key []byte, passphrase string) ([]byte, error) {
	if len(key) != crypto.KeySize {
		return nil, fmt.Errorf("expected %d-byte key, got %d: %w", crypto.KeySize, len(key), perrors.ErrInvalidKeyLength)
	}
	if passphrase == "" {
		return nil, fmt.Errorf("backup passphrase must not be empty: %w", perrors.ErrValidation)
	}

	salt := make([]byte, backupSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := wrappingAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, crypto.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, key, backupMagic)

	envelope := make([]byte, 0, len(backupMagic)+backupSaltSize+crypto.NonceSize+len(sealed))
	envelope = append(envelope, backupMagic...)
	envelope = append(envelope, salt...)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, sealed...)
	return envelope, nil
}

// ImportFromBackup unwraps a backup envelope. A wrong passphrase and a
// tampered envelope both surface as ErrDecryptionFailed.
func ImportFromBackup(envelope []byte, passphrase string) ([]byte, error) {
	header := len(backupMagic) + backupSaltSize + crypto.NonceSize
	if len(envelope) <= header || !bytes.HasPrefix(envelope, backupMagic) {
		return nil, perrors.ErrInvalidBackup
	}

	salt := envelope[len(backupMagic) : len(backupMagic)+backupSaltSize]
	nonce := envelope[len(backupMagic)+backupSaltSize : header]
	sealed := envelope[header:]

	aead, err := wrappingAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	key, err := aead.Open(nil, nonce, sealed, backupMagic)
	if err != nil {
		return nil, perrors.ErrDecryptionFailed
	}
	if len(key) != crypto.KeySize {
		return nil, perrors.ErrInvalidBackup
	}
	return key, nil
}

func wrappingAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	wrapping := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, crypto.KeySize)
	block, err := aes.NewCipher(wrapping)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize wrapping cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize wrapping GCM: %w", err)
	}
	return aead, nil
}
