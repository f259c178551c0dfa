package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	perrors "github.com/muhasabah-app/profilesync/internal/errors"
)

// KeySize is the symmetric key length in bytes (AES-256).
const KeySize = 32

// NonceSize is the GCM nonce length in bytes (96 bits).
const NonceSize = 12

// EncryptedBlob is a private profile at rest or in transit: ciphertext and
// the nonce it was sealed with, which must always travel together, plus the
// private half's version counter.
type EncryptedBlob struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Version    int64  `json:"version"`
}

// Codec performs authenticated encryption of JSON documents with a fixed
// 256-bit key. Every Encrypt call draws a fresh random nonce; a nonce is
// never reused with the same key.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a codec around a 32-byte AES-256 key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("expected %d-byte key, got %d: %w", KeySize, len(key), perrors.ErrInvalidKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// EncryptJSON marshals v and seals it under a fresh random 96-bit nonce.
// The returned blob carries version, which callers stamp with the private
// half's counter.
func (c *Codec) EncryptJSON(v any, version int64) (*EncryptedBlob, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plaintext: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nil, nonce, plaintext, nil)

	return &EncryptedBlob{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Version:    version,
	}, nil
}

// DecryptJSON opens a blob and unmarshals the plaintext into out. Any
// authentication failure, whether from tampered data, a wrong key or a
// wrong nonce, returns ErrDecryptionFailed without distinguishing the
// cause.
func (c *Codec) DecryptJSON(blob *EncryptedBlob, out any) error {
	ciphertext, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	if err != nil {
		return fmt.Errorf("malformed ciphertext: %w", perrors.ErrDecryptionFailed)
	}
	nonce, err := base64.StdEncoding.DecodeString(blob.IV)
	if err != nil {
		return fmt.Errorf("malformed nonce: %w", perrors.ErrDecryptionFailed)
	}
	if len(nonce) != NonceSize {
		return fmt.Errorf("unexpected nonce length: %w", perrors.ErrDecryptionFailed)
	}

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return perrors.ErrDecryptionFailed
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("failed to unmarshal plaintext: %w", err)
	}
	return nil
}
