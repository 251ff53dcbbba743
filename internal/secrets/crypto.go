// Package secrets protects sensitive values both at rest and in memory.
// Config fields are encrypted with a password-derived key before they are
// written to disk, and the active password itself lives in locked memory
// that never reaches swap.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// SecretPrefix marks encrypted values in persisted config files.
	SecretPrefix = "enc:"

	envelopeVersion = 1
	saltLen         = 16
)

var (
	// ErrInvalidPassword is returned when the password cannot decrypt a value.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidPayload is returned when an encrypted value is malformed.
	ErrInvalidPayload = errors.New("invalid encrypted payload")
)

// envelope is the JSON structure stored after the prefix. The version field
// lets the format evolve without breaking existing config files.
type envelope struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// EncryptString encrypts value with a key derived from password and returns
// a storage-safe string carrying the standard prefix. Empty values pass
// through unchanged.
func EncryptString(value, password string) (string, error) {
	if value == "" {
		return "", nil
	}

	env, err := seal([]byte(value), password)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return SecretPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// DecryptString reverses EncryptString. The bool reports whether the value
// carried the encryption prefix; unprefixed values are returned verbatim so
// hand-edited plaintext config files keep working.
func DecryptString(value, password string) (string, bool, error) {
	if value == "" {
		return "", false, nil
	}
	if !strings.HasPrefix(value, SecretPrefix) {
		return value, false, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SecretPrefix))
	if err != nil {
		return "", true, fmt.Errorf("%w: decode: %v", ErrInvalidPayload, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", true, fmt.Errorf("%w: parse: %v", ErrInvalidPayload, err)
	}

	plaintext, err := open(&env, password)
	if err != nil {
		return "", true, err
	}
	return string(plaintext), true, nil
}

func seal(data []byte, password string) (*envelope, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return &envelope{
		Version:    envelopeVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, data, nil)),
	}, nil
}

func open(env *envelope, password string) ([]byte, error) {
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidPayload, env.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: decode salt: %v", ErrInvalidPayload, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: decode nonce: %v", ErrInvalidPayload, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decode ciphertext: %v", ErrInvalidPayload, err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce size", ErrInvalidPayload)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return plaintext, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(password), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
