// Package secrets encrypts credential material before it reaches the state
// file. The key is derived from a constant passphrase and salt: this keeps
// plaintext out of casual inspection of the file, it is not a defense against
// anyone who can read this source. Known limitation, kept deliberately.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encPrefix = "enc_v1:"

	passphrase = "pipewatch-v1-encryption-key"
	keySalt    = "pipewatch-salt-v1"
	iterations = 100000
	keyLen     = 32
	nonceLen   = 12
)

// ErrDecrypt is returned when a prefixed value fails decoding or
// authentication. Callers must surface it rather than fall back to an empty
// secret.
var ErrDecrypt = errors.New("failed to decrypt stored secret")

//nolint:gochecknoglobals
var deriveOnce = sync.OnceValue(func() []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(keySalt), iterations, keyLen, sha256.New)
})

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveOnce())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext as enc_v1:base64(nonce || ciphertext+tag).
// Empty input stays empty so unset secrets round-trip as unset.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aesgcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without the version prefix are returned
// unchanged: they predate encryption-at-rest and stay readable.
func Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, encPrefix) {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	aesgcm, err := newGCM()
	if err != nil {
		return "", err
	}

	if len(data) < nonceLen {
		return "", fmt.Errorf("%w: ciphertext shorter than nonce", ErrDecrypt)
	}

	nonce, ciphertext := data[:nonceLen], data[nonceLen:]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return string(plaintext), nil
}
