package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
)

// TokenCipher encrypts access tokens before they reach the durable store.
// With an empty secret it degrades to pass-through so development setups
// work without a key; call sites never branch on the mode.
type TokenCipher struct {
	key []byte
}

func NewTokenCipher(secret string) *TokenCipher {
	if secret == "" {
		return &TokenCipher{}
	}
	key := sha256.Sum256([]byte(secret))
	return &TokenCipher{key: key[:]}
}

func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	if c.key == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	ciphertext := aesGCM.Seal(nil, nonce, []byte(plaintext), nil)

	// Nonce is prepended so Decrypt can recover it.
	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

func (c *TokenCipher) Decrypt(encrypted string) (string, error) {
	if c.key == nil {
		return encrypted, nil
	}

	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return string(plaintext), nil
}
