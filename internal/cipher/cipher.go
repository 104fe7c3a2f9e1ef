package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrCorruptedMessage marks a stored ciphertext that cannot be decrypted.
// History assembly drops such records instead of failing the whole fetch.
var ErrCorruptedMessage = errors.New("corrupted message")

// Cipher encrypts message bodies with AES-256-CBC before they hit storage.
// The key is fixed process-wide configuration; rotating it invalidates every
// previously stored ciphertext.
type Cipher struct {
	key []byte
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("cipher key must be exactly 32 bytes, got %d", len(key))
	}
	return &Cipher{key: key}, nil
}

// Encrypt produces a token of the form "ivHex:cipherHex". A fresh random IV
// is generated on every call, so two encryptions of the same plaintext yield
// different tokens.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

// Decrypt reverses Encrypt. Malformed tokens return ErrCorruptedMessage, never
// a panic: the read path must be able to skip a bad record and keep going.
func (c *Cipher) Decrypt(token string) (string, error) {
	ivHex, cipherHex, found := strings.Cut(token, ":")
	if !found {
		return "", ErrCorruptedMessage
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrCorruptedMessage
	}

	encrypted, err := hex.DecodeString(cipherHex)
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return "", ErrCorruptedMessage
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	decrypted := make([]byte, len(encrypted))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, encrypted)

	plaintext, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return "", ErrCorruptedMessage
	}

	return string(plaintext), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding byte")
	}

	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding byte")
		}
	}

	return data[:len(data)-padding], nil
}
