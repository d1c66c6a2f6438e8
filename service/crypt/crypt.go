package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrDecryption is returned for any malformed, truncated or wrong-key input.
// Failure is detected structurally (padding and length checks), not by a MAC.
var ErrDecryption = errors.New("failed to decrypt memo")

const codeLength = 13

var codeAlphabet = []byte("abcdefghijklmnopqrstuvwxyz0123456789")

var codeRegex = regexp.MustCompile(`^[a-z0-9]{5,15}$`)

// Codec symmetrically encrypts short opaque tokens used as transaction memos.
// The key is derived once by hashing a long-lived secret to AES-256 length;
// each Encrypt call uses a fresh random IV, so equal plaintexts produce
// distinct ciphertexts.
type Codec struct {
	key []byte
}

// NewCodec derives an AES-256 key from the given secret
func NewCodec(secret string) *Codec {
	key := sha256.Sum256([]byte(secret))
	return &Codec{key: key[:]}
}

// Encrypt encrypts plaintext with AES-256-CBC and returns
// base64url(iv || ciphertext) without padding characters
func (c *Codec) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	combined := append(iv, ciphertext...)
	return base64.RawURLEncoding.EncodeToString(combined), nil
}

// Decrypt reverses Encrypt exactly, splitting the fixed-size IV prefix from
// the remainder. Returns ErrDecryption on malformed input.
func (c *Codec) Decrypt(encoded string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrDecryption)
	}

	if len(data) < aes.BlockSize*2 || len(data[aes.BlockSize:])%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: truncated buffer", ErrDecryption)
	}

	iv, ciphertext := data[:aes.BlockSize], data[aes.BlockSize:]

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDecryption, err)
	}

	return string(unpadded), nil
}

// GenerateCode mints a fresh random listing code
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// IsValidCode reports whether s has the shape of a generated listing code.
// This is a format sanity check only, not an authenticity check.
func IsValidCode(s string) bool {
	return codeRegex.MatchString(s)
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
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
