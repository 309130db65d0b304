// Package guard seals embedded payloads with a password-derived AES-256 key.
//
// The key schedule is deterministic: the same password always yields the
// same key and IV. The LSB channel relies on this because it extracts and
// encrypts the whole sample plane after the cover bits are already in place.
package guard

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"golang.org/x/crypto/pbkdf2"
)

const (
	BlockSize  = aes.BlockSize
	iterations = 100000
	keySize    = 32
)

var salt = []byte("stegocodec.guard.v1")

func deriveKey(password string) (key, iv []byte) {
	material := pbkdf2.Key([]byte(password), salt, iterations, keySize+BlockSize, sha256.New)
	return material[:keySize], material[keySize:]
}

// Encrypt pads plain with PKCS#7 and encrypts it with AES-256-CBC. The output
// is always SealedLen(len(plain)) bytes.
func Encrypt(password string, plain []byte) ([]byte, error) {
	key, iv := deriveKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	pad := BlockSize - len(plain)%BlockSize
	buf := make([]byte, len(plain)+pad)
	copy(buf, plain)
	copy(buf[len(plain):], bytes.Repeat([]byte{byte(pad)}, pad))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
	return buf, nil
}

// Decrypt reverses Encrypt. A wrong password almost always shows up as a bad
// pad and is reported as codec.ErrDecryptionFailure.
func Decrypt(password string, ct []byte) ([]byte, error) {
	if len(ct) == 0 || len(ct)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", codec.ErrDecryptionFailure, len(ct))
	}
	key, iv := deriveKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)

	pad := int(out[len(out)-1])
	if pad == 0 || pad > BlockSize {
		return nil, fmt.Errorf("%w: bad padding", codec.ErrDecryptionFailure)
	}
	for _, b := range out[len(out)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: bad padding", codec.ErrDecryptionFailure)
		}
	}
	return out[:len(out)-pad], nil
}

// SealedLen is the ciphertext length for n plaintext bytes.
func SealedLen(n int) int {
	return n + BlockSize - n%BlockSize
}

// MaxPlainLen is the largest plaintext whose ciphertext fits in space bytes.
func MaxPlainLen(space int) int {
	if space < BlockSize {
		return 0
	}
	return space/BlockSize*BlockSize - 1
}
