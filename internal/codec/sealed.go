package codec

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealedPrefix = "v2."
	keySize      = chacha20poly1305.KeySize
	nonceSize    = chacha20poly1305.NonceSizeX
	maxKeys      = 8
)

// keySalt separates this application's Argon2 keys from any other use of the
// same passphrase. Each message gets a random nonce instead of its own salt, so
// one derivation serves a whole room.
var keySalt = []byte("bearboo-letters/sealed/v2")

// Sealed derives a key from the passphrase with Argon2id and seals the text with
// XChaCha20-Poly1305. Tokens without the v2 prefix are handed to Legacy so history
// written by the keyless codecs stays readable.
type Sealed struct {
	Legacy Codec

	mu   sync.Mutex
	keys map[string][]byte // passphrase -> key, at most maxKeys entries
}

func NewSealed(legacy Codec) *Sealed {
	return &Sealed{Legacy: legacy, keys: map[string][]byte{}}
}

func (s *Sealed) Name() string { return "sealed" }

func (s *Sealed) key(passphrase string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[passphrase]; ok {
		return k
	}
	if len(s.keys) >= maxKeys {
		s.keys = map[string][]byte{}
	}
	k := argon2.IDKey([]byte(passphrase), keySalt, 2, 19*1024, 1, keySize)
	s.keys[passphrase] = k
	return k
}

func (s *Sealed) Encode(plaintext, passphrase string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(s.key(passphrase))
	if err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Sealed) Decode(token, passphrase string) (string, error) {
	if !strings.HasPrefix(token, sealedPrefix) {
		if s.Legacy == nil {
			return "", ErrUnreadable
		}
		return s.Legacy.Decode(token, passphrase)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, sealedPrefix))
	if err != nil || len(raw) < nonceSize+chacha20poly1305.Overhead {
		return "", ErrUnreadable
	}
	aead, err := chacha20poly1305.NewX(s.key(passphrase))
	if err != nil {
		return "", ErrUnreadable
	}
	pt, err := aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrUnreadable
	}
	return string(pt), nil
}
