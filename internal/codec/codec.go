// Package codec turns message text into the tokens stored in the realtime store.
//
// The default codecs are NOT encryption. A token is "passphrase:plaintext" run
// through a reversible, keyless text transform, so anyone who can read the token can
// recover both the message and the passphrase. The passphrase check only decides
// whether a client renders the text or the unreadable placeholder. Sealed is the
// keyed alternative; it has to be selected explicitly.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Placeholder is shown instead of any message that does not decode.
const Placeholder = "[encrypted message - use the same passphrase to view]"

var (
	ErrUnreadable        = errors.New("codec: message unreadable")
	ErrInvalidPassphrase = errors.New("codec: passphrase must be non-empty and must not contain ':'")
)

type Codec interface {
	Encode(plaintext, passphrase string) (string, error)
	Decode(token, passphrase string) (string, error)
	Name() string
}

// ValidatePassphrase rejects passphrases the "passphrase:text" framing cannot carry.
func ValidatePassphrase(p string) error {
	if p == "" || strings.Contains(p, ":") {
		return ErrInvalidPassphrase
	}
	return nil
}

// ByName returns the codec registered under name. Empty selects Base64.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "base64":
		return Base64{}, nil
	case "uri":
		return URI{}, nil
	case "sealed":
		return NewSealed(Base64{}), nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}

// split checks the leading segment of a decoded token against the passphrase.
func split(decoded, passphrase string) (string, error) {
	if !utf8.ValidString(decoded) {
		return "", ErrUnreadable
	}
	head, rest, ok := strings.Cut(decoded, ":")
	if !ok || head != passphrase {
		return "", ErrUnreadable
	}
	return rest, nil
}

// Base64 is standard Base64 over the UTF-8 bytes, matching btoa() for ASCII input.
type Base64 struct{}

func (Base64) Name() string { return "base64" }

func (Base64) Encode(plaintext, passphrase string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(passphrase + ":" + plaintext)), nil
}

func (Base64) Decode(token, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", ErrUnreadable
	}
	return split(string(raw), passphrase)
}

// URI is the encodeURIComponent form used by the room-code clients.
type URI struct{}

func (URI) Name() string { return "uri" }

func (URI) Encode(plaintext, passphrase string) (string, error) {
	return escapeComponent(passphrase + ":" + plaintext), nil
}

func (URI) Decode(token, passphrase string) (string, error) {
	s, err := url.PathUnescape(token)
	if err != nil {
		return "", ErrUnreadable
	}
	return split(s, passphrase)
}

const upperhex = "0123456789ABCDEF"

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

func escapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}
