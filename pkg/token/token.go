// Package token seals booking verification payloads into opaque strings.
// The sealed token is what clients render as a QR code. It is a lookup key
// bound to a booking and its window, not a capability credential.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a base64-encoded 32-byte key.
func NewSealer(encodedKey string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid seal key encoding: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid seal key: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Sealer{aead: aead}, nil
}

// Seal produces an opaque token binding a booking id to its time window.
func (s *Sealer) Seal(bookingID string, start, end time.Time) (string, error) {
	plaintext := []byte(fmt.Sprintf("%s:%d:%d", bookingID, start.Unix(), end.Unix()))

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// SealString seals an arbitrary payload, used for the QR string handed out
// at registration.
func (s *Sealer) SealString(payload string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nonce, nonce, []byte(payload), nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open recovers the booking id and window from a sealed token.
func (s *Sealer) Open(sealed string) (string, time.Time, time.Time, error) {
	var zero time.Time

	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", zero, zero, fmt.Errorf("invalid token encoding: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", zero, zero, fmt.Errorf("token too short")
	}

	pt, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", zero, zero, fmt.Errorf("token unsealing failed: %w", err)
	}

	parts := strings.Split(string(pt), ":")
	if len(parts) != 3 {
		return "", zero, zero, fmt.Errorf("invalid token payload")
	}

	startUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", zero, zero, fmt.Errorf("invalid token payload")
	}
	endUnix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", zero, zero, fmt.Errorf("invalid token payload")
	}

	return parts[0], time.Unix(startUnix, 0).UTC(), time.Unix(endUnix, 0).UTC(), nil
}
