// Package signing issues and checks the HMAC tokens that authenticate admin
// dashboard sessions.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed = errors.New("malformed token")
	ErrExpired   = errors.New("token expired")
	ErrSignature = errors.New("invalid token signature")
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns the hex signature of subject and expiry.
func (s *Signer) Sign(subject string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", subject, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate compares the provided signature with the expected one.
func (s *Signer) Validate(subject, expires, signature string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	expected := s.Sign(subject, exp)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Issue returns a bearer token for subject valid for ttl, together with its
// expiry time. The format is base64url(subject).expires.signature.
func (s *Signer) Issue(subject string, ttl time.Duration) (string, time.Time) {
	expires := s.now().Add(ttl).Truncate(time.Second)
	exp := expires.Unix()
	enc := base64.RawURLEncoding.EncodeToString([]byte(subject))
	return enc + "." + strconv.FormatInt(exp, 10) + "." + s.Sign(subject, exp), expires
}

// Parse verifies a token produced by Issue and returns its subject.
func (s *Signer) Parse(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrMalformed
	}
	subject := string(raw)
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrMalformed
	}
	if !s.Validate(subject, parts[1], parts[2]) {
		return "", ErrSignature
	}
	if !s.now().Before(time.Unix(exp, 0)) {
		return "", ErrExpired
	}
	return subject, nil
}
