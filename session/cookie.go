package session

import (
	"crypto/rand"
	"encoding/base64"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

const (
	// cookieValueBytes is the amount of randomness in a cookie value.
	cookieValueBytes = 64

	// MaxIDLength bounds ids accepted by stores; it matches the widest
	// primary key every supported dialect can index.
	MaxIDLength = 255
)

// IDFromCookieValue derives the session id from a cookie value. The cookie
// value is standard base64; the id is the base64 BLAKE3 hash of its bytes, so
// a leaked id can not be turned back into a usable cookie.
func IDFromCookieValue(cookieValue string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cookieValue)
	if err != nil {
		return "", &Error{Op: "decode cookie", Kind: ErrInvalidCookie, Err: err}
	}
	sum := blake3.Sum256(raw)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// ValidateID reports whether id may be used as a primary key.
func ValidateID(id string) error {
	switch {
	case id == "":
		return &Error{Op: "validate", Kind: ErrInvalidID, Err: errEmptyID}
	case len(id) > MaxIDLength:
		return &Error{Op: "validate", ID: id[:16], Kind: ErrInvalidID, Err: errLongID}
	case !utf8.ValidString(id):
		return &Error{Op: "validate", Kind: ErrInvalidID, Err: errBadUTF8}
	}
	for i := 0; i < len(id); i++ {
		if id[i] == 0 {
			return &Error{Op: "validate", Kind: ErrInvalidID, Err: errNULByte}
		}
	}
	return nil
}

func generateCookieValue() string {
	buf := make([]byte, cookieValueBytes)
	// crypto/rand.Read never returns an error.
	_, _ = rand.Read(buf)
	return base64.StdEncoding.EncodeToString(buf)
}
