package rand

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SessionTokenBytes is the entropy of a session token.
const SessionTokenBytes = 32

func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	read, err := rand.Read(b)
	if err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	if read < n {
		return nil, fmt.Errorf("short random read: %d < %d", read, n)
	}
	return b, nil
}

// String returns n random bytes encoded as URL safe base64.
func String(n int) (string, error) {
	b, err := Bytes(n)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func SessionToken() (string, error) {
	return String(SessionTokenBytes)
}
