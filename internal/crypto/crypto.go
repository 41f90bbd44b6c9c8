package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Text encodings accepted by Encode and Decode.
const (
	EncodingHex    = "hex"
	EncodingBase58 = "base58"
)

func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("decoded hex is empty")
	}
	return b, nil
}

func Encode(b []byte, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case EncodingHex, "":
		return hex.EncodeToString(b), nil
	case EncodingBase58:
		return base58.Encode(b), nil
	default:
		return "", fmt.Errorf("unknown encoding %q", encoding)
	}
}

func Decode(s string, encoding string) ([]byte, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case EncodingHex, "":
		return DecodeHex(s)
	case EncodingBase58:
		b, err := base58.Decode(s)
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			return nil, errors.New("decoded base58 is empty")
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
}
