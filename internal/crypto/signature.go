package crypto

import (
	gocrypto "crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
)

type PrivateKey = gocrypto.PrivateKey
type PublicKey = gocrypto.PublicKey

// KeyPair holds an ephemeral in-memory keypair. The private half stays with
// whoever generated it; the public half may be shared freely.
type KeyPair struct {
	Scheme  string
	Private PrivateKey
	Public  PublicKey
}

// Scheme is an asymmetric signature algorithm. Verify reports failure as
// false and never panics, whatever the inputs.
type Scheme interface {
	Name() string
	GenerateKeyPair() (KeyPair, error)
	Sign(priv PrivateKey, payload []byte) ([]byte, error)
	Verify(pub PublicKey, payload, sig []byte) bool
	MarshalPublicKey(pub PublicKey) ([]byte, error)
	ParsePublicKey(b []byte) (PublicKey, error)
}

var (
	ErrUnknownScheme = errors.New("unknown signature scheme")
	ErrKeyType       = errors.New("key type does not match scheme")
)

const (
	SchemeRSAPSS    = "rsa-pss"
	SchemeEd25519   = "ed25519"
	SchemeSchnorr   = "schnorr"
	SchemeDilithium = "dilithium3"
)

// DefaultScheme is the reference scheme: RSA-PSS over SHA-256 with a 2048-bit modulus.
var DefaultScheme Scheme = RSAPSS{Bits: DefaultRSABits}

// SchemeByName resolves a scheme. rsaBits applies to rsa-pss only; zero means DefaultRSABits.
func SchemeByName(name string, rsaBits int) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SchemeRSAPSS, "rsa", "":
		if rsaBits == 0 {
			rsaBits = DefaultRSABits
		}
		return RSAPSS{Bits: rsaBits}, nil
	case SchemeEd25519:
		return Ed25519{}, nil
	case SchemeSchnorr, "secp256k1":
		return Schnorr{}, nil
	case SchemeDilithium, "dilithium":
		return Dilithium{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

func SchemeNames() []string {
	names := []string{SchemeRSAPSS, SchemeEd25519, SchemeSchnorr, SchemeDilithium}
	sort.Strings(names)
	return names
}

// GenerateKeyPair creates a fresh keypair with the reference scheme.
func GenerateKeyPair() (KeyPair, error) {
	return DefaultScheme.GenerateKeyPair()
}

// Sign signs payload with priv, choosing the scheme from the key's type.
func Sign(priv PrivateKey, payload []byte) ([]byte, error) {
	s, err := schemeForKey(priv)
	if err != nil {
		return nil, err
	}
	return s.Sign(priv, payload)
}

// Verify reports whether sig is a valid signature over exactly payload by the
// private key matching pub.
func Verify(pub PublicKey, payload, sig []byte) bool {
	s, err := schemeForKey(pub)
	if err != nil {
		return false
	}
	return s.Verify(pub, payload, sig)
}

// Fingerprint is a short, shareable identifier for a public key:
// base58(sha256(marshalled key)[:20]).
func Fingerprint(pub PublicKey) (string, error) {
	s, err := schemeForKey(pub)
	if err != nil {
		return "", err
	}
	raw, err := s.MarshalPublicKey(pub)
	if err != nil {
		return "", err
	}
	h := Sha256(raw)
	return base58.Encode(h[:20]), nil
}

func schemeForKey(key any) (Scheme, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		if k == nil || k.N == nil {
			break
		}
		return RSAPSS{Bits: k.N.BitLen()}, nil
	case *rsa.PublicKey:
		if k == nil || k.N == nil {
			break
		}
		return RSAPSS{Bits: k.N.BitLen()}, nil
	case ed25519.PrivateKey, ed25519.PublicKey:
		return Ed25519{}, nil
	case *secp256k1.PrivateKey, *secp256k1.PublicKey:
		return Schnorr{}, nil
	case *mode3.PrivateKey, *mode3.PublicKey:
		return Dilithium{}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrKeyType, key)
}

func keyTypeError(s Scheme, key any) error {
	return fmt.Errorf("%w: %s cannot use %T", ErrKeyType, s.Name(), key)
}
