package crypto

import (
	gocrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
)

const (
	DefaultRSABits = 2048
	MinRSABits     = 1024
)

// RSAPSS signs with RSASSA-PSS: SHA-256 message digest, MGF1 with SHA-256, and
// the maximum salt length. Each signature draws a fresh salt, so two
// signatures over the same payload differ but both verify.
type RSAPSS struct {
	Bits int
}

func (s RSAPSS) Name() string { return SchemeRSAPSS }

func (s RSAPSS) GenerateKeyPair() (KeyPair, error) {
	bits := s.Bits
	if bits == 0 {
		bits = DefaultRSABits
	}
	if bits < MinRSABits {
		return KeyPair{}, fmt.Errorf("rsa modulus too small: %d bits (min %d)", bits, MinRSABits)
	}
	// rsa.GenerateKey always uses public exponent 65537.
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Scheme: s.Name(), Private: priv, Public: &priv.PublicKey}, nil
}

func (s RSAPSS) Sign(priv PrivateKey, payload []byte) ([]byte, error) {
	k, ok := priv.(*rsa.PrivateKey)
	if !ok || k == nil {
		return nil, keyTypeError(s, priv)
	}
	h := sha256.Sum256(payload)
	return rsa.SignPSS(rand.Reader, k, gocrypto.SHA256, h[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       gocrypto.SHA256,
	})
}

func (s RSAPSS) Verify(pub PublicKey, payload, sig []byte) bool {
	k, ok := pub.(*rsa.PublicKey)
	if !ok || k == nil || k.N == nil || len(sig) == 0 {
		return false
	}
	h := sha256.Sum256(payload)
	err := rsa.VerifyPSS(k, gocrypto.SHA256, h[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       gocrypto.SHA256,
	})
	return err == nil
}

// MarshalPublicKey encodes the key as PKIX DER.
func (s RSAPSS) MarshalPublicKey(pub PublicKey) ([]byte, error) {
	k, ok := pub.(*rsa.PublicKey)
	if !ok || k == nil {
		return nil, keyTypeError(s, pub)
	}
	return x509.MarshalPKIXPublicKey(k)
}

func (s RSAPSS) ParsePublicKey(b []byte) (PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(b)
	if err != nil {
		return nil, err
	}
	k, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, keyTypeError(s, key)
	}
	return k, nil
}
