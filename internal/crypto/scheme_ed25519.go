package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
)

// Ed25519 signatures are deterministic: the same key and payload always
// produce the same bytes.
type Ed25519 struct{}

func (Ed25519) Name() string { return SchemeEd25519 }

func (s Ed25519) GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Scheme: s.Name(), Private: priv, Public: pub}, nil
}

func (s Ed25519) Sign(priv PrivateKey, payload []byte) ([]byte, error) {
	k, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, keyTypeError(s, priv)
	}
	if len(k) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid ed25519 private key size")
	}
	return ed25519.Sign(k, payload), nil
}

func (Ed25519) Verify(pub PublicKey, payload, sig []byte) bool {
	k, ok := pub.(ed25519.PublicKey)
	if !ok {
		return false
	}
	if len(k) != ed25519.PublicKeySize {
		return false
	}
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(k, payload, sig)
}

func (s Ed25519) MarshalPublicKey(pub PublicKey) ([]byte, error) {
	k, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, keyTypeError(s, pub)
	}
	if len(k) != ed25519.PublicKeySize {
		return nil, errors.New("invalid ed25519 public key size")
	}
	out := make([]byte, len(k))
	copy(out, k)
	return out, nil
}

func (Ed25519) ParsePublicKey(b []byte) (PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.New("invalid ed25519 public key size")
	}
	out := make([]byte, len(b))
	copy(out, b)
	return ed25519.PublicKey(out), nil
}
