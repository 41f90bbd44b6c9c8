package crypto

import (
	"crypto/rand"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Dilithium is the post-quantum Dilithium mode 3 lattice signature.
type Dilithium struct{}

func (Dilithium) Name() string { return SchemeDilithium }

func (s Dilithium) GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Scheme: s.Name(), Private: priv, Public: pub}, nil
}

func (s Dilithium) Sign(priv PrivateKey, payload []byte) ([]byte, error) {
	k, ok := priv.(*mode3.PrivateKey)
	if !ok || k == nil {
		return nil, keyTypeError(s, priv)
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(k, payload, sig)
	return sig, nil
}

func (Dilithium) Verify(pub PublicKey, payload, sig []byte) bool {
	k, ok := pub.(*mode3.PublicKey)
	if !ok || k == nil {
		return false
	}
	if len(sig) != mode3.SignatureSize {
		return false
	}
	return mode3.Verify(k, payload, sig)
}

func (s Dilithium) MarshalPublicKey(pub PublicKey) ([]byte, error) {
	k, ok := pub.(*mode3.PublicKey)
	if !ok || k == nil {
		return nil, keyTypeError(s, pub)
	}
	return k.Bytes(), nil
}

func (Dilithium) ParsePublicKey(b []byte) (PublicKey, error) {
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return &pk, nil
}
