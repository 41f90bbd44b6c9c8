package crypto

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Schnorr signs sha256(payload) with Schnorr signatures over secp256k1.
type Schnorr struct{}

func (Schnorr) Name() string { return SchemeSchnorr }

func (s Schnorr) GenerateKeyPair() (KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Scheme: s.Name(), Private: priv, Public: priv.PubKey()}, nil
}

func (s Schnorr) Sign(priv PrivateKey, payload []byte) ([]byte, error) {
	k, ok := priv.(*secp256k1.PrivateKey)
	if !ok || k == nil {
		return nil, keyTypeError(s, priv)
	}
	hash := sha256.Sum256(payload)
	sig, err := schnorr.Sign(k, hash[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

func (Schnorr) Verify(pub PublicKey, payload, sig []byte) bool {
	k, ok := pub.(*secp256k1.PublicKey)
	if !ok || k == nil {
		return false
	}
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(payload)
	return parsed.Verify(hash[:], k)
}

// MarshalPublicKey encodes the key in 33-byte compressed form.
func (s Schnorr) MarshalPublicKey(pub PublicKey) ([]byte, error) {
	k, ok := pub.(*secp256k1.PublicKey)
	if !ok || k == nil {
		return nil, keyTypeError(s, pub)
	}
	return k.SerializeCompressed(), nil
}

func (Schnorr) ParsePublicKey(b []byte) (PublicKey, error) {
	return secp256k1.ParsePubKey(b)
}
