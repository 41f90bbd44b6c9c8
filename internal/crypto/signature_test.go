package crypto

import (
	"bytes"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
)

var (
	rsaOnce sync.Once
	rsaKP   KeyPair
	rsaErr  error
)

// sharedRSA avoids generating a fresh 2048-bit key in every test.
func sharedRSA(t *testing.T) KeyPair {
	t.Helper()
	rsaOnce.Do(func() { rsaKP, rsaErr = GenerateKeyPair() })
	if rsaErr != nil {
		t.Fatalf("GenerateKeyPair: %v", rsaErr)
	}
	return rsaKP
}

func allSchemes() []Scheme {
	return []Scheme{RSAPSS{Bits: DefaultRSABits}, Ed25519{}, Schnorr{}, Dilithium{}}
}

func TestGenerateKeyPairReference(t *testing.T) {
	kp := sharedRSA(t)
	if kp.Scheme != SchemeRSAPSS {
		t.Fatalf("scheme = %q, want %q", kp.Scheme, SchemeRSAPSS)
	}
	priv, ok := kp.Private.(*rsa.PrivateKey)
	if !ok {
		t.Fatalf("private key type %T", kp.Private)
	}
	if priv.N.BitLen() != DefaultRSABits {
		t.Errorf("modulus = %d bits, want %d", priv.N.BitLen(), DefaultRSABits)
	}
	if priv.E != 65537 {
		t.Errorf("public exponent = %d, want 65537", priv.E)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("Cobb37931"),
		{},
		bytes.Repeat([]byte{0xAB}, 4096),
	}

	for _, s := range allSchemes() {
		t.Run(s.Name(), func(t *testing.T) {
			kp := keyPairFor(t, s)
			for _, p := range payloads {
				sig, err := Sign(kp.Private, p)
				if err != nil {
					t.Fatalf("Sign: %v", err)
				}
				if !Verify(kp.Public, p, sig) {
					t.Fatalf("Verify failed for payload of %d bytes", len(p))
				}
				if !s.Verify(kp.Public, p, sig) {
					t.Fatalf("scheme Verify failed for payload of %d bytes", len(p))
				}
			}
		})
	}
}

func TestVerifyTamperSensitivity(t *testing.T) {
	msg := []byte("Cobb37931")

	for _, s := range allSchemes() {
		t.Run(s.Name(), func(t *testing.T) {
			kp := keyPairFor(t, s)
			other, err := s.GenerateKeyPair()
			if err != nil {
				t.Fatal(err)
			}

			sig, err := Sign(kp.Private, msg)
			if err != nil {
				t.Fatal(err)
			}

			if Verify(kp.Public, append(append([]byte{}, msg...), 'x'), sig) {
				t.Error("tampered payload verified")
			}
			if Verify(other.Public, msg, sig) {
				t.Error("unrelated key verified")
			}

			flipped := append([]byte{}, sig...)
			flipped[len(flipped)/2] ^= 0x01
			if Verify(kp.Public, msg, flipped) {
				t.Error("tampered signature verified")
			}

			for _, bad := range [][]byte{nil, {}, sig[:len(sig)-1], append(append([]byte{}, sig...), 0)} {
				if Verify(kp.Public, msg, bad) {
					t.Errorf("malformed signature of %d bytes verified", len(bad))
				}
			}
		})
	}
}

func TestRSAPSSIsProbabilistic(t *testing.T) {
	kp := sharedRSA(t)
	msg := []byte("same payload")

	a, err := Sign(kp.Private, msg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Sign(kp.Private, msg)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two PSS signatures over the same payload are identical")
	}
	if !Verify(kp.Public, msg, a) || !Verify(kp.Public, msg, b) {
		t.Fatal("both signatures must verify")
	}
}

func TestVerifyWrongKeyType(t *testing.T) {
	ed, err := Ed25519{}.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := Sign(ed.Private, []byte("m"))
	if err != nil {
		t.Fatal(err)
	}

	if (RSAPSS{}).Verify(ed.Public, []byte("m"), sig) {
		t.Error("rsa-pss accepted an ed25519 key")
	}
	if Verify("not a key", []byte("m"), sig) {
		t.Error("Verify accepted a string key")
	}
	if Verify(nil, []byte("m"), sig) {
		t.Error("Verify accepted a nil key")
	}
	if Verify(&rsa.PublicKey{}, []byte("m"), sig) {
		t.Error("Verify accepted an empty rsa key")
	}
	if _, err := Sign("not a key", []byte("m")); !errors.Is(err, ErrKeyType) {
		t.Errorf("Sign with bad key = %v, want ErrKeyType", err)
	}
	if _, err := (Schnorr{}).Sign(ed.Private, []byte("m")); !errors.Is(err, ErrKeyType) {
		t.Errorf("schnorr Sign with ed25519 key = %v, want ErrKeyType", err)
	}
}

func TestPublicKeyRoundTrip(t *testing.T) {
	for _, s := range allSchemes() {
		t.Run(s.Name(), func(t *testing.T) {
			kp := keyPairFor(t, s)
			raw, err := s.MarshalPublicKey(kp.Public)
			if err != nil {
				t.Fatal(err)
			}
			pub, err := s.ParsePublicKey(raw)
			if err != nil {
				t.Fatal(err)
			}

			msg := []byte("round trip")
			sig, err := s.Sign(kp.Private, msg)
			if err != nil {
				t.Fatal(err)
			}
			if !s.Verify(pub, msg, sig) {
				t.Fatal("parsed public key does not verify")
			}

			fp1, err := Fingerprint(kp.Public)
			if err != nil {
				t.Fatal(err)
			}
			fp2, err := Fingerprint(pub)
			if err != nil {
				t.Fatal(err)
			}
			if fp1 == "" || fp1 != fp2 {
				t.Fatalf("fingerprints differ: %q vs %q", fp1, fp2)
			}
		})
	}
}

func TestSchemeByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", SchemeRSAPSS},
		{"RSA-PSS", SchemeRSAPSS},
		{"ed25519", SchemeEd25519},
		{"secp256k1", SchemeSchnorr},
		{"dilithium3", SchemeDilithium},
	}
	for _, tt := range tests {
		s, err := SchemeByName(tt.name, 0)
		if err != nil {
			t.Fatalf("SchemeByName(%q): %v", tt.name, err)
		}
		if s.Name() != tt.want {
			t.Errorf("SchemeByName(%q) = %s, want %s", tt.name, s.Name(), tt.want)
		}
	}

	if _, err := SchemeByName("md5", 0); !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("SchemeByName(md5) = %v, want ErrUnknownScheme", err)
	}
	if len(SchemeNames()) != 4 {
		t.Errorf("SchemeNames() = %v", SchemeNames())
	}
}

func TestRSAPSSRejectsSmallModulus(t *testing.T) {
	if _, err := (RSAPSS{Bits: 512}).GenerateKeyPair(); err == nil {
		t.Fatal("expected error for 512-bit modulus")
	}
}

func keyPairFor(t *testing.T, s Scheme) KeyPair {
	t.Helper()
	if s.Name() == SchemeRSAPSS {
		return sharedRSA(t)
	}
	kp, err := s.GenerateKeyPair()
	if err != nil {
		t.Fatalf("%s GenerateKeyPair: %v", s.Name(), err)
	}
	return kp
}
