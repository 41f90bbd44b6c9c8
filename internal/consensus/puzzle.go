package consensus

import (
	"encoding/hex"
	"fmt"
	"strconv"

	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
)

// MaxDifficulty is the number of hex characters in a digest.
const MaxDifficulty = 64

type Digest [32]byte

func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

func (d Digest) String() string { return d.Hex() }

// Sum computes the puzzle digest (SHA-256) of data.
func Sum(data []byte) Digest {
	return Digest(vcrypto.Sha256(data))
}

// Satisfies reports whether the first difficulty hex characters of d are '0'.
// A non-positive difficulty is always satisfied; one above MaxDifficulty never is.
func Satisfies(d Digest, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > MaxDifficulty {
		return false
	}
	full := difficulty / 2
	for i := 0; i < full; i++ {
		if d[i] != 0 {
			return false
		}
	}
	if difficulty%2 == 1 && d[full]>>4 != 0 {
		return false
	}
	return true
}

func ValidateDifficulty(difficulty int) error {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidDifficulty, difficulty, MaxDifficulty)
	}
	return nil
}

// SeedFunc builds the puzzle input for a nonce.
type SeedFunc func(nonce uint64) []byte

// LabelSeed builds label || decimal(nonce), e.g. "Cobb" -> "Cobb0", "Cobb1", ...
func LabelSeed(label string) SeedFunc {
	prefix := []byte(label)
	return func(nonce uint64) []byte {
		buf := make([]byte, 0, len(prefix)+20)
		buf = append(buf, prefix...)
		return strconv.AppendUint(buf, nonce, 10)
	}
}

// ProofPairSeed builds decimal(prevProof) || decimal(nonce).
func ProofPairSeed(prevProof uint64) SeedFunc {
	return LabelSeed(strconv.FormatUint(prevProof, 10))
}
