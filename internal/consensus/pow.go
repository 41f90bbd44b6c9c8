package consensus

import "fmt"

// PoW checks the proof-pair rule: sha256(decimal(prevProof) || decimal(proof))
// must satisfy Difficulty.
type PoW struct {
	Difficulty int
}

func NewPoW(difficulty int) *PoW { return &PoW{Difficulty: difficulty} }

func (p *PoW) ValidateProof(prevProof, proof uint64) error {
	d := Sum(ProofPairSeed(prevProof)(proof))
	if !Satisfies(d, p.Difficulty) {
		return fmt.Errorf("%w: proof %d after %d hashes to %s", ErrInvalidProof, proof, prevProof, d.Hex())
	}
	return nil
}
