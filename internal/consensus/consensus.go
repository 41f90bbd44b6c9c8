package consensus

import "errors"

// Engine defines the validation interface for consensus.
type Engine interface {
	ValidateProof(prevProof, proof uint64) error
}

var (
	ErrInvalidConsensus  = errors.New("invalid consensus")
	ErrInvalidProof      = errors.New("invalid proof of work")
	ErrInvalidDifficulty = errors.New("difficulty out of range")
)
