package blockchain

import (
	"fmt"
	"time"

	"github.com/VeltarosLabs/powledger/internal/consensus"
)

const (
	// Difficulty is the number of leading hex zeros required of
	// sha256(decimal(prev.Proof) || decimal(proof)).
	Difficulty = 4

	// GenesisProof is a sentinel; no puzzle is solved to produce it.
	GenesisProof uint64 = 100

	// GenesisPreviousHash marks the genesis block. It is not a digest.
	GenesisPreviousHash = "0"
)

type Transaction struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}

type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    time.Time     `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	Proof        uint64        `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
}

// BlockView is the presentation form of a Block.
type BlockView struct {
	Index            uint64        `json:"index"`
	TimestampSeconds float64       `json:"timestamp"`
	Transactions     []Transaction `json:"transactions"`
	Proof            uint64        `json:"proof"`
	PreviousHashHex  string        `json:"previous_hash"`
	MerkleRootHex    string        `json:"merkle_root,omitempty"`
}

func (b Block) View() BlockView {
	v := BlockView{
		Index:            b.Index,
		TimestampSeconds: float64(b.Timestamp.UnixNano()) / float64(time.Second),
		Transactions:     cloneTxs(b.Transactions),
		Proof:            b.Proof,
		PreviousHashHex:  b.PreviousHash,
	}
	if root, err := MerkleRoot(b.Transactions); err == nil && len(b.Transactions) > 0 {
		v.MerkleRootHex = root.Hex()
	}
	return v
}

func (b Block) clone() Block {
	b.Transactions = cloneTxs(b.Transactions)
	return b
}

func cloneTxs(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}

// Canonical encoding. Field order below is lexicographic by JSON key, which
// is the order encoding/json emits them in.
type canonicalTx struct {
	Amount    float64 `json:"amount"`
	Recipient string  `json:"recipient"`
	Sender    string  `json:"sender"`
}

type canonicalBlock struct {
	Index        uint64        `json:"index"`
	PreviousHash string        `json:"previous_hash"`
	Proof        uint64        `json:"proof"`
	Timestamp    int64         `json:"timestamp"`
	Transactions []canonicalTx `json:"transactions"`
}

// CanonicalBytes encodes b as compact JSON with keys sorted, no HTML
// escaping, the timestamp as integer Unix nanoseconds, and transactions in
// block order. The same logical block always yields the same bytes.
func CanonicalBytes(b Block) ([]byte, error) {
	cb := canonicalBlock{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Proof:        b.Proof,
		Timestamp:    b.Timestamp.UnixNano(),
		Transactions: make([]canonicalTx, 0, len(b.Transactions)),
	}
	for _, tx := range b.Transactions {
		cb.Transactions = append(cb.Transactions, canonicalTx{
			Amount:    tx.Amount,
			Recipient: tx.Recipient,
			Sender:    tx.Sender,
		})
	}

	raw, err := canonicalJSON(cb)
	if err != nil {
		return nil, fmt.Errorf("canonical encoding of block %d: %w", b.Index, err)
	}
	return raw, nil
}

// HashBlock is sha256(CanonicalBytes(b)).
func HashBlock(b Block) (consensus.Digest, error) {
	raw, err := CanonicalBytes(b)
	if err != nil {
		return consensus.Digest{}, err
	}
	return consensus.Sum(raw), nil
}

func NewGenesisBlock(now time.Time) Block {
	return Block{
		Index:        0,
		Timestamp:    now,
		Transactions: []Transaction{},
		Proof:        GenesisProof,
		PreviousHash: GenesisPreviousHash,
	}
}
