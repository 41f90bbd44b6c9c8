package blockchain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/VeltarosLabs/powledger/internal/consensus"
)

// TxID is sha256 over the transaction's canonical JSON form.
func TxID(tx Transaction) (consensus.Digest, error) {
	raw, err := canonicalJSON(canonicalTx{
		Amount:    tx.Amount,
		Recipient: tx.Recipient,
		Sender:    tx.Sender,
	})
	if err != nil {
		return consensus.Digest{}, fmt.Errorf("canonical encoding of transaction: %w", err)
	}
	return consensus.Sum(raw), nil
}

// MerkleRoot summarizes txs in block order. It is informational only and
// takes no part in block hashing.
// Rules:
// - Leaves are TxIDs
// - If odd number of nodes at any level, duplicate the last
// - Parent = sha256(left || right)
// - No transactions gives the zero digest
func MerkleRoot(txs []Transaction) (consensus.Digest, error) {
	if len(txs) == 0 {
		return consensus.Digest{}, nil
	}

	nodes := make([]consensus.Digest, 0, len(txs))
	for _, tx := range txs {
		id, err := TxID(tx)
		if err != nil {
			return consensus.Digest{}, err
		}
		nodes = append(nodes, id)
	}

	var pair [64]byte
	for len(nodes) > 1 {
		if len(nodes)%2 == 1 {
			nodes = append(nodes, nodes[len(nodes)-1])
		}

		next := make([]consensus.Digest, 0, len(nodes)/2)
		for i := 0; i < len(nodes); i += 2 {
			n := copy(pair[:], nodes[i][:])
			copy(pair[n:], nodes[i+1][:])
			next = append(next, consensus.Sum(pair[:]))
		}
		nodes = next
	}
	return nodes[0], nil
}

func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
