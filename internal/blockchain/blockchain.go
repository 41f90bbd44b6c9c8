package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/VeltarosLabs/powledger/internal/consensus"
)

var (
	ErrInvalidBlock  = errors.New("invalid block")
	ErrBrokenLink    = fmt.Errorf("%w: previous hash mismatch", ErrInvalidBlock)
	ErrBadIndex      = fmt.Errorf("%w: index does not match position", ErrInvalidBlock)
	ErrInvalidAmount = errors.New("amount must be a finite number")
)

// Chain is an append-only sequence of blocks rooted at a genesis block, plus
// the pool of transactions waiting for the next block.
type Chain struct {
	mu sync.RWMutex

	// createMu serializes CreateBlock: read tip, mine, append.
	createMu sync.Mutex

	blocks  []Block
	pending []Transaction

	difficulty int
	workers    int
	engine     consensus.Engine
	miner      *consensus.Miner
	now        func() time.Time
	log        *slog.Logger
}

type Option func(*Chain)

func WithLogger(log *slog.Logger) Option {
	return func(c *Chain) {
		if log != nil {
			c.log = log
		}
	}
}

// WithWorkers sets how many goroutines race on each block's puzzle.
func WithWorkers(n int) Option {
	return func(c *Chain) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithDifficulty overrides the default Difficulty of 4.
func WithDifficulty(d int) Option {
	return func(c *Chain) { c.difficulty = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Chain) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a chain holding only the genesis block.
func New(opts ...Option) *Chain {
	c := &Chain{
		difficulty: Difficulty,
		workers:    1,
		now:        func() time.Time { return time.Now().UTC() },
		log:        slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}

	c.engine = consensus.NewPoW(c.difficulty)
	c.miner = consensus.NewMiner(c.difficulty, c.workers, c.log)
	c.blocks = []Block{NewGenesisBlock(c.now())}
	return c
}

func (c *Chain) Difficulty() int { return c.difficulty }

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

func (c *Chain) Genesis() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[0].clone()
}

func (c *Chain) Last() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1].clone()
}

// Blocks returns a deep copy of the chain.
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Block, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = b.clone()
	}
	return out
}

// AddTransaction queues a transaction for the next block. Balances are not
// checked.
func (c *Chain) AddTransaction(sender, recipient string, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	c.mu.Lock()
	c.pending = append(c.pending, Transaction{Sender: sender, Recipient: recipient, Amount: amount})
	c.mu.Unlock()
	return nil
}

func (c *Chain) Pending() []Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneTxs(c.pending)
}

func (c *Chain) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// CreateBlock drains the pending pool, mines a proof against the last
// block's proof, links to the last block's hash, and appends the result.
// Transactions added while mining go into the following block. If mining
// stops early (ctx done), the drained transactions are put back at the front
// of the pool and the chain is unchanged.
func (c *Chain) CreateBlock(ctx context.Context) (Block, error) {
	c.createMu.Lock()
	defer c.createMu.Unlock()

	c.mu.Lock()
	prev := c.blocks[len(c.blocks)-1]
	index := uint64(len(c.blocks))
	txs := c.pending
	c.pending = nil
	c.mu.Unlock()

	if txs == nil {
		txs = []Transaction{}
	}

	prevHash, err := HashBlock(prev)
	if err != nil {
		c.requeue(txs)
		return Block{}, err
	}

	res, err := c.miner.Solve(ctx, consensus.ProofPairSeed(prev.Proof))
	if err != nil {
		c.requeue(txs)
		return Block{}, fmt.Errorf("mine block %d: %w", index, err)
	}

	b := Block{
		Index:        index,
		Timestamp:    c.now(),
		Transactions: txs,
		Proof:        res.Nonce,
		PreviousHash: prevHash.Hex(),
	}

	c.mu.Lock()
	c.blocks = append(c.blocks, b)
	c.mu.Unlock()

	c.log.Info("block created",
		"index", b.Index,
		"proof", b.Proof,
		"txs", len(b.Transactions),
		"prevHash", b.PreviousHash,
		"elapsed", res.Elapsed,
	)
	return b.clone(), nil
}

func (c *Chain) requeue(txs []Transaction) {
	if len(txs) == 0 {
		return
	}
	c.mu.Lock()
	merged := make([]Transaction, 0, len(txs)+len(c.pending))
	merged = append(merged, txs...)
	c.pending = append(merged, c.pending...)
	c.mu.Unlock()
}

func (c *Chain) IsValid() bool {
	return c.Validate() == nil
}

// Validate checks every adjacent pair from index 1 upward and returns the
// first violation found.
func (c *Chain) Validate() error {
	c.mu.RLock()
	blocks := c.blocks
	c.mu.RUnlock()
	return validateBlocks(blocks, c.engine)
}

// ValidateBlocks applies the chain rules to an arbitrary sequence of blocks.
// Fewer than two blocks is trivially valid.
func ValidateBlocks(blocks []Block, difficulty int) error {
	return validateBlocks(blocks, consensus.NewPoW(difficulty))
}

func validateBlocks(blocks []Block, engine consensus.Engine) error {
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]

		h, err := HashBlock(prev)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBlock, err)
		}
		if cur.PreviousHash != h.Hex() {
			return fmt.Errorf("%w at block %d: have %s, want %s", ErrBrokenLink, i, cur.PreviousHash, h.Hex())
		}
		if err := engine.ValidateProof(prev.Proof, cur.Proof); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if cur.Index != uint64(i) {
			return fmt.Errorf("%w: block at position %d has index %d", ErrBadIndex, i, cur.Index)
		}
	}
	return nil
}
