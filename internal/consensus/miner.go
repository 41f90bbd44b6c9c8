package consensus

import (
	"context"
	"iter"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// cancelCheckInterval is how many nonces a searcher tries between context checks.
const cancelCheckInterval = 1 << 12

type Result struct {
	Nonce   uint64
	Input   []byte
	Digest  Digest
	Elapsed time.Duration
}

// ResultView is the presentation form of a Result.
type ResultView struct {
	Nonce          uint64  `json:"nonce"`
	Input          string  `json:"input"`
	DigestHex      string  `json:"digestHex"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

func (r Result) View() ResultView {
	return ResultView{
		Nonce:          r.Nonce,
		Input:          string(r.Input),
		DigestHex:      r.Digest.Hex(),
		ElapsedSeconds: r.Elapsed.Seconds(),
	}
}

// Nonces yields start, start+step, start+2*step, ... until the consumer stops
// or the next value would overflow. Each range over the sequence restarts at start.
func Nonces(start, step uint64) iter.Seq[uint64] {
	if step == 0 {
		step = 1
	}
	return func(yield func(uint64) bool) {
		for n := start; ; n += step {
			if !yield(n) {
				return
			}
			if n > math.MaxUint64-step {
				return
			}
		}
	}
}

// Mine searches nonces upward from 0 and returns the first one whose digest
// satisfies difficulty. The search is unbounded; it only stops early when ctx
// is done, in which case ctx.Err() is returned.
func Mine(ctx context.Context, seed SeedFunc, difficulty int) (Result, error) {
	if err := ValidateDifficulty(difficulty); err != nil {
		return Result{}, err
	}
	start := time.Now()

	var tried uint64
	for nonce := range Nonces(0, 1) {
		if tried%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		tried++

		input := seed(nonce)
		d := Sum(input)
		if Satisfies(d, difficulty) {
			return Result{Nonce: nonce, Input: input, Digest: d, Elapsed: time.Since(start)}, nil
		}
	}
	return Result{}, ErrInvalidConsensus
}

// MineParallel splits the nonce space across workers by residue class. The
// first solution found stops every worker whose remaining nonces are all
// larger, so the winning nonce is the same one Mine would return.
func MineParallel(ctx context.Context, seed SeedFunc, difficulty, workers int) (Result, error) {
	if workers <= 1 {
		return Mine(ctx, seed, difficulty)
	}
	if err := ValidateDifficulty(difficulty); err != nil {
		return Result{}, err
	}
	start := time.Now()

	// best doubles as the stop signal: a worker quits once its next nonce
	// cannot beat the current winner.
	var (
		best   atomic.Uint64
		mu     sync.Mutex
		winner Result
		found  bool
		wg     sync.WaitGroup
	)
	best.Store(math.MaxUint64)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(offset uint64) {
			defer wg.Done()

			var tried uint64
			for nonce := range Nonces(offset, uint64(workers)) {
				if nonce >= best.Load() {
					return
				}
				if tried%cancelCheckInterval == 0 && ctx.Err() != nil {
					return
				}
				tried++

				input := seed(nonce)
				d := Sum(input)
				if !Satisfies(d, difficulty) {
					continue
				}

				mu.Lock()
				if !found || nonce < winner.Nonce {
					winner = Result{Nonce: nonce, Input: input, Digest: d}
					found = true
					best.Store(nonce)
				}
				mu.Unlock()
				return
			}
		}(uint64(w))
	}

	wg.Wait()

	if !found {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		return Result{}, ErrInvalidConsensus
	}
	winner.Elapsed = time.Since(start)
	return winner, nil
}

// MineLabel solves the puzzle over label || decimal(nonce).
func MineLabel(ctx context.Context, label string, difficulty int) (Result, error) {
	return Mine(ctx, LabelSeed(label), difficulty)
}

// Miner carries the search settings used when producing blocks.
type Miner struct {
	Difficulty int
	Workers    int
	Log        *slog.Logger
}

func NewMiner(difficulty, workers int, log *slog.Logger) *Miner {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Miner{Difficulty: difficulty, Workers: workers, Log: log}
}

func (m *Miner) Solve(ctx context.Context, seed SeedFunc) (Result, error) {
	res, err := MineParallel(ctx, seed, m.Difficulty, m.Workers)
	if err != nil {
		m.Log.Debug("mining stopped", "difficulty", m.Difficulty, "err", err)
		return Result{}, err
	}
	m.Log.Debug("puzzle solved",
		"difficulty", m.Difficulty,
		"nonce", res.Nonce,
		"digest", res.Digest.Hex(),
		"elapsed", res.Elapsed,
	)
	return res, nil
}
