package consensus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMineCobbReference(t *testing.T) {
	tests := []struct {
		difficulty int
		nonce      uint64
		digest     string
	}{
		{0, 0, "bdb4db70100be79bc1a19e6d12a3c29ae44fdb62a2d46309a497d1ab6a72ef65"},
		{1, 4, "07aef432e5b15ffa7146e8a7fa9c5aa3e0320b90c97ff53acf145731d1023bf9"},
		{2, 321, "00980b5e1abe88dabec53ee7a242aa0ef2abfedfe630f8241af2db0293d3bf00"},
		{3, 4057, "00045e9257947cb4e48ebb91107ac94aa09ce6dd85ff5f10a9d3560103112351"},
		{4, 37931, "00002fd1f6a6bc65e6c109716c1be9b1d320605ca3f6f68b72184cb8b22ad43a"},
	}

	for _, tt := range tests {
		res, err := MineLabel(context.Background(), "Cobb", tt.difficulty)
		if err != nil {
			t.Fatalf("difficulty %d: unexpected error: %v", tt.difficulty, err)
		}
		if res.Nonce != tt.nonce {
			t.Errorf("difficulty %d: nonce = %d, want %d", tt.difficulty, res.Nonce, tt.nonce)
		}
		if res.Digest.Hex() != tt.digest {
			t.Errorf("difficulty %d: digest = %s, want %s", tt.difficulty, res.Digest.Hex(), tt.digest)
		}

		// Cross-check against crypto/sha256 directly.
		ref := sha256.Sum256(res.Input)
		if hex.EncodeToString(ref[:]) != res.Digest.Hex() {
			t.Errorf("difficulty %d: digest of %q disagrees with crypto/sha256", tt.difficulty, res.Input)
		}
		if !strings.HasPrefix(res.Digest.Hex(), strings.Repeat("0", tt.difficulty)) {
			t.Errorf("difficulty %d: digest %s lacks prefix", tt.difficulty, res.Digest.Hex())
		}
	}
}

func TestMineWinningNonceIsMinimal(t *testing.T) {
	for _, label := range []string{"Cobb", "Alice", ""} {
		for difficulty := 0; difficulty <= 3; difficulty++ {
			seed := LabelSeed(label)
			res, err := Mine(context.Background(), seed, difficulty)
			if err != nil {
				t.Fatalf("Mine(%q, %d): %v", label, difficulty, err)
			}
			if !Satisfies(res.Digest, difficulty) {
				t.Fatalf("Mine(%q, %d): digest %s does not satisfy", label, difficulty, res.Digest.Hex())
			}
			for n := uint64(0); n < res.Nonce; n++ {
				if Satisfies(Sum(seed(n)), difficulty) {
					t.Fatalf("Mine(%q, %d) = %d, but %d already satisfies", label, difficulty, res.Nonce, n)
				}
			}
		}
	}
}

func TestMineZeroDifficulty(t *testing.T) {
	res, err := Mine(context.Background(), LabelSeed("anything"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Nonce != 0 {
		t.Fatalf("nonce = %d, want 0", res.Nonce)
	}
	if string(res.Input) != "anything0" {
		t.Fatalf("input = %q", res.Input)
	}
}

func TestMineRejectsBadDifficulty(t *testing.T) {
	for _, d := range []int{-1, MaxDifficulty + 1} {
		if _, err := Mine(context.Background(), LabelSeed("x"), d); !errors.Is(err, ErrInvalidDifficulty) {
			t.Errorf("Mine(difficulty=%d) = %v, want ErrInvalidDifficulty", d, err)
		}
		if _, err := MineParallel(context.Background(), LabelSeed("x"), d, 4); !errors.Is(err, ErrInvalidDifficulty) {
			t.Errorf("MineParallel(difficulty=%d) = %v, want ErrInvalidDifficulty", d, err)
		}
	}
}

func TestMineHonorsDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// 40 hex zeros will not be found before the deadline.
	_, err := Mine(ctx, LabelSeed("Cobb"), 40)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Mine = %v, want context.DeadlineExceeded", err)
	}

	_, err = MineParallel(ctx, LabelSeed("Cobb"), 40, 4)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("MineParallel = %v, want context.DeadlineExceeded", err)
	}
}

func TestMineParallelMatchesSequential(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 8} {
		for _, label := range []string{"Cobb", "Bob"} {
			want, err := Mine(context.Background(), LabelSeed(label), 3)
			if err != nil {
				t.Fatal(err)
			}
			got, err := MineParallel(context.Background(), LabelSeed(label), 3, workers)
			if err != nil {
				t.Fatal(err)
			}
			if got.Nonce != want.Nonce || got.Digest != want.Digest {
				t.Errorf("workers=%d label=%q: got nonce %d, want %d", workers, label, got.Nonce, want.Nonce)
			}
		}
	}
}

func TestNoncesRestartable(t *testing.T) {
	seq := Nonces(3, 5)
	for round := 0; round < 2; round++ {
		var got []uint64
		for n := range seq {
			got = append(got, n)
			if len(got) == 4 {
				break
			}
		}
		want := []uint64{3, 8, 13, 18}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("round %d: got %v, want %v", round, got, want)
			}
		}
	}
}

func TestNoncesStopsBeforeOverflow(t *testing.T) {
	var got []uint64
	for n := range Nonces(^uint64(0)-2, 2) {
		got = append(got, n)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want two values", got)
	}
}

func TestMinerSolve(t *testing.T) {
	m := NewMiner(4, 2, nil)
	res, err := m.Solve(context.Background(), ProofPairSeed(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Nonce != 35293 {
		t.Fatalf("nonce = %d, want 35293", res.Nonce)
	}
	if err := NewPoW(4).ValidateProof(100, res.Nonce); err != nil {
		t.Fatalf("solved proof rejected: %v", err)
	}
}

func TestResultView(t *testing.T) {
	res, err := MineLabel(context.Background(), "Cobb", 2)
	if err != nil {
		t.Fatal(err)
	}
	v := res.View()
	if v.Nonce != 321 || v.Input != "Cobb321" || v.DigestHex != res.Digest.Hex() {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.ElapsedSeconds < 0 {
		t.Fatalf("negative elapsed: %v", v.ElapsedSeconds)
	}
}
