package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/vrecan/death/v3"

	"github.com/VeltarosLabs/powledger/internal/blockchain"
	"github.com/VeltarosLabs/powledger/internal/config"
	"github.com/VeltarosLabs/powledger/internal/consensus"
	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
	"github.com/VeltarosLabs/powledger/internal/logging"
	"github.com/VeltarosLabs/powledger/pkg/version"
)

var errVerifyFailed = errors.New("signature does not verify")

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "version":
		runVersion(os.Stdout)
		return
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "mine", "sign", "verify", "chain":
	default:
		usage(os.Stderr)
		os.Exit(2)
	}

	parsed, err := config.Parse(cmd, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(exitWithError(err))
	}
	cfg := parsed.Config

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM)
	go d.WaitForDeathWithFunc(func() {
		log.Warn("signal received, stopping")
		cancel()
	})

	if cfg.Mining.Timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, cfg.Mining.Timeout)
		defer stop()
	}

	switch cmd {
	case "mine":
		err = runMine(ctx, os.Stdout, cfg, log)
	case "sign":
		err = runSign(ctx, os.Stdout, cfg, log)
	case "verify":
		err = runVerify(os.Stdout, cfg)
	case "chain":
		err = runChain(ctx, os.Stdout, cfg, log)
	}
	if err != nil {
		os.Exit(exitWithError(err))
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprint(w, `powledger

Usage:
  powledger version
  powledger mine   [-label Cobb] [-difficulty 4,5] [-workers N] [-timeout 1m]
  powledger sign   [-label Cobb] [-difficulty 4] [-scheme rsa-pss] [-enc hex]
  powledger verify -pub <key> -msg <text> -sig <sig> [-scheme rsa-pss] [-enc hex]
  powledger chain  [-chain.blocks 1] [-chain.difficulty 4] [-workers N]

Every flag can also be set with a POWLEDGER_* environment variable
(e.g. POWLEDGER_DIFFICULTY=4,5). Logs go to stderr; results go to stdout.
`)
}

func runVersion(w io.Writer) {
	v := version.Get()
	_, _ = fmt.Fprintf(w, "powledger\nVersion: %s\nCommit:  %s\nGo:      %s\nTarget:  %s\n",
		v.Version, v.Commit, v.GoVersion, v.Platform)
}

// runMine solves label||nonce once per configured difficulty, in order.
func runMine(ctx context.Context, w io.Writer, cfg config.Config, log *slog.Logger) error {
	for _, d := range cfg.Mining.Difficulties {
		res, err := solve(ctx, cfg, d, log)
		if err != nil {
			return err
		}
		printResult(w, d, res)
	}
	return nil
}

// runSign mines the first configured difficulty, signs the winning input
// with a fresh keypair, and shows that verification fails once the payload
// is altered.
func runSign(ctx context.Context, w io.Writer, cfg config.Config, log *slog.Logger) error {
	difficulty := cfg.Mining.Difficulties[0]
	res, err := solve(ctx, cfg, difficulty, log)
	if err != nil {
		return err
	}
	printResult(w, difficulty, res)

	scheme, err := vcrypto.SchemeByName(cfg.Signing.Scheme, cfg.Signing.RSABits)
	if err != nil {
		return err
	}
	kp, err := scheme.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate %s keypair: %w", scheme.Name(), err)
	}
	sig, err := scheme.Sign(kp.Private, res.Input)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	rawPub, err := scheme.MarshalPublicKey(kp.Public)
	if err != nil {
		return err
	}
	pubText, err := vcrypto.Encode(rawPub, cfg.Signing.Encoding)
	if err != nil {
		return err
	}
	sigText, err := vcrypto.Encode(sig, cfg.Signing.Encoding)
	if err != nil {
		return err
	}
	fp, err := vcrypto.Fingerprint(kp.Public)
	if err != nil {
		return err
	}

	tampered := append(append([]byte{}, res.Input...), "tampered"...)

	_, _ = fmt.Fprintf(w, "scheme:      %s\n", scheme.Name())
	_, _ = fmt.Fprintf(w, "fingerprint: %s\n", fp)
	_, _ = fmt.Fprintf(w, "public key:  %s\n", pubText)
	_, _ = fmt.Fprintf(w, "signature:   %s\n", sigText)
	_, _ = fmt.Fprintf(w, "verify %q: %t\n", res.Input, scheme.Verify(kp.Public, res.Input, sig))
	_, _ = fmt.Fprintf(w, "verify %q: %t\n", tampered, scheme.Verify(kp.Public, tampered, sig))

	log.Info("payload signed", "scheme", scheme.Name(), "fingerprint", fp, "sigBytes", len(sig))
	return nil
}

func runVerify(w io.Writer, cfg config.Config) error {
	sc := cfg.Signing
	if sc.PublicKey == "" || sc.Signature == "" || sc.Message == "" {
		return errors.New("-pub, -sig, and -msg are required")
	}

	scheme, err := vcrypto.SchemeByName(sc.Scheme, sc.RSABits)
	if err != nil {
		return err
	}
	rawPub, err := vcrypto.Decode(sc.PublicKey, sc.Encoding)
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	pub, err := scheme.ParsePublicKey(rawPub)
	if err != nil {
		return fmt.Errorf("parse %s public key: %w", scheme.Name(), err)
	}
	sig, err := vcrypto.Decode(sc.Signature, sc.Encoding)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	if !scheme.Verify(pub, []byte(sc.Message), sig) {
		_, _ = fmt.Fprintln(w, "INVALID")
		return errVerifyFailed
	}
	_, _ = fmt.Fprintln(w, "OK")
	return nil
}

// runChain builds a chain of cfg.Chain.Blocks blocks on top of genesis, two
// sample transactions per block, and dumps it as JSON.
func runChain(ctx context.Context, w io.Writer, cfg config.Config, log *slog.Logger) error {
	c := blockchain.New(
		blockchain.WithLogger(log),
		blockchain.WithDifficulty(cfg.Chain.Difficulty),
		blockchain.WithWorkers(cfg.Mining.Workers),
	)

	for i := 1; i <= cfg.Chain.Blocks; i++ {
		if err := c.AddTransaction("Alice", "Bob", 50); err != nil {
			return err
		}
		if err := c.AddTransaction("Bob", "Charlie", 30); err != nil {
			return err
		}

		b, err := c.CreateBlock(ctx)
		if err != nil {
			return budgetError(err)
		}
		_, _ = fmt.Fprintf(w, "block %d: proof=%d previous_hash=%s txs=%d\n",
			b.Index, b.Proof, b.PreviousHash, len(b.Transactions))
	}

	valid := c.IsValid()
	_, _ = fmt.Fprintf(w, "chain valid: %t\n", valid)

	blocks := c.Blocks()
	views := make([]blockchain.BlockView, len(blocks))
	for i, b := range blocks {
		views[i] = b.View()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(views); err != nil {
		return err
	}

	if !valid {
		return c.Validate()
	}
	return nil
}

func solve(ctx context.Context, cfg config.Config, difficulty int, log *slog.Logger) (consensus.Result, error) {
	m := consensus.NewMiner(difficulty, cfg.Mining.Workers, log)
	res, err := m.Solve(ctx, consensus.LabelSeed(cfg.Mining.Label))
	if err != nil {
		return consensus.Result{}, budgetError(err)
	}
	log.Info("puzzle solved", "label", cfg.Mining.Label, "difficulty", difficulty, "nonce", res.Nonce)
	return res, nil
}

func budgetError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("puzzle not solved within budget: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("mining interrupted: %w", err)
	}
	return err
}

func printResult(w io.Writer, difficulty int, res consensus.Result) {
	v := res.View()
	_, _ = fmt.Fprintf(w, "difficulty %d: nonce=%d input=%q hash=%s elapsed=%.3fs\n",
		difficulty, v.Nonce, v.Input, v.DigestHex, v.ElapsedSeconds)
}

func exitWithError(err error) int {
	_, _ = os.Stderr.WriteString("powledger error: " + err.Error() + "\n")
	return 1
}
