package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/VeltarosLabs/powledger/internal/consensus"
	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
)

type Config struct {
	Mining  MiningConfig
	Signing SigningConfig
	Chain   ChainConfig
	Log     LogConfig
}

type MiningConfig struct {
	Label        string
	Difficulties []int
	Workers      int
	Timeout      time.Duration // 0 means no deadline
}

type SigningConfig struct {
	Scheme   string
	RSABits  int
	Encoding string // hex|base58

	// verify inputs
	PublicKey string
	Message   string
	Signature string
}

type ChainConfig struct {
	Blocks     int
	Difficulty int
}

type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // json|text
}

func Default() Config {
	return Config{
		Mining: MiningConfig{
			Label:        "Cobb",
			Difficulties: []int{4},
			Workers:      1,
			Timeout:      0,
		},
		Signing: SigningConfig{
			Scheme:   vcrypto.SchemeRSAPSS,
			RSABits:  vcrypto.DefaultRSABits,
			Encoding: vcrypto.EncodingHex,
		},
		Chain: ChainConfig{
			Blocks:     1,
			Difficulty: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

type Parsed struct {
	Config Config
	Args   []string
}

// Parse reads flags for the named subcommand. Every flag falls back to a
// POWLEDGER_* environment variable, then to Default().
func Parse(name string, args []string) (Parsed, error) {
	cfg := Default()

	fs := flag.NewFlagSet("powledger "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		label        = fs.String("label", envOr("POWLEDGER_LABEL", cfg.Mining.Label), "Seed label; the puzzle input is label followed by the decimal nonce")
		difficulties = fs.String("difficulty", envOr("POWLEDGER_DIFFICULTY", joinInts(cfg.Mining.Difficulties)), "Comma-separated leading hex zero counts to solve in order (e.g. 4,5)")
		workers      = fs.Int("workers", envOrInt("POWLEDGER_WORKERS", cfg.Mining.Workers), "Goroutines searching the nonce space")
		timeout      = fs.Duration("timeout", envOrDuration("POWLEDGER_TIMEOUT", cfg.Mining.Timeout), "Give up mining after this long (0 = never)")

		scheme   = fs.String("scheme", envOr("POWLEDGER_SCHEME", cfg.Signing.Scheme), "Signature scheme: "+strings.Join(vcrypto.SchemeNames(), "|"))
		rsaBits  = fs.Int("rsa.bits", envOrInt("POWLEDGER_RSA_BITS", cfg.Signing.RSABits), "RSA modulus size in bits (rsa-pss only)")
		encoding = fs.String("enc", envOr("POWLEDGER_ENCODING", cfg.Signing.Encoding), "Text encoding for keys and signatures: hex|base58")
		pub      = fs.String("pub", "", "Encoded public key (verify)")
		msg      = fs.String("msg", "", "Message (verify)")
		sig      = fs.String("sig", "", "Encoded signature (verify)")

		blocks          = fs.Int("chain.blocks", envOrInt("POWLEDGER_CHAIN_BLOCKS", cfg.Chain.Blocks), "Blocks to mine after genesis")
		chainDifficulty = fs.Int("chain.difficulty", envOrInt("POWLEDGER_CHAIN_DIFFICULTY", cfg.Chain.Difficulty), "Leading hex zeros required of each proof pair")

		logLevel  = fs.String("log.level", envOr("POWLEDGER_LOG_LEVEL", cfg.Log.Level), "Log level: debug|info|warn|error")
		logFormat = fs.String("log.format", envOr("POWLEDGER_LOG_FORMAT", cfg.Log.Format), "Log format: json|text")
	)

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}

	ds, err := parseInts(*difficulties)
	if err != nil {
		return Parsed{}, fmt.Errorf("invalid difficulty: %w", err)
	}

	cfg.Mining.Label = *label
	cfg.Mining.Difficulties = ds
	cfg.Mining.Workers = *workers
	cfg.Mining.Timeout = *timeout

	cfg.Signing.Scheme = strings.TrimSpace(*scheme)
	cfg.Signing.RSABits = *rsaBits
	cfg.Signing.Encoding = strings.TrimSpace(*encoding)
	cfg.Signing.PublicKey = strings.TrimSpace(*pub)
	cfg.Signing.Message = *msg
	cfg.Signing.Signature = strings.TrimSpace(*sig)

	cfg.Chain.Blocks = *blocks
	cfg.Chain.Difficulty = *chainDifficulty

	cfg.Log.Level = strings.TrimSpace(*logLevel)
	cfg.Log.Format = strings.TrimSpace(*logFormat)

	if err := validate(cfg); err != nil {
		return Parsed{}, err
	}

	return Parsed{Config: cfg, Args: fs.Args()}, nil
}

func validate(cfg Config) error {
	if len(cfg.Mining.Difficulties) == 0 {
		return errors.New("difficulty must list at least one value")
	}
	for _, d := range cfg.Mining.Difficulties {
		if err := consensus.ValidateDifficulty(d); err != nil {
			return err
		}
	}
	if cfg.Mining.Workers <= 0 || cfg.Mining.Workers > 1024 {
		return fmt.Errorf("workers out of range: %d", cfg.Mining.Workers)
	}
	if cfg.Mining.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", cfg.Mining.Timeout)
	}

	if _, err := vcrypto.SchemeByName(cfg.Signing.Scheme, cfg.Signing.RSABits); err != nil {
		return err
	}
	if cfg.Signing.RSABits < vcrypto.MinRSABits {
		return fmt.Errorf("rsa.bits too small: %d (min %d)", cfg.Signing.RSABits, vcrypto.MinRSABits)
	}
	switch strings.ToLower(cfg.Signing.Encoding) {
	case vcrypto.EncodingHex, vcrypto.EncodingBase58:
	default:
		return fmt.Errorf("invalid enc: %q", cfg.Signing.Encoding)
	}

	if cfg.Chain.Blocks < 0 {
		return fmt.Errorf("chain.blocks must not be negative: %d", cfg.Chain.Blocks)
	}
	if err := consensus.ValidateDifficulty(cfg.Chain.Difficulty); err != nil {
		return fmt.Errorf("chain.difficulty: %w", err)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", cfg.Log.Level)
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format: %q", cfg.Log.Format)
	}
	return nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envOrInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := strings.TrimSpace(r)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	parts := splitCSV(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
