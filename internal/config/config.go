package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration loaded from file. Secrets never
// live here; they come from the environment via Secrets.
type Config struct {
	ListenAddr        string        `yaml:"listen_addr"`
	GraceTimeout      time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	Development bool `yaml:"development"`

	DefaultChain string `yaml:"default_chain"`
	// RPCURLs maps chain name to RPC endpoint. RPC_URL_<CHAIN> env vars
	// override per chain.
	RPCURLs map[string]string `yaml:"rpc_urls"`

	// Sources lists routing sources in preference order; the order is the
	// final tie-break during route selection.
	Sources []string `yaml:"sources"`

	SlippagePercent       float64 `yaml:"slippage_percent"`
	MaxPriceImpactPercent float64 `yaml:"max_price_impact_percent"`
	SameChainBonus        float64 `yaml:"same_chain_bonus"`
	MaxAmount             float64 `yaml:"max_amount"`

	PerSourceTimeout time.Duration `yaml:"per_source_timeout"`
	QuoteTimeout     time.Duration `yaml:"quote_timeout"`
	ExecBudget       time.Duration `yaml:"exec_budget"`
	StatusMaxWait    time.Duration `yaml:"status_max_wait"`
	StatusPollStart  time.Duration `yaml:"status_poll_start"`
	StatusPollMax    time.Duration `yaml:"status_poll_max"`

	FeeMultiplierNum int64 `yaml:"fee_multiplier_num"`
	FeeMultiplierDen int64 `yaml:"fee_multiplier_den"`
	GasBufferPercent int64 `yaml:"gas_buffer_percent"`
}

// Secrets carries credentials read from the environment only.
type Secrets struct {
	// PrivateKey is the hex signing key. Empty switches the signer to
	// simulate mode.
	PrivateKey string
	// OneinchAPIKey authorizes the 1inch routing source. Empty disables it.
	OneinchAPIKey string
}

// Load reads the config from a YAML file path.
// Fails fatally if config is invalid or file is missing.
func Load(path string) Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: os.Open: %v", err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			log.Printf("failed to close config file: f.Close: %v", err)
		}
	}(f)

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to parse config file: decoder.Decode: %v", err)
	}

	// Fallbacks
	const defaultTimeout = 5 * time.Second
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.GraceTimeout == 0 {
		cfg.GraceTimeout = defaultTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = defaultTimeout
	}
	if cfg.DefaultChain == "" {
		cfg.DefaultChain = "ethereum"
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = []string{"oneinch", "uniswapv2"}
	}
	if cfg.SlippagePercent == 0 {
		cfg.SlippagePercent = 1.0
	}
	if cfg.MaxPriceImpactPercent == 0 {
		cfg.MaxPriceImpactPercent = 5.0
	}
	if cfg.SameChainBonus == 0 {
		cfg.SameChainBonus = 1.0005
	}
	if cfg.MaxAmount == 0 {
		cfg.MaxAmount = 1_000_000
	}
	if cfg.PerSourceTimeout == 0 {
		cfg.PerSourceTimeout = 8 * time.Second
	}
	if cfg.QuoteTimeout == 0 {
		cfg.QuoteTimeout = 10 * time.Second
	}
	if cfg.ExecBudget == 0 {
		cfg.ExecBudget = 45 * time.Second
	}
	if cfg.StatusMaxWait == 0 {
		cfg.StatusMaxWait = 5 * time.Minute
	}
	if cfg.StatusPollStart == 0 {
		cfg.StatusPollStart = 2 * time.Second
	}
	if cfg.StatusPollMax == 0 {
		cfg.StatusPollMax = 30 * time.Second
	}
	if cfg.FeeMultiplierNum == 0 || cfg.FeeMultiplierDen == 0 {
		cfg.FeeMultiplierNum, cfg.FeeMultiplierDen = 12, 10
	}
	if cfg.GasBufferPercent == 0 {
		cfg.GasBufferPercent = 20
	}

	if cfg.RPCURLs == nil {
		cfg.RPCURLs = map[string]string{}
	}
	applyRPCOverrides(cfg.RPCURLs)

	return cfg
}

// LoadSecrets reads credentials from the environment. Call after godotenv
// has populated it.
func LoadSecrets() Secrets {
	return Secrets{
		PrivateKey:    os.Getenv("PRIVATE_KEY"),
		OneinchAPIKey: os.Getenv("ONEINCH_API_KEY"),
	}
}

// applyRPCOverrides merges RPC_URL_<CHAIN> env vars over the file values.
func applyRPCOverrides(urls map[string]string) {
	const prefix = "RPC_URL_"
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) || v == "" {
			continue
		}
		chain := strings.ToLower(strings.TrimPrefix(k, prefix))
		urls[chain] = v
	}
}
