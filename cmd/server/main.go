package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"intentswap/internal/config"
	"intentswap/internal/infra/evm"
	"intentswap/internal/infra/oneinch"
	"intentswap/internal/infra/univ2"
	"intentswap/internal/intent"
	"intentswap/internal/pipeline"
	"intentswap/internal/quote"
	"intentswap/internal/registry"
	"intentswap/internal/signer"
	"intentswap/internal/status"
	transport "intentswap/internal/transport/http"
	"intentswap/internal/txbuilder"
)

func main() {
	// Secrets and RPC overrides come from the environment; .env is a
	// development convenience.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("godotenv.Load: %v", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "cfg/config.yaml"
	}
	cfg := config.Load(path)
	secrets := config.LoadSecrets()

	logger, err := buildLogger(cfg.Development)
	if err != nil {
		log.Fatalf("buildLogger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	reg := registry.Default(registry.Options{
		RPCOverrides: cfg.RPCURLs,
		DefaultChain: cfg.DefaultChain,
	})
	provider := evm.NewPool(reg, logger)

	sgn, err := signer.New(secrets.PrivateKey, provider, logger)
	if err != nil {
		logger.Fatal("signer.New", zap.Error(err))
	}

	sources, err := buildSources(cfg, secrets, provider, reg, sgn, logger)
	if err != nil {
		logger.Fatal("buildSources", zap.Error(err))
	}

	normalizer := intent.NewNormalizer(reg, decimal.NewFromFloat(cfg.MaxAmount))
	aggregator := quote.NewAggregator(sources, quote.AggregatorConfig{
		PerSourceTimeout: cfg.PerSourceTimeout,
		TotalTimeout:     cfg.QuoteTimeout,
		MaxPriceImpact:   decimal.NewFromFloat(cfg.MaxPriceImpactPercent),
		SameChainBonus:   decimal.NewFromFloat(cfg.SameChainBonus),
		Slippage:         decimal.NewFromFloat(cfg.SlippagePercent),
	}, logger)
	builder := txbuilder.NewBuilder(provider, reg, sgn.Address(), txbuilder.Config{
		FeeMultiplierNum: cfg.FeeMultiplierNum,
		FeeMultiplierDen: cfg.FeeMultiplierDen,
		GasBufferPercent: cfg.GasBufferPercent,
	}, logger)
	resolver := status.NewResolver(provider, reg, status.Config{
		MaxWait:     cfg.StatusMaxWait,
		InitialPoll: cfg.StatusPollStart,
		MaxPoll:     cfg.StatusPollMax,
	}, logger)

	pipe := pipeline.New(normalizer, aggregator, builder, sgn, resolver, reg,
		pipeline.Config{ExecBudget: cfg.ExecBudget}, logger)

	srv, err := transport.NewServer(pipe, provider, reg, &cfg, logger)
	if err != nil {
		logger.Fatal("transport.NewServer", zap.Error(err))
	}
	if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Fatal("srv.ListenAndServe", zap.Error(err))
	}
}

func buildLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildSources instantiates routing sources in configuration order; that
// order is the aggregator's final tie-break.
func buildSources(
	cfg config.Config,
	secrets config.Secrets,
	provider evm.Provider,
	reg *registry.Registry,
	sgn *signer.Signer,
	logger *zap.Logger,
) ([]quote.Source, error) {
	sources := make([]quote.Source, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		switch name {
		case "oneinch":
			if secrets.OneinchAPIKey == "" {
				logger.Warn("oneinch source disabled, no api key configured")
				continue
			}
			sources = append(sources, oneinch.NewSource(oneinch.Config{
				APIKey:        secrets.OneinchAPIKey,
				WalletAddress: sgn.Address(),
			}, reg, logger))
		case "uniswapv2":
			src, err := univ2.NewSource(provider, reg, sgn.Address(), logger)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		default:
			logger.Warn("unknown routing source in config", zap.String("source", name))
		}
	}
	return sources, nil
}
