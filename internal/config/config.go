package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type EngineCfg struct {
	BaseAsset       string  `yaml:"base_asset"`
	ScanIntervalMs  int     `yaml:"scan_interval_ms"`
	MaxStalenessMs  int     `yaml:"max_staleness_ms"`
	RelaxationEps   float64 `yaml:"relaxation_epsilon"`
	MaxCycleLen     int     `yaml:"max_cycle_len"`
	MaxPendingQueue int     `yaml:"max_pending_queue"`
}

type ScoringCfg struct {
	HistoryDecay float64 `yaml:"history_decay"`
	StatTTLMs    int     `yaml:"stat_ttl_ms"`
	MinSamples   int     `yaml:"min_samples"`
}

type RiskCfg struct {
	MinMargin       float64 `yaml:"min_margin"`
	ZScoreThreshold float64 `yaml:"z_score_threshold"`
	MinConfidence   float64 `yaml:"min_confidence"`
	CooldownMs      int     `yaml:"cooldown_ms"`
	TopK            int     `yaml:"top_k"`
}

type TradeCfg struct {
	BudgetUSD float64 `yaml:"budget_usd"`
}

type BinanceCfg struct {
	ApiKey      string `yaml:"api_key"`
	ApiSecret   string `yaml:"api_secret"`
	RestURL     string `yaml:"rest_url"`
	WsURL       string `yaml:"ws_url"`
	TakerFeeBps int    `yaml:"taker_fee_bps"`
}

type RedisCfg struct {
	Addr      string `yaml:"addr"`
	DB        int    `yaml:"db"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Stream    string `yaml:"stream"`
	ActiveKey string `yaml:"active_key"`
	MetaNS    string `yaml:"meta_ns"`
}

type DiscoveryCfg struct {
	QuoteAsset string `yaml:"quote_asset"`
	FromRank   int    `yaml:"from_rank"`
	ToRank     int    `yaml:"to_rank"`
	MaxSymbols int    `yaml:"max_symbols"`
}

type MetricsCfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type DashCfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type Config struct {
	DryRun bool `yaml:"dry_run"`

	Engine    EngineCfg    `yaml:"engine"`
	Scoring   ScoringCfg   `yaml:"scoring"`
	Risk      RiskCfg      `yaml:"risk"`
	Trade     TradeCfg     `yaml:"trade"`
	Binance   BinanceCfg   `yaml:"binance"`
	Redis     RedisCfg     `yaml:"redis"`
	Discovery DiscoveryCfg `yaml:"discovery"`
	Metrics   MetricsCfg   `yaml:"metrics"`
	Dash      DashCfg      `yaml:"dash"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.BaseAsset == "" {
		c.Engine.BaseAsset = "USDT"
	}
	if c.Engine.ScanIntervalMs == 0 {
		c.Engine.ScanIntervalMs = 250
	}
	if c.Engine.MaxStalenessMs == 0 {
		c.Engine.MaxStalenessMs = 5000
	}
	if c.Engine.RelaxationEps == 0 {
		c.Engine.RelaxationEps = 1e-9
	}
	if c.Engine.MaxCycleLen == 0 {
		c.Engine.MaxCycleLen = 5
	}
	if c.Engine.MaxPendingQueue == 0 {
		c.Engine.MaxPendingQueue = 4096
	}
	if c.Scoring.HistoryDecay == 0 {
		c.Scoring.HistoryDecay = 0.05
	}
	if c.Scoring.StatTTLMs == 0 {
		c.Scoring.StatTTLMs = 10 * 60 * 1000
	}
	if c.Scoring.MinSamples == 0 {
		c.Scoring.MinSamples = 20
	}
	if c.Risk.MinMargin == 0 {
		c.Risk.MinMargin = 0.001
	}
	if c.Risk.ZScoreThreshold == 0 {
		c.Risk.ZScoreThreshold = 2.0
	}
	if c.Risk.MinConfidence == 0 {
		c.Risk.MinConfidence = 0.5
	}
	if c.Risk.CooldownMs == 0 {
		c.Risk.CooldownMs = 30_000
	}
	if c.Risk.TopK == 0 {
		c.Risk.TopK = 1
	}
	if c.Trade.BudgetUSD == 0 {
		c.Trade.BudgetUSD = 50.0
	}
	if c.Binance.RestURL == "" {
		c.Binance.RestURL = "https://api.binance.com"
	}
	if c.Binance.WsURL == "" {
		c.Binance.WsURL = "wss://stream.binance.com:9443"
	}
	if c.Binance.TakerFeeBps == 0 {
		c.Binance.TakerFeeBps = 10
	}
	if c.Binance.ApiKey == "" {
		c.Binance.ApiKey = os.Getenv("BINANCE_API_KEY")
	}
	if c.Binance.ApiSecret == "" {
		c.Binance.ApiSecret = os.Getenv("BINANCE_API_SECRET")
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "rate:stream"
	}
	if c.Redis.ActiveKey == "" {
		c.Redis.ActiveKey = "symbol:active"
	}
	if c.Redis.MetaNS == "" {
		c.Redis.MetaNS = "symbol:meta:"
	}
	if c.Discovery.QuoteAsset == "" {
		c.Discovery.QuoteAsset = "USDT"
	}
	if c.Discovery.FromRank < 1 {
		c.Discovery.FromRank = 1
	}
	if c.Discovery.ToRank == 0 {
		c.Discovery.ToRank = 60
	}
	if c.Discovery.MaxSymbols == 0 {
		c.Discovery.MaxSymbols = 40
	}
}

func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Engine.ScanIntervalMs) * time.Millisecond
}

func (c *Config) MaxStaleness() time.Duration {
	return time.Duration(c.Engine.MaxStalenessMs) * time.Millisecond
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Risk.CooldownMs) * time.Millisecond
}

func (c *Config) StatTTL() time.Duration {
	return time.Duration(c.Scoring.StatTTLMs) * time.Millisecond
}

// TakerFee returns the taker fee as a fraction.
func (c *Config) TakerFee() float64 {
	return float64(c.Binance.TakerFeeBps) / 10000.0
}
