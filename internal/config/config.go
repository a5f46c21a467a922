package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Exchange holds credentials and connection settings for the venue.
type Exchange struct {
	AccessKey    string  `yaml:"access_key"`
	SecretKey    string  `yaml:"secret_key"`
	BaseURL      string  `yaml:"base_url" default:"https://api.upbit.com"`
	RateCapacity float64 `yaml:"rate_capacity" default:"8" validate:"gt=0"`
	RateRefill   float64 `yaml:"rate_refill" default:"8" validate:"gt=0"` // tokens per second
}

// Trading holds loop and order execution settings.
type Trading struct {
	QuoteAsset       string   `yaml:"quote_asset" default:"KRW" validate:"required"`
	Markets          []string `yaml:"markets"` // non-empty disables discovery and trades this fixed list
	Resolution       string   `yaml:"resolution" default:"seconds"`
	CandleCount      int      `yaml:"candle_count" default:"100" validate:"gte=60"`
	LoopIntervalSec  int      `yaml:"loop_interval_sec" default:"1" validate:"gte=1"`
	DryRun           bool     `yaml:"dry_run"`
	MinOrderNotional float64  `yaml:"min_order_notional" default:"5000" validate:"gt=0"`
}

// Discovery holds screener and lifecycle settings.
type Discovery struct {
	IntervalSec    int      `yaml:"interval_sec" default:"60" validate:"gte=1"`
	MaxWorkingSet  int      `yaml:"max_working_set" default:"3" validate:"gte=1"`
	TopK           int      `yaml:"top_k" default:"30" validate:"gte=1"`
	RankBy         string   `yaml:"rank_by" default:"change" validate:"oneof=change volume"`
	Blacklist      []string `yaml:"blacklist"`
	SpikeMin       float64  `yaml:"spike_min" default:"3.0" validate:"gt=0"`
	SlopeMinDeg    float64  `yaml:"slope_min_deg" default:"0.2"`
	NeutralMax     float64  `yaml:"neutral_max" default:"0.6" validate:"gt=0,lte=1"`
	NeutralBand    float64  `yaml:"neutral_band" default:"0.0005" validate:"gt=0"`
	SpikeRecentN   int      `yaml:"spike_recent_n" default:"3" validate:"gte=1"`
	SpikePriorN    int      `yaml:"spike_prior_n" default:"50" validate:"gte=1"`
	SlopeWindow    int      `yaml:"slope_window" default:"60" validate:"gte=2"`
	BaselineWindow int      `yaml:"baseline_window" default:"5" validate:"gte=1"`
	DecayRatio     float64  `yaml:"decay_ratio" default:"0.1" validate:"gt=0,lt=1"`
	DecayWindow    int      `yaml:"decay_window" default:"30" validate:"gte=1"`
	MinHoldSec     int      `yaml:"min_hold_sec" default:"200" validate:"gte=0"`
}

// Strategy holds the decision engine thresholds. All slope thresholds are
// trend angles in degrees.
type Strategy struct {
	SpikeRecentN     int     `yaml:"spike_recent_n" default:"3" validate:"gte=1"`
	SpikePriorN      int     `yaml:"spike_prior_n" default:"50" validate:"gte=1"`
	SpikeThreshold   float64 `yaml:"spike_threshold" default:"3.0" validate:"gt=0"`
	BullishWindow    int     `yaml:"bullish_window" default:"10" validate:"gte=1"`
	BullishMin       float64 `yaml:"bullish_min" default:"0.5" validate:"gte=0,lte=1"`
	ShortSlopeWindow int     `yaml:"short_slope_window" default:"5" validate:"gte=2"`
	LongSlopeWindow  int     `yaml:"long_slope_window" default:"100" validate:"gte=2"`
	LongSlopeMinDeg  float64 `yaml:"long_slope_min_deg" default:"0.2"`
	StrengthTicks    int     `yaml:"strength_ticks" default:"200" validate:"gte=1"`
	StrengthMin      float64 `yaml:"strength_min" default:"1.0" validate:"gt=0"`
	ExitStrengthMax  float64 `yaml:"exit_strength_max" default:"1.0" validate:"gt=0"`
	ExitSlope3Deg    float64 `yaml:"exit_slope_3_deg" default:"-0.7"`
	ExitSlope10Deg   float64 `yaml:"exit_slope_10_deg" default:"-0.5"`
	ExitSlope30Deg   float64 `yaml:"exit_slope_30_deg" default:"-0.3"`
	StopLossRate     float64 `yaml:"stop_loss_rate" default:"-0.03" validate:"lt=0"`
	BuyFraction      float64 `yaml:"buy_fraction" default:"0.1" validate:"gt=0,lte=1"`
	SellFraction     float64 `yaml:"sell_fraction" default:"0.5" validate:"gt=0,lte=1"`
	CooldownSec      int     `yaml:"cooldown_sec" default:"5" validate:"gte=0"`
}

// Config holds all application configuration.
type Config struct {
	Exchange  Exchange  `yaml:"exchange"`
	Trading   Trading   `yaml:"trading"`
	Discovery Discovery `yaml:"discovery"`
	Strategy  Strategy  `yaml:"strategy"`
	Telegram  struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the /metrics endpoint
	} `yaml:"metrics"`
	Schedule struct {
		StatusCron  string `yaml:"status_cron" default:"0 0 * * * *"`
		SummaryCron string `yaml:"summary_cron" default:"0 0 0 * * *"`
	} `yaml:"schedule"`
	Log struct {
		Level string `yaml:"level" default:"info"`
	} `yaml:"log"`
}

// Load reads config from a YAML file (which may be absent), applies
// environment variable overrides, fills defaults, and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// DryRun defaults true so an unconfigured start never trades.
	cfg.Trading.DryRun = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("UPBIT_ACCESS_KEY"); v != "" {
		cfg.Exchange.AccessKey = v
	}
	if v := os.Getenv("UPBIT_SECRET_KEY"); v != "" {
		cfg.Exchange.SecretKey = v
	}
	if v := os.Getenv("UPBIT_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("MARKETS"); v != "" {
		cfg.Trading.Markets = strings.Split(v, ",")
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Trading.DryRun = b
		}
	}
	if v := os.Getenv("MIN_ORDER_NOTIONAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trading.MinOrderNotional = f
		}
	}
	if v := os.Getenv("DISCOVERY_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Discovery.IntervalSec = n
		}
	}
	if v := os.Getenv("MAX_WORKING_SET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Discovery.MaxWorkingSet = n
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks threshold ranges and cross-field consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	need := c.Strategy.SpikeRecentN + c.Strategy.SpikePriorN
	if c.Trading.CandleCount < need {
		return fmt.Errorf("trading.candle_count (%d) must cover spike windows (%d)", c.Trading.CandleCount, need)
	}
	for _, m := range c.Trading.Markets {
		if q, b := splitMarket(m); q == "" || b == "" {
			return fmt.Errorf("trading.markets: malformed market %q", m)
		}
	}
	return nil
}

// HasCredentials reports whether API keys are configured. Their absence only
// warns at startup; dry-run operation works without them.
func (c *Config) HasCredentials() bool {
	return c.Exchange.AccessKey != "" && c.Exchange.SecretKey != ""
}

// FixedList reports whether the bot trades a configured market list instead
// of running discovery.
func (c *Config) FixedList() bool { return len(c.Trading.Markets) > 0 }

func splitMarket(m string) (string, string) {
	parts := strings.SplitN(m, "-", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
