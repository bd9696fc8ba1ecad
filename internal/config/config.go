package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "SawerBase"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"

	defaultChainID             = 84532
	defaultDonationContract    = "0x0030ebc28d61d9B4e13951aF4D7cF55905F967D1"
	defaultTokenAddress        = "0xaac475960346ed061aa8b8f204749b93ddb75209"
	defaultTokenSymbol         = "IDRX"
	defaultPermitVersion       = "1"
	defaultSponsorEndpoint     = "http://localhost:3000/api/paymaster"
	defaultFeeRatePercent      = 10
	defaultMinDonation         = "10000"
	defaultConfirmTimeout      = 2 * time.Minute
	defaultFeedPollInterval    = 3 * time.Second
	defaultLeaderboardInterval = 5 * time.Second
	defaultLeaderboardSize     = 5
	defaultDonateRateLimit     = 10
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName             string
	AppEnv              string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	ShutdownPeriod      time.Duration
	IdempotencyTTL      time.Duration
	IdentityTokenSecret string

	Chain       ChainConfig
	Donation    DonationConfig
	Feed        FeedConfig
	Leaderboard LeaderboardConfig
}

// ChainConfig describes the network, the token and the donation contract.
type ChainConfig struct {
	RPCURL           string
	ChainID          int64
	DonationContract string
	TokenAddress     string
	TokenSymbol      string
	TokenName        string
	PermitVersion    string
	SponsorAddress   string
	SponsorEndpoint  string
}

// DonationConfig tunes the orchestrator.
type DonationConfig struct {
	PermitEnabled   bool
	FeeRatePercent  int64
	MinDonation     string
	ConfirmTimeout  time.Duration
	RateLimitPerMin int
}

// FeedConfig tunes the realtime overlay feed.
type FeedConfig struct {
	PollInterval time.Duration
}

// LeaderboardConfig tunes leaderboard aggregation.
type LeaderboardConfig struct {
	Interval      time.Duration
	Size          int
	CompletedOnly bool
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:             getEnv("APP_NAME", defaultAppName),
		AppEnv:              getEnv("APP_ENV", defaultAppEnv),
		Port:                getEnv("PORT", defaultPort),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		ShutdownPeriod:      defaultShutdownDelay,
		IdempotencyTTL:      defaultIdempotencyTTL,
		IdentityTokenSecret: os.Getenv("IDENTITY_TOKEN_SECRET"),
		Chain: ChainConfig{
			RPCURL:           os.Getenv("ETH_RPC_URL"),
			ChainID:          defaultChainID,
			DonationContract: getEnv("DONATION_CONTRACT_ADDRESS", defaultDonationContract),
			TokenAddress:     getEnv("TOKEN_ADDRESS", defaultTokenAddress),
			TokenSymbol:      getEnv("TOKEN_SYMBOL", defaultTokenSymbol),
			TokenName:        getEnv("TOKEN_NAME", defaultTokenSymbol),
			PermitVersion:    getEnv("TOKEN_PERMIT_VERSION", defaultPermitVersion),
			SponsorAddress:   os.Getenv("SPONSOR_ADDRESS"),
			SponsorEndpoint:  getEnv("SPONSOR_ENDPOINT", defaultSponsorEndpoint),
		},
		Donation: DonationConfig{
			PermitEnabled:   true,
			FeeRatePercent:  defaultFeeRatePercent,
			MinDonation:     getEnv("MIN_DONATION", defaultMinDonation),
			ConfirmTimeout:  defaultConfirmTimeout,
			RateLimitPerMin: defaultDonateRateLimit,
		},
		Feed: FeedConfig{PollInterval: defaultFeedPollInterval},
		Leaderboard: LeaderboardConfig{
			Interval: defaultLeaderboardInterval,
			Size:     defaultLeaderboardSize,
		},
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	var err error
	if cfg.Chain.ChainID, err = getInt64("CHAIN_ID", cfg.Chain.ChainID); err != nil {
		return Config{}, err
	}
	if cfg.Donation.PermitEnabled, err = getBool("PERMIT_ENABLED", cfg.Donation.PermitEnabled); err != nil {
		return Config{}, err
	}
	if cfg.Donation.FeeRatePercent, err = getInt64("FEE_RATE_PERCENT", cfg.Donation.FeeRatePercent); err != nil {
		return Config{}, err
	}
	if cfg.Donation.ConfirmTimeout, err = getDuration("CONFIRM_TIMEOUT", cfg.Donation.ConfirmTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Donation.RateLimitPerMin, err = getInt("DONATE_RATE_LIMIT_PER_MIN", cfg.Donation.RateLimitPerMin); err != nil {
		return Config{}, err
	}
	if cfg.Feed.PollInterval, err = getDuration("FEED_POLL_INTERVAL", cfg.Feed.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.Leaderboard.Interval, err = getDuration("LEADERBOARD_INTERVAL", cfg.Leaderboard.Interval); err != nil {
		return Config{}, err
	}
	if cfg.Leaderboard.Size, err = getInt("LEADERBOARD_SIZE", cfg.Leaderboard.Size); err != nil {
		return Config{}, err
	}
	if cfg.Leaderboard.CompletedOnly, err = getBool("LEADERBOARD_COMPLETED_ONLY", false); err != nil {
		return Config{}, err
	}

	if cfg.Donation.FeeRatePercent < 0 || cfg.Donation.FeeRatePercent > 100 {
		return Config{}, fmt.Errorf("FEE_RATE_PERCENT must be between 0 and 100")
	}
	for key, d := range map[string]time.Duration{
		"CONFIRM_TIMEOUT":      cfg.Donation.ConfirmTimeout,
		"FEED_POLL_INTERVAL":   cfg.Feed.PollInterval,
		"LEADERBOARD_INTERVAL": cfg.Leaderboard.Interval,
	} {
		if d <= 0 {
			return Config{}, fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.IdentityTokenSecret == "" {
			return Config{}, fmt.Errorf("IDENTITY_TOKEN_SECRET must be set")
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local/development environment where
// Postgres and Redis fall back to in-memory implementations.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
