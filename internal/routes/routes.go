package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/sawerbase/sawerbase/internal/auth"
	"github.com/sawerbase/sawerbase/internal/chain"
	"github.com/sawerbase/sawerbase/internal/config"
	"github.com/sawerbase/sawerbase/internal/donation"
	"github.com/sawerbase/sawerbase/internal/feed"
	"github.com/sawerbase/sawerbase/internal/leaderboard"
	"github.com/sawerbase/sawerbase/internal/ledger"
	"github.com/sawerbase/sawerbase/internal/middleware"
	"github.com/sawerbase/sawerbase/internal/notification"
	"github.com/sawerbase/sawerbase/internal/profile"
	"github.com/sawerbase/sawerbase/internal/relay"
	"github.com/sawerbase/sawerbase/internal/wallet"
	"github.com/sawerbase/sawerbase/internal/withdraw"
)

const relayTimeout = 30 * time.Second

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Eth    chain.EthClient
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Eth == nil {
			return fmt.Errorf("rpc client is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Chain access
	desc, err := chain.NewDescriptor(chain.DescriptorInput{
		ChainID:          d.Cfg.Chain.ChainID,
		Token:            d.Cfg.Chain.TokenAddress,
		DonationContract: d.Cfg.Chain.DonationContract,
		Sponsor:          d.Cfg.Chain.SponsorAddress,
		TokenSymbol:      d.Cfg.Chain.TokenSymbol,
		TokenName:        d.Cfg.Chain.TokenName,
		PermitVersion:    d.Cfg.Chain.PermitVersion,
	})
	if err != nil {
		return fmt.Errorf("chain descriptor: %w", err)
	}
	eth := d.Eth
	if eth == nil {
		d.Logger.Warn("no rpc endpoint configured, token reads will fail closed")
		eth = chain.OfflineClient{}
	}
	tokens := chain.NewClient(eth, desc)

	// Services and handlers
	var walletCache wallet.Cache
	if d.Cache != nil {
		walletCache = wallet.NewRedisCache(d.Cache)
	} else {
		walletCache = wallet.NewMemoryCache()
	}
	reader := wallet.NewReader(tokens, desc.DonationContract, walletCache, d.Logger)

	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
	}
	var (
		publisher ledger.Publisher
		push      feed.PushSource
	)
	if d.Cache != nil {
		publisher = ledger.NewRedisPublisher(d.Cache)
		push = feed.NewRedisSource(d.Cache, d.Logger)
	}
	recorder := ledger.NewRecorder(store, publisher, desc.TokenSymbol, d.Logger)

	var profileRepo profile.Repository
	if d.DB != nil {
		profileRepo = profile.NewPostgresRepository(d.DB)
	} else {
		profileRepo = profile.NewMemoryRepository()
	}

	minDonation, err := decimal.NewFromString(d.Cfg.Donation.MinDonation)
	if err != nil {
		return fmt.Errorf("invalid MIN_DONATION %q: %w", d.Cfg.Donation.MinDonation, err)
	}
	relayClient := relay.NewClient(d.Cfg.Chain.SponsorEndpoint, relayTimeout)
	waiter := chain.NewReceiptWaiter(eth, d.Cfg.Donation.ConfirmTimeout)
	notifier := notification.NewLoggerNotifier(d.Logger)

	orchestrator := donation.NewOrchestrator(donation.Dependencies{
		Descriptor: desc,
		Tokens:     tokens,
		Reader:     reader,
		Relay:      relayClient,
		Waiter:     waiter,
		Verifier:   tokens,
		Recorder:   recorder,
		Notifier:   notifier,
		Registry:   donation.NewRegistry(),
		Logger:     d.Logger,
	}, donation.Settings{
		PermitEnabled:  d.Cfg.Donation.PermitEnabled,
		FeeRatePercent: d.Cfg.Donation.FeeRatePercent,
		MinDonation:    minDonation,
	})
	hub := feed.NewHub(store, push, d.Cfg.Feed.PollInterval, d.Logger)
	boards := leaderboard.NewService(store, leaderboard.Options{
		Size:          d.Cfg.Leaderboard.Size,
		Interval:      d.Cfg.Leaderboard.Interval,
		CompletedOnly: d.Cfg.Leaderboard.CompletedOnly,
	}, d.Logger)
	withdrawals := withdraw.NewService(desc, reader, relayClient, waiter, notifier, d.Logger)

	donationHandler := donation.NewHandler(orchestrator)
	ledgerHandler := ledger.NewHandler(recorder, tokens, reader)
	walletHandler := wallet.NewHandler(reader, desc.TokenSymbol)
	profileHandler := profile.NewHandler(profile.NewService(profileRepo))
	withdrawHandler := withdraw.NewHandler(withdrawals)
	feedHandler := feed.NewHandler(hub, d.Logger)
	leaderboardHandler := leaderboard.NewHandler(boards, d.Logger)

	// Overlays for streaming software
	RegisterOverlayRoutes(app, feedHandler, leaderboardHandler)

	// API routes
	verifier := auth.NewVerifier(d.Cfg.IdentityTokenSecret)
	api := app.Group("/api/v1", middleware.IdentityAuth(verifier, false))
	if d.Cache != nil {
		api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID := middleware.RequestIDFrom(c)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, walletHandler)
	RegisterDonationRoutes(api, donationHandler, middleware.DonateRateLimit(d.Cache, d.Cfg.Donation.RateLimitPerMin))
	RegisterLedgerRoutes(api, ledgerHandler)
	RegisterLeaderboardRoutes(api, leaderboardHandler)
	RegisterProfileRoutes(api, profileHandler)
	RegisterWithdrawalRoutes(api, withdrawHandler)

	return nil
}
