package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pesa-bridge/pesa_bridge/internal/cards"
	"github.com/pesa-bridge/pesa_bridge/internal/chain"
	"github.com/pesa-bridge/pesa_bridge/internal/config"
	"github.com/pesa-bridge/pesa_bridge/internal/faucet"
	"github.com/pesa-bridge/pesa_bridge/internal/history"
	"github.com/pesa-bridge/pesa_bridge/internal/middleware"
	"github.com/pesa-bridge/pesa_bridge/internal/notification"
	"github.com/pesa-bridge/pesa_bridge/internal/settlement"
	"github.com/pesa-bridge/pesa_bridge/internal/transfer"
	"github.com/pesa-bridge/pesa_bridge/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Eth    *ethclient.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Eth == nil {
		return fmt.Errorf("chain rpc client is required")
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Chain access
	reader, err := chain.NewERC20Reader(d.Eth, d.Cfg.USDCContract)
	if err != nil {
		return err
	}

	expected := wallet.ChainParams{
		ChainID:        d.Cfg.ChainID,
		Name:           "Avalanche Fuji Testnet",
		RPCURL:         d.Cfg.RPCURL,
		CurrencySymbol: "AVAX",
		ExplorerURL:    "https://testnet.snowtrace.io/",
	}

	// A session without configured accounts has no provider; Connect then
	// reports ProviderUnavailable, mirroring a missing browser wallet.
	var provider wallet.Provider
	if len(d.Cfg.WalletAccounts) > 0 {
		node, err := wallet.NewNodeProvider(context.Background(), d.Cfg.WalletAccounts, d.Cfg.ChainID,
			map[uint64]string{d.Cfg.ChainID: d.Cfg.RPCURL})
		if err != nil {
			return err
		}
		provider = node
	}

	session := wallet.NewSession(provider, reader, expected, d.Logger)

	// Settlement rails
	var mobileMoney settlement.MobileMoneyClient
	if d.Cfg.MobileMoneyAPIURL != "" {
		mobileMoney = settlement.NewHTTPMobileMoney(d.Cfg.MobileMoneyAPIURL, d.Cfg.MobileMoneyAPIKey)
	} else {
		mobileMoney = settlement.StaticMobileMoney{}
	}
	var cardIssuer settlement.CardClient
	if d.Cfg.CardAPIURL != "" {
		cardIssuer = settlement.NewHTTPCardIssuer(d.Cfg.CardAPIURL, d.Cfg.CardAPIKey)
	} else {
		cardIssuer = settlement.StaticCardIssuer{}
	}

	var store history.Store
	if d.DB != nil {
		store = history.NewPostgresStore(d.DB)
	} else {
		store = history.NewInMemory()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)

	transferSvc := transfer.NewService(session, mobileMoney, store, notifier, d.Logger)
	cardSvc := cards.NewService(session, cardIssuer, store, notifier, d.Logger)
	faucetSvc := faucet.NewService(session, notifier, d.Logger)

	sessionHandler := wallet.NewHandler(session)
	transferHandler := transfer.NewHandler(transferSvc, store)
	cardHandler := cards.NewHandler(cardSvc)
	faucetHandler := faucet.NewHandler(faucetSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterSessionRoutes(api, sessionHandler)
	RegisterTransferRoutes(api, transferHandler)
	RegisterCardRoutes(api, cardHandler)
	RegisterFaucetRoutes(api, faucetHandler)

	return nil
}
