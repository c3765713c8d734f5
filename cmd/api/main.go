package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"signflow/completion"
	"signflow/config"
	"signflow/credential"
	"signflow/db"
	"signflow/envelope"
	"signflow/handoff"
	"signflow/payment"
	"signflow/webhooks"
)

func main() {
	ctx := context.Background()

	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("bootstrap configuration: %v", err)
	}

	var (
		cache credential.Cache = credential.NewMemoryCache()
		store handoff.Store    = handoff.NewMemoryStore()
	)
	if connString := os.Getenv("DATABASE_URL"); connString != "" {
		pool, err := db.NewPool(ctx, connString)
		if err != nil {
			log.Fatalf("bootstrap database pool: %v", err)
		}
		defer pool.Close()
		cache = credential.NewPGCache(pool)
		store = handoff.NewPGStore(pool)
	}

	keys, err := newFileKeyProvider(os.Getenv("SIGNING_KEY_PATH"))
	if err != nil {
		log.Fatalf("bootstrap signing key: %v", err)
	}

	creds := credential.NewService(
		cache,
		credential.NewAssertionBuilder(keys),
		credential.NewExchangeClient(cfg.AuthServerHost, cfg.IntegrationKey, cfg.PublicBaseURL),
		cfg.IntegrationKey,
		cfg.AuthServerHost,
	)

	payments := payment.NewService(payment.NewClient(cfg.SecretKey()), string(cfg.GatewayMode), cfg.PublicBaseURL)

	server := &Server{
		agreements: envelope.NewService(cfg, creds, store),
		completion: completion.NewCoordinator(store, payments),
		payments:   payments,
	}
	if cfg.WebhookSecret != "" {
		server.verifier = webhooks.NewVerifier(cfg.WebhookSecret)
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Printf("signing workflow api listening on %s (gateway mode %s)", addr, cfg.GatewayMode)
	if err := http.ListenAndServe(addr, server.routes()); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func loadConfig() *config.Config {
	mode := config.GatewayMode(os.Getenv("GATEWAY_MODE"))
	if mode == "" {
		mode = config.GatewayModeTest
	}

	return &config.Config{
		IntegrationKey:   os.Getenv("ESIGN_INTEGRATION_KEY"),
		PrincipalID:      os.Getenv("ESIGN_PRINCIPAL_ID"),
		AuthServerHost:   os.Getenv("ESIGN_AUTH_SERVER"),
		ApproverName:     os.Getenv("APPROVER_NAME"),
		ApproverEmail:    os.Getenv("APPROVER_EMAIL"),
		GatewayAccountID: os.Getenv("GATEWAY_ACCOUNT_ID"),
		GatewayMode:      mode,
		TestSecretKey:    os.Getenv("GATEWAY_TEST_SECRET_KEY"),
		LiveSecretKey:    os.Getenv("GATEWAY_LIVE_SECRET_KEY"),
		PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),
		WebhookSecret:    os.Getenv("ESIGN_WEBHOOK_SECRET"),
	}
}
