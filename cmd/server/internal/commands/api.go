package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lodgepole-labs/lodgepole/internal/apikey"
	"github.com/lodgepole-labs/lodgepole/internal/audit"
	"github.com/lodgepole-labs/lodgepole/internal/auth"
	"github.com/lodgepole-labs/lodgepole/internal/idp"
	"github.com/lodgepole-labs/lodgepole/internal/logger"
	"github.com/lodgepole-labs/lodgepole/internal/ratelimit"
	"github.com/lodgepole-labs/lodgepole/internal/server"
	"github.com/lodgepole-labs/lodgepole/internal/store"
	memorystore "github.com/lodgepole-labs/lodgepole/internal/store/memory"
	postgresstore "github.com/lodgepole-labs/lodgepole/internal/store/postgres"
	"github.com/lodgepole-labs/lodgepole/internal/telemetry"
)

type APICmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"LODGEPOLE_LISTEN"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"LODGEPOLE_CORS_ORIGINS"`

	// Identity provider configuration
	IDPMode       string `help:"identity verification mode (remote or local)" default:"remote" env:"LODGEPOLE_IDP_MODE" enum:"remote,local"`
	IDPBaseURL    string `help:"identity provider base URL" default:"" env:"LODGEPOLE_IDP_BASE_URL"`
	IDPAPIKey     string `help:"identity provider service key" default:"" env:"LODGEPOLE_IDP_API_KEY"`
	JWTSecret     string `help:"shared JWT signing secret for local verification" default:"" env:"LODGEPOLE_JWT_SECRET"`
	SessionCookie string `help:"session cookie name" default:"" env:"LODGEPOLE_SESSION_COOKIE"`

	// Audit configuration
	AuditQueueSize int `help:"bounded audit queue size" default:"1024" env:"LODGEPOLE_AUDIT_QUEUE_SIZE"`

	// Rate limit configuration
	RateLimitRPS   float64 `help:"sustained requests per second per client" default:"25" env:"LODGEPOLE_RATE_LIMIT_RPS"`
	RateLimitBurst int     `help:"request burst per client" default:"50" env:"LODGEPOLE_RATE_LIMIT_BURST"`

	// Operational modes
	Tracing bool `help:"enable tracing" default:"false" env:"LODGEPOLE_TRACING"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"LODGEPOLE_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"LODGEPOLE_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *APICmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "lodgepole-api", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	// Create stores based on store type
	var (
		membershipStore store.MembershipStore
		apiKeyStore     store.APIKeyStore
		auditStore      store.AuditStore
		propertyStore   store.PropertyStore
	)

	switch c.StoreType {
	case "postgres":
		// Shared connection pool for all PostgreSQL stores
		poolCfg := &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		}
		pool, err := postgresstore.NewPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		membershipStore = postgresstore.NewMembershipStore(pool)
		apiKeyStore = postgresstore.NewAPIKeyStore(pool)
		auditStore = postgresstore.NewAuditStore(pool)
		propertyStore = postgresstore.NewPropertyStore(pool)

		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

	default:
		membershipStore = memorystore.NewMembershipStore()
		apiKeyStore = memorystore.NewAPIKeyStore()
		auditStore = memorystore.NewAuditStore()
		propertyStore = memorystore.NewPropertyStore()
		log.Info().Msg("Using in-memory stores")
	}

	verifier, err := c.buildVerifier()
	if err != nil {
		return err
	}

	keyService := apikey.NewService(apiKeyStore)
	authenticator := auth.NewAuthenticator(verifier, keyService)

	recorder := audit.NewRecorder(auditStore, c.AuditQueueSize)
	defer recorder.Close()

	limiter := ratelimit.New(c.RateLimitRPS, c.RateLimitBurst)
	defer limiter.Stop()

	srv := server.NewServer(server.Config{
		Authenticator:  authenticator,
		Memberships:    membershipStore,
		Properties:     propertyStore,
		AuditLog:       auditStore,
		APIKeys:        keyService,
		Recorder:       recorder,
		Limiter:        limiter,
		AllowedOrigins: c.CORSOrigins,
	})

	log.Info().Str("addr", c.Listen).Str("idp_mode", c.IDPMode).Msg("Starting HTTP server")
	return configureHTTPServer(c.Listen, srv.Handler(log)).ListenAndServe()
}

func (c *APICmd) buildVerifier() (idp.Verifier, error) {
	switch c.IDPMode {
	case "local":
		return idp.NewLocalVerifier(c.JWTSecret, c.SessionCookie)
	default:
		if c.IDPBaseURL == "" {
			return nil, errors.New("identity provider base URL is required (--idp-base-url or LODGEPOLE_IDP_BASE_URL)")
		}
		var opts []idp.ClientOption
		if c.SessionCookie != "" {
			opts = append(opts, idp.WithSessionCookie(c.SessionCookie))
		}
		return idp.NewClient(c.IDPBaseURL, c.IDPAPIKey, opts...), nil
	}
}
