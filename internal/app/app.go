// Package app wires configuration into repositories and services for the
// server and worker binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"github.com/letteros/letteros/internal/assembler"
	"github.com/letteros/letteros/internal/auth"
	"github.com/letteros/letteros/internal/config"
	"github.com/letteros/letteros/internal/importer"
	"github.com/letteros/letteros/internal/llm"
	"github.com/letteros/letteros/internal/mailing"
	"github.com/letteros/letteros/internal/outbox"
	"github.com/letteros/letteros/internal/pkg/awsconf"
	"github.com/letteros/letteros/internal/pkg/distlock"
	"github.com/letteros/letteros/internal/pkg/logger"
	"github.com/letteros/letteros/internal/planning"
	"github.com/letteros/letteros/internal/prompts"
	"github.com/letteros/letteros/internal/repository/dynamo"
	"github.com/letteros/letteros/internal/repository/memory"
	"github.com/letteros/letteros/internal/repository/postgres"
	"github.com/letteros/letteros/internal/repository/rediscache"
	"github.com/letteros/letteros/internal/service/launchcontent"
	"github.com/letteros/letteros/internal/service/newsletter"
	"github.com/letteros/letteros/internal/service/subscriber"
	"github.com/letteros/letteros/internal/storage"
	"github.com/letteros/letteros/internal/wizard"
)

// App holds the shared clients and services.
type App struct {
	Config *config.Config
	Redis  *redis.Client
	DB     *sql.DB
	Outbox *outbox.RedisOutbox
	Locks  distlock.Factory

	Products    *launchcontent.Service
	Newsletters *newsletter.Service
	Subscribers *subscriber.Service
	Imports     *importer.Service
	Planner     *planning.Orchestrator
	Generator   *assembler.Generator
	Wizards     *wizard.Service
	Auth        *auth.Manager
}

type repos struct {
	products    launchcontent.Repository
	newsletters newsletter.Repository
	subscribers subscriber.Repository
}

// ConfigureLogging applies the logging section to the default logger.
func ConfigureLogging(cfg config.LoggingConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	if cfg.RedactPII != nil {
		logger.SetRedactPII(*cfg.RedactPII)
	}
}

// New connects the configured backends and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if cfg.Redis.Enabled() {
		rc, err := connectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		a.Redis = rc
		log.Println("[app] redis connected")
	}
	a.Locks = distlock.NewFactory(a.Redis)

	r, err := a.openRepos(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var lcOpts []launchcontent.Option
	if a.Redis != nil {
		a.Outbox = outbox.NewRedisOutbox(a.Redis, cfg.Outbox.MaxAttempts)
		lcOpts = append(lcOpts, launchcontent.WithWriteBehind(rediscache.NewLaunchContentCache(a.Redis), a.Outbox))
	}
	a.Products = launchcontent.NewService(r.products, lcOpts...)
	a.Newsletters = newsletter.NewService(r.newsletters, a.Products)
	a.Subscribers = subscriber.NewService(r.subscribers)

	archive, err := storage.New(ctx, cfg.Archive, cfg.Storage.AWSProfile)
	if err != nil {
		a.Close()
		return nil, err
	}
	var jobs importer.JobStore = importer.NewMemoryJobStore()
	if a.Redis != nil {
		jobs = importer.NewRedisJobStore(a.Redis)
	}
	a.Imports = importer.NewService(a.Subscribers, archive, a.Locks, jobs, importer.Options{
		BatchSize:    cfg.Import.BatchSize,
		PreviewRows:  cfg.Import.PreviewRows,
		MaxFileBytes: cfg.Import.MaxFileBytes,
	})

	pack, err := prompts.Load(cfg.Prompts.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	completer, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Planner = planning.NewOrchestrator(completer, pack, planning.Options{
		MaxTurns:       cfg.Planning.MaxTurns,
		MaxNewsletters: cfg.Planning.MaxNewsletters,
		FallbackCount:  cfg.Planning.FallbackCount,
	})
	a.Generator = assembler.NewGenerator(completer, pack)

	var wizStore wizard.Store = wizard.NewMemoryStore()
	if a.Redis != nil {
		wizStore = wizard.NewRedisStore(a.Redis)
	}
	a.Wizards = wizard.NewService(wizStore, a.Products, a.Planner, a.Generator, a.Newsletters)

	a.Auth, err = newAuth(cfg.Auth, a.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rc := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rc, nil
}

func (a *App) openRepos(ctx context.Context) (repos, error) {
	cfg := a.Config.Storage
	switch cfg.Backend {
	case "memory":
		log.Println("[app] using in-memory storage; data is lost on restart")
		return repos{
			products:    memory.NewLaunchContentRepo(),
			newsletters: memory.NewNewsletterRepo(),
			subscribers: memory.NewSubscriberRepo(),
		}, nil
	case "dynamodb":
		awsCfg, err := awsconf.Load(ctx, cfg.AWSRegion, cfg.AWSProfile)
		if err != nil {
			return repos{}, err
		}
		t := dynamo.NewTable(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)
		log.Printf("[app] using DynamoDB table %s (%s)", cfg.DynamoDBTable, cfg.AWSRegion)
		return repos{
			products:    dynamo.NewLaunchContentRepo(t),
			newsletters: dynamo.NewNewsletterRepo(t),
			subscribers: dynamo.NewSubscriberRepo(t),
		}, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return repos{}, errors.New("storage: database_url is required for the postgres backend")
		}
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return repos{}, err
		}
		a.DB = db
		log.Println("[app] using PostgreSQL storage")
		return repos{
			products:    postgres.NewLaunchContentRepo(db),
			newsletters: postgres.NewNewsletterRepo(db),
			subscribers: postgres.NewSubscriberRepo(db),
		}, nil
	}
	return repos{}, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
}

// newAuth builds the session manager. A missing token key disables the
// identity-token endpoint but keeps Google login and session checks.
func newAuth(cfg config.AuthConfig, rc *redis.Client) (*auth.Manager, error) {
	var verifier auth.TokenVerifier
	v, err := auth.NewVerifier(cfg)
	switch {
	case err == nil:
		verifier = v
	case errors.Is(err, auth.ErrNoTokenKey):
		log.Println("[app] WARNING: no identity token key configured; POST /auth/session is disabled")
	default:
		return nil, err
	}

	var store auth.SessionStore
	if rc != nil {
		store = auth.NewRedisSessionStore(rc)
	} else {
		mem := auth.NewMemorySessionStore()
		go sweepSessions(mem)
		store = mem
	}
	return auth.NewManager(cfg, verifier, store), nil
}

func sweepSessions(s *auth.MemorySessionStore) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		if n := s.Sweep(); n > 0 {
			log.Printf("[auth] swept %d expired sessions", n)
		}
	}
}

// Reconciler returns the outbox reconciler, or nil when writes go straight
// to the repository.
func (a *App) Reconciler() *outbox.Reconciler {
	if a.Outbox == nil {
		return nil
	}
	return outbox.NewReconciler(a.Outbox, a.Products.Apply, a.Config.Outbox.RemoteTimeout(), a.Config.Outbox.PollInterval())
}

// Scheduler builds the mailing scheduler backed by SES.
func (a *App) Scheduler(ctx context.Context) (*mailing.Scheduler, error) {
	sender, err := mailing.NewSESSenderFromConfig(ctx, a.Config.Mailing)
	if err != nil {
		return nil, err
	}
	return mailing.NewScheduler(a.Newsletters, a.Subscribers, mailing.NewRenderer(), sender, sender.FromName(), a.Locks, a.Config.Mailing.PollInterval()), nil
}

// Close releases the connections opened by New.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
}
