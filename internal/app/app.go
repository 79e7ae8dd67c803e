// Package app assembles SignalX from configuration. Every service receives
// its collaborators explicitly; nothing is reached through package globals.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"signalx/internal/alerts"
	"signalx/internal/analytics"
	"signalx/internal/api"
	"signalx/internal/applications"
	"signalx/internal/common/auth"
	appaws "signalx/internal/common/aws"
	"signalx/internal/common/camunda"
	"signalx/internal/common/config"
	"signalx/internal/common/database"
	"signalx/internal/common/logger"
	"signalx/internal/common/observability"
	"signalx/internal/jobs"
	"signalx/internal/llm"
	"signalx/internal/moderation"
	"signalx/internal/notify"
	"signalx/internal/scheduler"
	"signalx/internal/search"
	"signalx/internal/store"
	"signalx/internal/users"
	checksupplydemand "signalx/internal/workers/analytics/check-supply-demand"
	sendbulkalert "signalx/internal/workers/communication/send-bulk-alert"
	checkjobsafety "signalx/internal/workers/moderation/check-job-safety"
)

// Infra holds the external clients the services are built on. DB is
// required; the rest are optional and disable their feature when nil.
type Infra struct {
	DB    *sql.DB
	Redis redis.Cmdable
	ES    *elasticsearch.Client
	SES   appaws.SESAPI
	SNS   appaws.SNSAPI
	Obs   *observability.Observability
}

// App is the wired service graph. Scheduler and Auth are nil when disabled.
type App struct {
	Config *config.Config
	Logger logger.Logger
	Infra  Infra

	Store        *store.Store
	Mailer       notify.Mailer
	Classifier   *moderation.Classifier
	Analytics    *analytics.Service
	Alerts       *alerts.Dispatcher
	Jobs         *jobs.Service
	Applications *applications.Service
	Users        *users.Service
	Scheduler    *scheduler.Scheduler
	Auth         *auth.KeycloakClient

	closers []func() error
}

// New connects to the configured backends and wires the services. Postgres
// is mandatory; Redis and Elasticsearch degrade to disabled on failure.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	var (
		infra   Infra
		closers []func() error
	)

	var pg *database.PostgresClient
	err := RetryWithBackoff(ctx, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		return nil
	}, 10, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	infra.DB = pg.DB
	closers = append(closers, pg.Close)
	log.Info("PostgreSQL connected", nil)

	if cfg.Database.Redis.Address != "" {
		var rc *database.RedisClient
		err := RetryWithBackoff(ctx, func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				rc.Close()
				return err
			}
			return nil
		}, 3, time.Second, log, "Redis connection")
		if err != nil {
			log.Warn("redis unavailable, estimate cache and sweep lock disabled", map[string]interface{}{"error": err.Error()})
		} else {
			infra.Redis = rc.Client
			closers = append(closers, rc.Close)
		}
	}

	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err := RetryWithBackoff(ctx, func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 3, time.Second, log, "Elasticsearch connection")
		if err != nil {
			log.Warn("elasticsearch unavailable, job search disabled", map[string]interface{}{"error": err.Error()})
		} else {
			infra.ES = es.Client
		}
	}

	aws := cfg.Integrations.AWS
	if cfg.Notifications.Provider == "ses" || aws.SES.Enabled {
		client, err := appaws.NewSESClient(ctx, aws.Region)
		if err != nil {
			closeAll(closers, log)
			return nil, fmt.Errorf("ses client: %w", err)
		}
		infra.SES = client
	}
	if cfg.Notifications.SMS.Enabled && aws.SNS.Enabled {
		client, err := appaws.NewSNSClient(ctx, aws.Region)
		if err != nil {
			log.Warn("sns unavailable, SMS alerts disabled", map[string]interface{}{"error": err.Error()})
		} else {
			infra.SNS = client
		}
	}

	infra.Obs = observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, log)

	a, err := Build(cfg, infra, log)
	if err != nil {
		closeAll(closers, log)
		return nil, err
	}
	a.closers = closers

	if cfg.Database.Postgres.AutoMigrate {
		if err := a.Store.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if infra.ES != nil {
		if err := a.index().EnsureIndex(ctx); err != nil {
			log.Warn("job index not ensured", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := a.Users.BootstrapAdmin(ctx, cfg.Auth.DefaultAdminEmail); err != nil {
		log.Warn("admin bootstrap failed", map[string]interface{}{"error": err.Error()})
	}

	return a, nil
}

// Build wires the services over already-connected infrastructure.
func Build(cfg *config.Config, infra Infra, log logger.Logger) (*App, error) {
	if infra.DB == nil {
		return nil, fmt.Errorf("database is required")
	}

	mailer, err := newMailer(cfg, infra)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: log, Infra: infra, Mailer: mailer}
	appURL := cfg.App.URL

	a.Store = store.New(infra.DB)
	a.Classifier = moderation.NewClassifier(
		llm.NewChatClient(cfg.APIs.Moderation), cfg.Moderation.RedFlags, log)

	cache := infra.Redis
	evaluator := analytics.NewEvaluator(a.Store, llm.NewGeminiClient(cfg.APIs.Analytics),
		cache, config.GetDuration(cfg.Analytics.EstimateTTL), log)
	a.Alerts = alerts.NewDispatcher(mailer, cfg.Notifications.AdminEmails, appURL, log)
	a.Analytics = analytics.NewService(evaluator, a.Alerts, log)

	var sms jobs.SMSSender
	if infra.SNS != nil {
		sms = notify.NewSMSSender(infra.SNS, cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
	}
	var index jobs.Index
	if infra.ES != nil {
		index = a.index()
	}
	a.Jobs = jobs.NewService(a.Store, a.Classifier, index, jobs.NewAlerter(mailer, sms, appURL, log), log)
	a.Applications = applications.NewService(a.Store, mailer, appURL, log)
	a.Users = users.NewService(a.Store, log)

	if cfg.Scheduler.Enabled {
		a.Scheduler = scheduler.New(a.Jobs, cache, cfg.Scheduler.PublishSpec,
			config.GetDuration(cfg.Scheduler.SweepTimeout), log)
	}
	if cfg.Auth.Enabled {
		kc := cfg.Auth.Keycloak
		a.Auth = auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret)
	}

	return a, nil
}

func newMailer(cfg *config.Config, infra Infra) (notify.Mailer, error) {
	switch cfg.Notifications.Provider {
	case "", "smtp":
		return notify.NewSMTPMailer(cfg.Integrations.SMTP), nil
	case "ses":
		if infra.SES == nil {
			return nil, fmt.Errorf("notification provider ses requires an SES client")
		}
		return notify.NewSESMailer(infra.SES, cfg.Integrations.SMTP.From), nil
	default:
		return nil, fmt.Errorf("unknown notification provider %q", cfg.Notifications.Provider)
	}
}

func (a *App) index() *search.Index {
	return search.NewIndex(a.Infra.ES, a.Config.Database.Elasticsearch.JobsIndex, a.Logger)
}

// APIHandler builds the HTTP surface with readiness checks for each backend.
func (a *App) APIHandler() *api.Handler {
	checks := map[string]func(context.Context) error{
		"postgres": a.Infra.DB.PingContext,
	}
	if a.Infra.Redis != nil {
		rdb := a.Infra.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if a.Infra.ES != nil {
		es := &database.ElasticsearchClient{Client: a.Infra.ES}
		checks["elasticsearch"] = es.Ping
	}

	deps := api.Deps{
		Risk:         a.Analytics,
		Alerts:       a.Alerts,
		Jobs:         a.Jobs,
		Applications: a.Applications,
		Users:        a.Users,
		Mailer:       a.Mailer,
		Obs:          a.Infra.Obs,
		Checks:       checks,
		AdminRole:    a.Config.Auth.AdminRole,
		AdminEmail:   a.Config.Auth.DefaultAdminEmail,
		AppURL:       a.Config.App.URL,
	}
	if a.Auth != nil {
		deps.Auth = a.Auth
	}
	return api.NewHandler(deps, a.Logger)
}

// WorkerHandlers returns the workflow task handlers keyed by task type.
func (a *App) WorkerHandlers() map[string]camunda.JobHandler {
	wc := func(taskType string) config.WorkerConfig { return config.GetWorkerConfig(a.Config, taskType) }
	return map[string]camunda.JobHandler{
		checkjobsafety.TaskType: checkjobsafety.NewHandler(
			checkjobsafety.FromWorkerConfig(wc(checkjobsafety.TaskType)), a.Classifier, a.Logger),
		checksupplydemand.TaskType: checksupplydemand.NewHandler(
			checksupplydemand.FromWorkerConfig(wc(checksupplydemand.TaskType)), a.Analytics, a.Logger),
		sendbulkalert.TaskType: sendbulkalert.NewHandler(
			sendbulkalert.FromWorkerConfig(wc(sendbulkalert.TaskType)), a.Alerts, a.Logger),
	}
}

// Close releases the connections opened by New.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Infra.Obs != nil {
		a.Infra.Obs.Shutdown(context.Background())
	}
	closeAll(a.closers, a.Logger)
}

func closeAll(closers []func() error, log logger.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			log.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
