package bootstrap

import (
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sportwire/ingest-admin/config"
	"github.com/sportwire/ingest-admin/internal/adapters/jobapi"
	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/data"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/domain/watch"
	"github.com/sportwire/ingest-admin/internal/observability/notify/pagerduty"
	"github.com/sportwire/ingest-admin/internal/observability/notify/slack"
	"github.com/sportwire/ingest-admin/internal/observability/statsd"
	"github.com/sportwire/ingest-admin/internal/service"
	"github.com/sportwire/ingest-admin/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs       *service.JobService
	Leagues    *service.LeagueService
	Teams      *service.TeamService
	Referees   *service.RefereeService
	Odds       *service.OddsService
	Duplicates *service.DuplicateService
	Strategies *service.StrategyService
	Audit      *service.AuditService
	Scheduler  *service.SchedulerService
	Auth       *service.AuthService

	// Watcher is the shared job watch client; Close it on shutdown.
	Watcher *watch.Watcher

	// Cache is the suggestion cache, also pinged by the readiness probe.
	// Nil when no cache Redis is configured.
	Cache core.CacheRepository

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	CacheClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB        *sql.DB
	Redis     redis.UniversalClient
	JobMirror *data.JobMirrorRepo
	League    *data.LeagueRepo
	Team      *data.TeamRepo
	Referee   *data.RefereeRepo
	Odds      *data.OddsRepo
	Match     *data.MatchRepo
	Duplicate *data.DuplicateRepo
	Strategy  *data.StrategyRepo
	Audit     *data.AuditRepo
	Cache     *data.RedisCacheRepo
}

// finishedDispatcher fans job-completion callbacks out to the services that
// react to them. Registration happens after construction because the services
// and the watcher reference each other.
type finishedDispatcher struct {
	hooks []watch.FinishedFunc
}

func (d *finishedDispatcher) register(hooks ...watch.FinishedFunc) {
	d.hooks = append(d.hooks, hooks...)
}

func (d *finishedDispatcher) dispatch(subject string, job *model.Job) {
	for _, hook := range d.hooks {
		hook(subject, job)
	}
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "ingest_admin",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	failureNotifier := buildFailureNotifier(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: failureNotifier,
		NotifierConfig:  cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, sessionRedis, cacheRedis redis.UniversalClient) *serviceRepositories {
	repos := &serviceRepositories{
		DB:        db,
		Redis:     sessionRedis,
		JobMirror: data.NewJobMirrorRepo(db),
		League:    data.NewLeagueRepo(db),
		Team:      data.NewTeamRepo(db),
		Referee:   data.NewRefereeRepo(db),
		Odds:      data.NewOddsRepo(db),
		Match:     data.NewMatchRepo(db),
		Duplicate: data.NewDuplicateRepo(db),
		Strategy:  data.NewStrategyRepo(db),
		Audit:     data.NewAuditRepo(db),
	}
	if cacheRedis != nil {
		repos.Cache = data.NewRedisCacheRepo(cacheRedis)
	}
	return repos
}

// NewServices wires repositories, the watch client, and domain services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, nil
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, deps.CacheClient)

	authority, err := jobapi.NewClient(jobapi.Config{
		BaseURL:  appCfg.Authority.BaseURL,
		APIToken: appCfg.Authority.Token,
		Timeout:  appCfg.Authority.Timeout,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	dispatcher := &finishedDispatcher{}
	watcher, err := watch.New(watch.Options{
		Fetcher:    authority,
		Config:     appCfg.Watch.Domain(),
		OnFinished: dispatcher.dispatch,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	auditSvc, err := service.NewAuditService(service.AuditServiceOptions{
		Repo:   repos.Audit,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	jobSvc, err := service.NewJobService(service.JobServiceOptions{
		Authority: authority,
		Repo:      repos.JobMirror,
		Watcher:   watcher,
		Audit:     auditSvc,
		Notifier:  observability.FailureNotifier,
		Logger:    logger,
		Metrics:   observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	leagueSvc, err := service.NewLeagueService(service.LeagueServiceOptions{
		Repo:   repos.League,
		Jobs:   jobSvc,
		Audit:  auditSvc,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	teamSvc, err := service.NewTeamService(service.TeamServiceOptions{
		Repo:   repos.Team,
		Cache:  cacheOrNil(repos),
		Audit:  auditSvc,
		Logger: logger,
		TTL:    appCfg.Cache.SuggestionTTL,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	refereeSvc, err := service.NewRefereeService(service.RefereeServiceOptions{
		Repo:   repos.Referee,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	oddsSvc, err := service.NewOddsService(service.OddsServiceOptions{
		Repo:   repos.Odds,
		Config: appCfg.Odds,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	duplicateSvc, err := service.NewDuplicateService(service.DuplicateServiceOptions{
		Matches:    repos.Match,
		Duplicates: repos.Duplicate,
		Config:     appCfg.Duplicates,
		Audit:      auditSvc,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	strategySvc, err := service.NewStrategyService(service.StrategyServiceOptions{
		Repo:   repos.Strategy,
		Jobs:   jobSvc,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	schedulerSvc, err := service.NewSchedulerService(service.SchedulerServiceOptions{
		Leagues: repos.League,
		Jobs:    jobSvc,
		Config:  appCfg.Scheduler,
		Logger:  logger,
		Metrics: observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	dispatcher.register(
		jobSvc.HandleFinished,
		strategySvc.HandleFinished,
		schedulerSvc.HandleFinished,
	)

	authSvc := BuildAuthService(AuthConfig{
		Auth:        appCfg.Auth,
		RedisClient: deps.RedisClient,
		Logger:      logger,
	})

	return ServiceContainer{
		Jobs:          jobSvc,
		Leagues:       leagueSvc,
		Teams:         teamSvc,
		Referees:      refereeSvc,
		Odds:          oddsSvc,
		Duplicates:    duplicateSvc,
		Strategies:    strategySvc,
		Audit:         auditSvc,
		Scheduler:     schedulerSvc,
		Auth:          authSvc,
		Watcher:       watcher,
		Cache:         cacheOrNil(repos),
		Observability: observability,
	}, nil
}

// cacheOrNil keeps a missing cache as a nil interface so the team service
// sees it as disabled rather than as a typed-nil repo.
func cacheOrNil(repos *serviceRepositories) core.CacheRepository {
	if repos.Cache == nil {
		return nil
	}
	return repos.Cache
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger.With("component", "failure_notifier"),
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger.With("component", "failure_notifier"),
		Sinks:  sinks,
	})
}
