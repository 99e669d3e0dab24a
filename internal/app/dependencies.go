package app

import (
	"database/sql"
	"time"

	"github.com/varsla/varsla/internal/config"
	"github.com/varsla/varsla/internal/lock"
	"github.com/varsla/varsla/internal/mailer"
	"github.com/varsla/varsla/internal/scheduler"
	"github.com/varsla/varsla/internal/utils"
	"github.com/varsla/varsla/pkg/event"
	"github.com/varsla/varsla/pkg/feed"
	"github.com/varsla/varsla/pkg/reminder"
	"github.com/varsla/varsla/pkg/tenant"
	"github.com/varsla/varsla/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	UserRepo   user.Repo
	TenantRepo tenant.Repository

	EventRepo    event.Repository
	EventService event.EventService
	EventHandler *event.EventHandler

	NotificationRepo reminder.NotificationRepo
	Evaluator        *reminder.Evaluator
	Dispatcher       *reminder.Dispatcher

	FeedTokenRepo feed.TokenRepo
	FeedRenderer  *feed.Renderer
	FeedHandler   *feed.Handler

	Mailer    mailer.Mailer
	Locker    lock.Locker
	Scheduler *scheduler.Scheduler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = utils.SystemClock{}

	deps.UserRepo = user.NewUserRepo(db)
	deps.TenantRepo = tenant.NewRepository(db)

	deps.EventRepo = event.NewRepository(db)
	deps.EventService = event.NewEventService(deps.EventRepo)
	deps.EventHandler = event.NewEventHandler(deps.EventService)

	deps.NotificationRepo = reminder.NewNotificationRepo(db)
	slack := time.Duration(cfg.Scheduler.SlackMinutes) * time.Minute
	lookback := time.Duration(cfg.Scheduler.DedupeLookbackHours) * time.Hour
	deps.Evaluator = reminder.NewEvaluator(deps.EventRepo, deps.NotificationRepo, slack, lookback)

	deps.Mailer = mailer.New(cfg.Mailer)
	deps.Dispatcher = reminder.NewDispatcher(deps.UserRepo, deps.Mailer, reminder.LogPushSender{}, deps.NotificationRepo)

	deps.FeedTokenRepo = feed.NewTokenRepo(db)
	deps.FeedRenderer = feed.NewRenderer(deps.EventRepo)
	deps.FeedHandler = feed.NewHandler(deps.FeedRenderer, deps.FeedTokenRepo, deps.Clock, cfg.Feed.DaysBack, cfg.Feed.DaysForward)

	deps.Locker = lock.NewDBLocker(db)
	interval := time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute
	lockTTL := time.Duration(cfg.Scheduler.LockTTLSeconds) * time.Second
	deps.Scheduler = scheduler.New(deps.TenantRepo, deps.Evaluator, deps.Dispatcher, deps.Locker, deps.Clock, interval, lockTTL)

	return deps
}
