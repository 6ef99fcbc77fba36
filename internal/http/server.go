package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/omnidesk/inbox-gateway/internal/channel"
	"github.com/omnidesk/inbox-gateway/internal/config"
	"github.com/omnidesk/inbox-gateway/internal/http/middleware"
	"github.com/omnidesk/inbox-gateway/internal/logger"
	"github.com/omnidesk/inbox-gateway/internal/metrics"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"github.com/omnidesk/inbox-gateway/internal/service/dispatch"
	"github.com/omnidesk/inbox-gateway/internal/service/resolver"
	"github.com/omnidesk/inbox-gateway/internal/service/scheduler"
	"github.com/omnidesk/inbox-gateway/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	agentsRepo := repository.NewAgentsRepository(mysqlDB)
	contactsRepo := repository.NewContactsRepository(mysqlDB)
	messagesRepo := repository.NewMessagesRepository(mysqlDB)
	notesRepo := repository.NewNotesRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)
	store := repository.NewStore(mysqlDB, messagesRepo, outboxRepo)

	// repos (ClickHouse)
	chEventsRepo := repository.NewCHEventsRepository(clickhouseDB)

	// channel adapters
	adapters := channel.NewRegistry(
		channel.NewTwilioSMS(cfg.Twilio),
		channel.NewTwilioWhatsApp(cfg.Twilio),
		channel.NewInstagram(cfg.Instagram),
		channel.NewEmail(cfg.Email),
	)

	// services
	resolverSvc := resolver.New(contactsRepo, logger.Log)
	dispatchSvc := dispatch.New(store, contactsRepo, adapters, cfg.Dispatch.SendTimeout, logger.Log)
	schedulerSvc := scheduler.New(store, dispatchSvc, cfg.Scheduler.BatchLimit, logger.Log)
	ingestor := webhook.NewIngestor(resolverSvc, store, logger.Log)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// provider webhooks (unauthenticated; providers sign/verify their own way)
	e.POST("/webhooks/twilio", twilioWebhookHandler(ingestor))
	e.GET("/webhooks/instagram", instagramVerifyHandler(cfg.Instagram.VerifyToken))
	e.POST("/webhooks/instagram", instagramWebhookHandler(ingestor))

	// scheduler trigger (cron secret, not agent auth)
	e.POST("/v1/scheduler/tick", tickHandler(schedulerSvc, cfg.Scheduler.CronSecret))

	// middlewares
	authMW := middleware.APIKeyMiddleware(agentsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:agent:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/messages/send", sendMessageHandler(dispatchSvc))
	v1.GET("/messages", listMessagesHandler(messagesRepo))
	v1.POST("/messages/mark-read", markReadHandler(messagesRepo))
	v1.GET("/messages/unread-count", unreadCountHandler(messagesRepo))
	v1.GET("/scheduler/scheduled", listScheduledHandler(schedulerSvc))
	v1.DELETE("/scheduler/scheduled", cancelScheduledHandler(schedulerSvc))
	v1.GET("/contacts", listContactsHandler(contactsRepo))
	v1.POST("/contacts", createContactHandler(contactsRepo))
	v1.GET("/contacts/:id", getContactHandler(contactsRepo))
	v1.PUT("/contacts/:id", updateContactHandler(contactsRepo))
	v1.GET("/notes", listNotesHandler(notesRepo))
	v1.POST("/notes", createNoteHandler(notesRepo))
	v1.GET("/analytics", analyticsHandler(chEventsRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
