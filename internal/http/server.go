package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gwhitt/roundbook/internal/config"
	"github.com/gwhitt/roundbook/internal/http/middleware"
	"github.com/gwhitt/roundbook/internal/metrics"
	"github.com/gwhitt/roundbook/internal/repository"
	"github.com/gwhitt/roundbook/internal/service/notify"
	"github.com/gwhitt/roundbook/internal/service/workload"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client, zlog *zap.Logger) *Server {
	// repos (MySQL)
	accountsRepo := repository.NewAccountsRepository(mysqlDB)
	customersRepo := repository.NewCustomersRepository(mysqlDB)
	routesRepo := repository.NewRoutesRepository(mysqlDB)
	pricingRepo := repository.NewPricingCatalog(mysqlDB)
	templatesRepo := repository.NewTemplatesRepository(mysqlDB)
	notificationsRepo := repository.NewNotificationsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	// repos (ClickHouse)
	historyRepo := repository.NewHistoryRepository(clickhouseDB)

	// services
	workloadSvc := workload.New(
		accountsRepo,
		customersRepo,
		routesRepo,
		pricingRepo,
		historyRepo,
		zlog,
	)
	notifySvc := notify.New(
		mysqlDB,
		accountsRepo,
		customersRepo,
		templatesRepo,
		notificationsRepo,
		outboxRepo,
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(accountsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:acct:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.GET("/workload/calendar", calendarHandler(workloadSvc))
	v1.GET("/workload/days/:date", dayViewHandler(workloadSvc))
	v1.POST("/workload/days/:date/reorder", reorderHandler(workloadSvc))
	v1.POST("/workload/days/:date/complete", completeHandler(workloadSvc))
	v1.POST("/workload/days/:date/bulk-move", bulkMoveHandler(workloadSvc))
	v1.POST("/notices/payment", paymentNoticeHandler(notifySvc))
	v1.GET("/customers/:id/history", customerHistoryHandler(customersRepo, historyRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
