package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/arpitshukla/eventmaster/api"
	"github.com/arpitshukla/eventmaster/config"
	"github.com/arpitshukla/eventmaster/internal/service/auth"
	"github.com/arpitshukla/eventmaster/internal/service/events"
	"github.com/arpitshukla/eventmaster/internal/service/ledger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger,
	authSvc auth.AuthUseCase, eventSvc events.EventUseCase, ledgerSvc ledger.LedgerUseCase) error {

	router := NewRouter(logger, authSvc, eventSvc, ledgerSvc)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(logger *zap.Logger, authSvc auth.AuthUseCase, eventSvc events.EventUseCase, ledgerSvc ledger.LedgerUseCase) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	root := router.Group("/api")
	api.NewUserHandler(authSvc).Register(root.Group("/users"))
	api.NewEventHandler(eventSvc, authSvc).Register(root.Group("/events"))
	api.NewBookingHandler(ledgerSvc).Register(root.Group("/bookings", api.AuthRequired(authSvc)))

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
