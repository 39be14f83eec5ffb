package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Identity describes the running worker on the diagnostics surface.
type Identity struct {
	InstanceID string
	ParentPID  int
	Started    time.Time
}

// NewRouter serves /health and /metrics.
func NewRouter(id Identity) *gin.Engine {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestObserver(log.Logger))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"instance":   id.InstanceID,
			"parent_pid": id.ParentPID,
			"uptime":     time.Since(id.Started).String(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Serve runs the diagnostics listener on addr until ctx is done.
func Serve(ctx context.Context, addr string, id Identity) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(id),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", addr).Str("instance", id.InstanceID).Msg("observability.Serve listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
