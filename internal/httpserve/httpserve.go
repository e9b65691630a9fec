package httpserve

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Run starts srv in the background and shuts it down gracefully once ctx is
// cancelled. Both the metrics and dash endpoints ride on this.
func Run(ctx context.Context, srv *http.Server, name string, log *zap.Logger) {
	go func() {
		log.Info(name+" server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(name+" server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(name+" server shutdown error", zap.Error(err))
		} else {
			log.Info(name + " server stopped")
		}
	}()
}
