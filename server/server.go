package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"InterviewConv/logger"

	"github.com/gorilla/mux"
)

// NewRouter 使用 gorilla/mux 创建路由
func NewRouter(h *RecordingHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("http request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Duration("elapsed", time.Since(start)))
		})
	})
	h.Routes(router)
	return router
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logger.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
