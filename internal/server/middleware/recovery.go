package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/PNdlovu/writecarenotes-sub002/internal/server/handlers"
	"github.com/PNdlovu/writecarenotes-sub002/pkg/api"
)

// RecoveryMiddleware создает middleware для восстановления после паники
// Перехватывает panic, логирует стек вызовов и возвращает 500 в формате api.ErrorResponse
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"stack", string(debug.Stack()),
				)

				// Детали паники клиенту не раскрываем
				handlers.WriteError(logger, w, http.StatusInternalServerError, api.ErrCodeInternal, "")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
