package middleware

import (
	"net/http"
	"runtime/debug"

	"neodukaan-backend/internal/logger"
	"neodukaan-backend/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	log := logger.For("recovery")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(map[string]interface{}{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  err,
					"stack":  string(debug.Stack()),
				}).Error("PANIC RECOVERED")

				utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
