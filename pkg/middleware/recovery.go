package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"tarely-backend/pkg/config"
	"tarely-backend/pkg/logging"
	"tarely-backend/pkg/utils"
)

// Recovery turns panics into 500 responses. Development responses carry the
// stack trace; production hides it.
func Recovery(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					stack := debug.Stack()
					logging.Get().WithField("panic", fmt.Sprint(err)).Error(string(stack))

					if cfg.IsDevelopment() {
						utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
							"INTERNAL_SERVER_ERROR",
							fmt.Sprintf("Internal server error: %v", err),
							string(stack))
					} else {
						utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
