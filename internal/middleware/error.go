package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/itsmesamster/reduce-app/pkg/logger"
	"github.com/itsmesamster/reduce-app/pkg/response"
)

// ErrorHandler recovers panics into a clean 500 envelope.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				appLogger := logger.GetLogger()
				appLogger.Errorf("Panic recovered: %v", err)
				response.ServerError(c, "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
