package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request. Health checks are not logged.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if path == "/health" {
			return
		}
		log.Printf("[API] %s %s %d %s", c.Request.Method, path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}
