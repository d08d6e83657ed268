package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// GinMiddleware records HTTP request metrics.
// Routes are labelled by their registered pattern to keep cardinality low.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		IncHTTPRequests(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}
