package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID is the Gin context key under which the request id is
// stored; the error envelope's metadata reads it back from there.
const ContextKeyRequestID = "request_id"

// RequestIDMiddleware tags every request with an id and echoes it in the
// response. An incoming X-Request-ID is honored so the id can follow a
// request across a proxy.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
