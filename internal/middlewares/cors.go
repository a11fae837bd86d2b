package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-http-utils/headers"
)

// CORS allows a single browser origin with credentials. Requests from other origins are rejected.
func CORS(origin string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{headers.Origin, headers.ContentType, headers.Accept, headers.Authorization, RequestIDHeader},
		ExposeHeaders:    []string{headers.ContentLength, RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
