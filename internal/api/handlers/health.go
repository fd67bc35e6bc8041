package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MakeHealthHandler reports process and database health.
func MakeHealthHandler(container HandlerDependencies) gin.HandlerFunc {
	db := container.GetDatabase()

	return func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "ok",
		})
	}
}
