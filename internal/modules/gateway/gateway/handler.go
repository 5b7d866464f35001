package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyaverse/core/internal/pkg/response"
)

// RegisterRoutes mounts socket.io plus the stats and presence endpoints.
func RegisterRoutes(rg *gin.RouterGroup, hub *Hub, authMW gin.HandlerFunc) {
	handler := gin.WrapH(hub.Handler())
	rg.Any("/socket.io", handler)
	rg.Any("/socket.io/*any", handler)

	rg.GET("/gateway/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"public": hub.ClientCount(RoomPublic),
			"admin":  hub.ClientCount(RoomAdmin),
			"total":  hub.ClientCount(""),
		})
	})

	rg.GET("/gateway/presence", authMW, func(c *gin.Context) {
		response.OK(c, hub.ReadingPresenceSnapshot())
	})
}
