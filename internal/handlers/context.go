package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/middleware"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// requireActor returns the authenticated caller, answering 401 when the
// route was mounted without AuthMiddleware.
func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
	}
	return actor, ok
}
