package user

import (
	"net/http"

	"github.com/Anuragsahu418/EDUCHAT/middleware"
	midsec "github.com/Anuragsahu418/EDUCHAT/middleware/security"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"github.com/gin-gonic/gin"
)

// HandlerMe returns the authenticated user's profile.
func HandlerMe(dir Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := midsec.ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthenticated)
			return
		}
		u, err := dir.FindByID(c.Request.Context(), actor.ID)
		if err != nil {
			c.AbortWithStatusJSON(errs.HTTPStatus(err), errs.AsCode(err))
			return
		}
		if u.IsBanned {
			c.AbortWithStatusJSON(http.StatusForbidden, errs.ErrUnauthorized.WithDetail("account banned"))
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

func Register(rt middleware.Routes, dir Directory) {
	rt.GET("/api/users/me", HandlerMe(dir), middleware.RouteOpt{IsAuth: true})
}
