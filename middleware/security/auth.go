package security

import (
	"net/http"
	"strings"

	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	jwtlib "github.com/Anuragsahu418/EDUCHAT/tools/security"
	"github.com/gin-gonic/gin"
)

// CtxActorKey 存放已认证的 Actor
const CtxActorKey = "educhat.actor"

type Options struct {
	JWT jwtlib.Options

	CookieName string // 默认 "jwt"
	QueryToken string // 默认 "token"；浏览器 websocket 无法带 header
}

func DefaultOptions(secret []byte) *Options {
	return &Options{
		JWT:        jwtlib.DefaultOptions(secret),
		CookieName: "jwt",
		QueryToken: "token",
	}
}

// Middleware verifies the bearer token and stores the Actor in the context.
// Token lookup order: Authorization header, cookie, query parameter.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c, opts)
		if token == "" {
			abort(c, errs.ErrUnauthenticated.WithDetail("no token provided"))
			return
		}
		claims, err := jwtlib.Verify(opts.JWT, token)
		if err != nil {
			abort(c, errs.ErrUnauthenticated.WithDetail("invalid token"))
			return
		}
		c.Set(CtxActorKey, usermodel.Actor{ID: claims.Subject, Role: usermodel.ParseRole(claims.Role)})
		c.Next()
	}
}

func tokenFrom(c *gin.Context, opts *Options) string {
	// 兼容 Authorization: Bearer xxx
	if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
	}
	if opts.CookieName != "" {
		if v, err := c.Cookie(opts.CookieName); err == nil && v != "" {
			return v
		}
	}
	if opts.QueryToken != "" {
		return strings.TrimSpace(c.Query(opts.QueryToken))
	}
	return ""
}

func abort(c *gin.Context, ce errs.CodeError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ce)
}

// ActorFrom reads the authenticated actor set by Middleware.
func ActorFrom(c *gin.Context) (usermodel.Actor, bool) {
	v, ok := c.Get(CtxActorKey)
	if !ok {
		return usermodel.Actor{}, false
	}
	a, ok := v.(usermodel.Actor)
	return a, ok
}
