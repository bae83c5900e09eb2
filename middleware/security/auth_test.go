package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	jwtlib "github.com/Anuragsahu418/EDUCHAT/tools/security"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newEngine(opts *Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Middleware(opts), func(c *gin.Context) {
		a, ok := ActorFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": a.ID, "role": a.Role})
	})
	return r
}

func TestMiddleware_TokenSources(t *testing.T) {
	opts := DefaultOptions([]byte("k"))
	tok, _, err := jwtlib.Generate(opts.JWT, "u1", string(usermodel.RoleAdmin))
	require.NoError(t, err)
	r := newEngine(opts)

	cases := map[string]func(*http.Request){
		"bearer": func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+tok) },
		"cookie": func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "jwt", Value: tok}) },
		"query":  func(req *http.Request) { req.URL.RawQuery = "token=" + tok },
	}
	for name, set := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			set(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)
			require.JSONEq(t, `{"id":"u1","role":"admin"}`, w.Body.String())
		})
	}
}

func TestMiddleware_Rejects(t *testing.T) {
	r := newEngine(DefaultOptions([]byte("k")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "no token provided")

	other, _, _ := jwtlib.Generate(jwtlib.DefaultOptions([]byte("other")), "u1", "student")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_UnknownRoleIsStudent(t *testing.T) {
	opts := DefaultOptions([]byte("k"))
	tok, _, _ := jwtlib.Generate(opts.JWT, "u2", "superuser")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	newEngine(opts).ServeHTTP(w, req)
	require.JSONEq(t, `{"id":"u2","role":"student"}`, w.Body.String())
}
