package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Anuragsahu418/EDUCHAT/middleware"
	midsec "github.com/Anuragsahu418/EDUCHAT/middleware/security"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	jwtlib "github.com/Anuragsahu418/EDUCHAT/tools/security"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := []byte("me-secret")
	dir := NewMemDirectory(
		usermodel.User{ID: "u1", FullName: "Ada", Email: "ada@school.test", Role: usermodel.RoleTeacher},
		usermodel.User{ID: "u2", FullName: "Banned", IsBanned: true},
	)
	r := gin.New()
	Register(middleware.Routes{R: r, Auth: midsec.Middleware(midsec.DefaultOptions(secret))}, dir)

	get := func(uid string) *httptest.ResponseRecorder {
		tok, _, err := jwtlib.Generate(jwtlib.DefaultOptions(secret), uid, "teacher")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: tok})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("u1")
	require.Equal(t, http.StatusOK, w.Code)
	var u usermodel.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	require.Equal(t, "Ada", u.FullName)

	require.Equal(t, http.StatusForbidden, get("u2").Code)
	require.Equal(t, http.StatusNotFound, get("nobody").Code)
}
