package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Anuragsahu418/EDUCHAT/middleware"
	midsec "github.com/Anuragsahu418/EDUCHAT/middleware/security"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/fanout"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/message"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/service"
	"github.com/Anuragsahu418/EDUCHAT/module/group"
	"github.com/Anuragsahu418/EDUCHAT/module/user"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	jwtlib "github.com/Anuragsahu418/EDUCHAT/tools/security"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var secret = []byte("handler-test-secret")

type nopDeliverer struct{ plans int }

func (n *nopDeliverer) Execute(context.Context, fanout.Plan) error { n.plans++; return nil }

type staticPresence []string

func (s staticPresence) Snapshot(context.Context) []string { return s }

func newEngine(t *testing.T) (*gin.Engine, *nopDeliverer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := user.NewMemDirectory(
		usermodel.User{ID: "alice", FullName: "Alice", Role: usermodel.RoleStudent},
		usermodel.User{ID: "bob", FullName: "Bob", Role: usermodel.RoleStudent},
	)
	out := &nopDeliverer{}
	svc := service.New(service.Options{
		Messages:  message.NewMemStore(),
		Groups:    group.NewMemStore(),
		Users:     dir,
		Deliverer: out,
	})
	r := gin.New()
	NewHandler(svc, staticPresence{"alice"}).Register(middleware.Routes{
		R:    r,
		Auth: midsec.Middleware(midsec.DefaultOptions(secret)),
	})
	return r, out
}

func token(t *testing.T, uid, role string) string {
	t.Helper()
	tok, _, err := jwtlib.Generate(jwtlib.DefaultOptions(secret), uid, role)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, r http.Handler, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_SendHistoryDelete(t *testing.T) {
	r, out := newEngine(t)
	a, b := token(t, "alice", "student"), token(t, "bob", "student")

	w := do(t, r, http.MethodPost, "/api/messages/send/bob", a, gin.H{"text": "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sent chatmodel.MessageView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	require.Equal(t, "Alice", sent.Sender.FullName)
	require.Equal(t, 1, out.plans)

	w = do(t, r, http.MethodGet, "/api/messages/alice", b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist []chatmodel.MessageView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist, 1)
	require.Equal(t, sent.ID, hist[0].ID)

	w = do(t, r, http.MethodDelete, "/api/messages", b, gin.H{"messageIds": []string{sent.ID}, "deleteFor": "everyone"})
	require.Equal(t, http.StatusForbidden, w.Code)
	var ce errs.CodeError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ce))
	require.Equal(t, errs.NoPermissionError, ce.Code)

	w = do(t, r, http.MethodDelete, "/api/messages", a, gin.H{"messageIds": []string{sent.ID}, "deleteFor": "everyone"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/messages/bob", a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())
}

func TestHandler_Errors(t *testing.T) {
	r, _ := newEngine(t)
	a := token(t, "alice", "student")

	w := do(t, r, http.MethodGet, "/api/messages/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/messages/send/ghost", a, gin.H{"text": "hi"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/messages/send/bob", a, gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodDelete, "/api/messages/clear/bob", a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"deleted":0}`, w.Body.String())
}

func TestHandler_GroupsAndPresence(t *testing.T) {
	r, _ := newEngine(t)
	a, b := token(t, "alice", "teacher"), token(t, "bob", "student")

	w := do(t, r, http.MethodPost, "/api/groups", a, gin.H{"name": "Math"})
	require.Equal(t, http.StatusCreated, w.Code)
	var g chatmodel.Group
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))

	w = do(t, r, http.MethodPost, "/api/messages/group/"+g.ID, b, gin.H{"text": "let me in"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, "/api/groups/"+g.ID+"/members", a, gin.H{"userId": "bob"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodPost, "/api/messages/group/"+g.ID, b, gin.H{"text": "thanks"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodGet, "/api/messages/group/"+g.ID, a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist []chatmodel.MessageView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist, 1)

	w = do(t, r, http.MethodDelete, "/api/groups/"+g.ID+"/members/bob", b, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/presence", b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `["alice"]`, w.Body.String())
}
