package client

import (
	"context"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/middleware"
	midsec "github.com/Anuragsahu418/EDUCHAT/middleware/security"
	chatmod "github.com/Anuragsahu418/EDUCHAT/module/chat"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/message"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/service"
	"github.com/Anuragsahu418/EDUCHAT/module/group"
	"github.com/Anuragsahu418/EDUCHAT/module/user"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	wschat "github.com/Anuragsahu418/EDUCHAT/service/chat"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	jwtlib "github.com/Anuragsahu418/EDUCHAT/tools/security"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const wait, tick = 3 * time.Second, 10 * time.Millisecond

type peer struct {
	api  *API
	sock *Socket
	view *ConversationView
}

// startStack runs the whole backend in memory behind an httptest server.
func startStack(t *testing.T) (base string, secret []byte) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	secret = []byte("e2e-secret")

	srv := wschat.NewServer(wschat.Options{Conf: wschat.Conf{PingInterval: time.Second}})
	svc := service.New(service.Options{
		Messages: message.NewMemStore(),
		Groups:   group.NewMemStore(),
		Users: user.NewMemDirectory(
			usermodel.User{ID: "alice", FullName: "Alice"},
			usermodel.User{ID: "bob", FullName: "Bob"},
		),
		Deliverer: srv.Router(),
	})
	srv.SetReceipts(svc)

	auth := midsec.Middleware(midsec.DefaultOptions(secret))
	r := gin.New()
	chatmod.NewHandler(svc, srv.Presence()).Register(middleware.Routes{R: r, Auth: auth})
	r.GET("/ws", auth, srv.HandleWS)

	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return ts.URL, secret
}

func connect(t *testing.T, base string, secret []byte, uid string) *peer {
	t.Helper()
	tok, _, err := jwtlib.Generate(jwtlib.DefaultOptions(secret), uid, "student")
	require.NoError(t, err)
	sock, err := Dial(context.Background(), "ws"+strings.TrimPrefix(base, "http")+"/ws", tok)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sock.Close() })
	api := NewAPI(base, tok, uid)
	return &peer{api: api, sock: sock, view: NewConversationView(uid, sock, api)}
}

func TestEndToEnd(t *testing.T) {
	base, secret := startStack(t)
	ctx := context.Background()
	alice := connect(t, base, secret, "alice")
	bob := connect(t, base, secret, "bob")

	require.Eventually(t, func() bool {
		return slices.Equal(alice.sock.Online(), []string{"alice", "bob"})
	}, wait, tick)
	require.Eventually(t, func() bool { return bob.sock.IsOnline("alice") }, wait, tick)

	dm := chatmodel.Direct("alice", "bob")
	require.NoError(t, alice.view.Open(ctx, dm))
	require.NoError(t, bob.view.Open(ctx, dm))

	// send -> arrives at bob
	sent, err := alice.view.Send(ctx, "hi", "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(bob.view.Messages()) == 1 }, wait, tick)
	require.Equal(t, "Alice", bob.view.Messages()[0].Sender.FullName)

	// read receipt over the socket -> status update at alice
	require.NoError(t, bob.sock.MarkRead([]string{sent.ID}))
	require.Eventually(t, func() bool {
		ms := alice.view.Messages()
		return len(ms) == 1 && ms[0].Status == chatmodel.StatusRead
	}, wait, tick)

	// delete for everyone -> gone on both sides
	alice.view.ToggleSelect(sent.ID)
	require.NoError(t, alice.view.DeleteSelected(ctx, chatmodel.DeleteForEveryone))
	require.Empty(t, alice.view.Messages())
	require.Eventually(t, func() bool { return len(bob.view.Messages()) == 0 }, wait, tick)

	// bob clears -> alice's view wiped by chat-cleared
	_, err = alice.view.Send(ctx, "again", "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(bob.view.Messages()) == 1 }, wait, tick)
	require.NoError(t, bob.view.Clear(ctx))
	require.Eventually(t, func() bool { return len(alice.view.Messages()) == 0 }, wait, tick)

	// REST errors come back as code errors
	_, err = alice.api.Send(ctx, chatmodel.Direct("alice", "ghost"), "x", "")
	require.ErrorIs(t, err, errs.ErrNotFound)

	// disconnect -> presence shrinks
	require.NoError(t, bob.sock.Close())
	require.Eventually(t, func() bool {
		return slices.Equal(alice.sock.Online(), []string{"alice"})
	}, wait, tick)
	online, err := alice.api.Online(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, online)
}
