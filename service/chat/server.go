package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	"github.com/Anuragsahu418/EDUCHAT/service/natsx"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Conf struct {
	ReadLimit    int64
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	SendQueue    int
	CheckOrigin  func(r *http.Request) bool
}

func (c *Conf) norm() {
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.PongWait <= c.PingInterval {
		c.PongWait = c.PingInterval * 5 / 2
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
}

// Subscriber receives peer nodes' envelopes.
type Subscriber interface {
	Subscribe(fn func(ctx context.Context, env *natsx.Envelope)) error
}

// Server owns the realtime side of one node: registry, presence, router and
// the websocket endpoint.
type Server struct {
	conf     Conf
	reg      *Registry
	router   *Router
	presence *Presence
	receipts ReceiptHandler
	upgrader websocket.Upgrader
}

// Options: Store and Bus are optional (single node without them).
type Options struct {
	Conf  Conf
	Store PresenceStore
	Bus   Bus
}

func NewServer(opts Options) *Server {
	opts.Conf.norm()
	reg := NewRegistry()
	router := NewRouter(reg, opts.Bus)
	s := &Server{
		conf:     opts.Conf,
		reg:      reg,
		router:   router,
		presence: NewPresence(reg, router, opts.Store, opts.Bus),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.Conf.CheckOrigin,
		},
	}
	return s
}

// SetReceipts breaks the construction cycle: the message service needs the
// router, the server needs the service for inbound receipts.
func (s *Server) SetReceipts(h ReceiptHandler) { s.receipts = h }

func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) Router() *Router     { return s.router }
func (s *Server) Presence() *Presence { return s.presence }

// Attach subscribes to peer deliveries.
func (s *Server) Attach(sub Subscriber) error {
	return sub.Subscribe(s.router.HandleRemote)
}

// Shutdown closes every local connection; their serve loops unregister them.
func (s *Server) Shutdown() {
	all := s.reg.All()
	for _, h := range all {
		if c, ok := h.(*Client); ok {
			c.Close()
		}
	}
	logger.Info("ws server shutdown", zap.Int("conns", len(all)))
}
