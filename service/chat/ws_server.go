package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	midsec "github.com/Anuragsahu418/EDUCHAT/middleware/security"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/ids"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReceiptHandler processes inbound read receipts.
type ReceiptHandler interface {
	MarkRead(ctx context.Context, actor usermodel.Actor, ids []string) ([]string, error)
}

const receiptTimeout = 5 * time.Second

// HandleWS upgrades an authenticated request and serves the connection until
// it closes. The handle is unregistered in the same step that sees teardown.
func (s *Server) HandleWS(c *gin.Context) {
	actor, ok := midsec.ActorFrom(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Info("upgrade websocket failed", zap.Error(err))
		return
	}

	cl := NewClient(ids.GenerateString(), actor.ID, ws, s.conf.SendQueue)
	s.serve(actor, cl)
}

func (s *Server) serve(actor usermodel.Actor, cl *Client) {
	ws := cl.WS
	ws.SetReadLimit(s.conf.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		cl.writePump(s.conf.PingInterval, s.conf.WriteWait)
	}()

	s.reg.Register(actor.ID, cl)
	logger.Info("ws connected", zap.String("user", actor.ID), zap.String("conn", cl.ConnID))

	s.readLoop(actor, cl)

	s.reg.Unregister(actor.ID, cl)
	cl.Close()
	<-writerDone
	logger.Info("ws closed", zap.String("user", actor.ID), zap.String("conn", cl.ConnID))
}

// ---- 读循环：只读，不写；出错即退出 ----
func (s *Server) readLoop(actor usermodel.Actor, cl *Client) {
	for {
		mt, data, err := cl.WS.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Debug("peer closed", zap.String("conn", cl.ConnID))
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Info("read timeout", zap.String("conn", cl.ConnID))
			} else {
				logger.Debug("read failed", zap.String("conn", cl.ConnID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.dispatch(actor, cl, data)
	}
}

func (s *Server) dispatch(actor usermodel.Actor, cl *Client, data []byte) {
	f, err := chatmodel.ParseFrame(data)
	if err != nil {
		sample := data
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Info("bad frame", zap.String("conn", cl.ConnID), zap.ByteString("sample", sample), zap.Error(err))
		return
	}
	switch f.Event {
	case chatmodel.EventMessageRead:
		if s.receipts == nil {
			return
		}
		msgIDs, err := ParseReadReceipt(f)
		if err != nil {
			logger.Info("bad read receipt", zap.String("user", actor.ID), zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), receiptTimeout)
		defer cancel()
		if _, err := s.receipts.MarkRead(ctx, actor, msgIDs); err != nil {
			logger.Warn("read receipt failed", zap.String("user", actor.ID), zap.Error(err))
		}
	default:
		logger.Debug("unhandled event", zap.String("event", f.Event), zap.String("user", actor.ID))
	}
}
