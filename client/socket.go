package client

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Socket is one websocket session. Frames are dispatched to listeners on the
// read goroutine, one at a time and in arrival order.
type Socket struct {
	*Emitter

	conn *websocket.Conn
	wmu  sync.Mutex

	omu    sync.RWMutex
	online []string

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects with the bearer token and starts reading.
func Dial(ctx context.Context, wsURL, token string) (*Socket, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, h)
	if err != nil {
		return nil, err
	}
	s := &Socket{Emitter: NewEmitter(), conn: conn, done: make(chan struct{})}
	conn.SetPingHandler(func(data string) error {
		s.wmu.Lock()
		defer s.wmu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})
	s.On(chatmodel.EventPresenceChanged, s.trackPresence)
	go s.readLoop()
	return s, nil
}

func (s *Socket) trackPresence(data json.RawMessage) {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		logger.Debug("bad presence payload", zap.Error(err))
		return
	}
	slices.Sort(ids)
	s.omu.Lock()
	s.online = ids
	s.omu.Unlock()
}

// Online is the last presence set pushed by the server.
func (s *Socket) Online() []string {
	s.omu.RLock()
	defer s.omu.RUnlock()
	return slices.Clone(s.online)
}

func (s *Socket) IsOnline(userID string) bool {
	s.omu.RLock()
	defer s.omu.RUnlock()
	_, ok := slices.BinarySearch(s.online, userID)
	return ok
}

// MarkRead sends a message-read receipt for ids.
func (s *Socket) MarkRead(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	frame, err := chatmodel.EncodeFrame(chatmodel.EventMessageRead, chatmodel.ReadReceipt{MessageIDs: ids})
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Socket) Done() <-chan struct{} { return s.done }

func (s *Socket) Close() error {
	s.wmu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	s.wmu.Unlock()
	err := s.conn.Close()
	s.closeOnce.Do(func() { close(s.done) })
	return err
}

func (s *Socket) readLoop() {
	defer s.closeOnce.Do(func() { close(s.done) })
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			logger.Debug("socket read stopped", zap.Error(err))
			return
		}
		if err := s.EmitFrame(data); err != nil {
			logger.Debug("bad frame from server", zap.Error(err))
		}
	}
}
