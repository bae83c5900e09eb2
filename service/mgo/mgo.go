package mgo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/data/database/mgo/mongoutil"
	"github.com/Anuragsahu418/EDUCHAT/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	healthEvery = 10 * time.Second // 健康检查周期
	failThresh  = 3                // 连续失败阈值
)

// OnConnect runs after every (re)connect, e.g. to ensure indexes.
type OnConnect func(ctx context.Context, db *mongo.Database) error

type Manager struct {
	cfg       *mongoutil.Config
	onConnect OnConnect

	mu        sync.RWMutex
	client    *mongoutil.Client
	readyCh   chan struct{} // 首次就绪通知；只会被 close 一次
	readyOnce sync.Once

	lastErr atomic.Value // error
}

func NewManager(cfg *mongoutil.Config, hook OnConnect) *Manager {
	return &Manager{cfg: cfg, onConnect: hook, readyCh: make(chan struct{})}
}

// Start 一直运行到 ctx.Done()；首次连上时 close readyCh。
// 之后的断线重连交给驱动自身，这里只做健康检查，数据库句柄保持不变。
func (m *Manager) Start(ctx context.Context) {
	go func() {
		if !m.connect(ctx) {
			return
		}
		m.watch(ctx)
	}()
}

// connect retries with backoff + jitter; false means ctx ended first.
func (m *Manager) connect(ctx context.Context) bool {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return false
		}
		cli, err := mongoutil.NewMongoDB(ctx, m.cfg)
		if err == nil && m.onConnect != nil {
			if err = m.onConnect(ctx, cli.GetDB()); err != nil {
				_ = cli.Disconnect(context.Background())
			}
		}
		if err == nil {
			m.mu.Lock()
			m.client = cli
			m.mu.Unlock()
			m.readyOnce.Do(func() { close(m.readyCh) })
			logger.Info("mongo connected", zap.String("db", m.cfg.Database))
			return true
		}

		m.lastErr.Store(err)
		logger.Warn("mongo connect failed", zap.Int("attempt", attempt), zap.Error(err))

		backoff := baseBackoff << attempt
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1)) // 0~20%
		timer := time.NewTimer(backoff - jitter/2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if attempt < 6 {
			attempt++
		}
	}
}

// watch pings periodically until ctx ends, then disconnects.
func (m *Manager) watch(ctx context.Context) {
	fail := 0
	ticker := time.NewTicker(healthEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.drop()
			return
		case <-ticker.C:
			db, ok := m.TryGetDB()
			if !ok {
				return
			}
			pingCtx, cancel := context.WithTimeout(ctx, healthEvery/2)
			err := db.Client().Ping(pingCtx, nil)
			cancel()
			if err != nil {
				fail++
				m.lastErr.Store(err)
				if fail == failThresh {
					logger.Warn("mongo unhealthy", zap.Int("fails", fail), zap.Error(err))
				}
				continue
			}
			if fail >= failThresh {
				logger.Info("mongo healthy again")
			}
			fail = 0
		}
	}
}

func (m *Manager) drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		_ = m.client.Disconnect(context.Background())
		m.client = nil
	}
}

// Ready 首次连接成功时会 close；可 select 等待
func (m *Manager) Ready() <-chan struct{} {
	return m.readyCh
}

// Err returns the most recent connect/ping error.
func (m *Manager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (m *Manager) TryGetDB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

func (m *Manager) WaitReady(ctx context.Context) (*mongo.Database, error) {
	if db, ok := m.TryGetDB(); ok {
		return db, nil
	}
	select {
	case <-m.readyCh:
		if db, ok := m.TryGetDB(); ok {
			return db, nil
		}
		return nil, fmt.Errorf("mongo dropped right after ready: %w", m.Err())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
