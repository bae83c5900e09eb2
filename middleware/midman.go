package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MiddlewareManager 可以自由注册/注销中间件
type MiddlewareManager struct {
	mu   sync.RWMutex
	mids []gin.HandlerFunc
}

// NewManager 创建新的实例
func NewManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

// Add 注册一个中间件
func (m *MiddlewareManager) Add(h ...gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h...)
}

// Clear 清空全部中间件
func (m *MiddlewareManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = nil
}

// Mount 把当前快照挂到路由上（c.Next 类中间件必须直接进 gin 链）
func (m *MiddlewareManager) Mount(r gin.IRoutes) {
	m.mu.RLock()
	handlers := append([]gin.HandlerFunc{}, m.mids...) // 拷贝一份快照
	m.mu.RUnlock()
	if len(handlers) > 0 {
		r.Use(handlers...)
	}
}

// AccessLog logs one line per request.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// Recover answers a panicking handler with a 500 CodeError body.
func Recover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := errs.ErrPanic(r)
				logger.Error("handler panic", zap.String("path", c.Request.URL.Path), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, errs.ErrInternal)
			}
		}()
		c.Next()
	}
}
