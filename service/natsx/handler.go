package natsx

import (
	"context"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"go.uber.org/zap"
)

// Message 统一消息对象
type Message struct {
	Subject string
	Data    []byte
}

// Handler 业务处理函数
type Handler func(ctx context.Context, msg Message) error

// Middleware 中间件（日志、恢复等）
type Middleware func(Handler) Handler

// Chain 组合中间件
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover 把处理函数的 panic 转成 error，订阅不会因单条消息退出
func Recover() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errs.ErrPanic(r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// LogErrors 以 warn 级别记录处理失败
func LogErrors() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			err := next(ctx, msg)
			if err != nil {
				logger.Warn("nats handler failed", zap.String("subject", msg.Subject), zap.Error(err))
			}
			return err
		}
	}
}
