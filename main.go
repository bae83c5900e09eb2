package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Anuragsahu418/EDUCHAT/global"
	"github.com/Anuragsahu418/EDUCHAT/global/config"
	"github.com/Anuragsahu418/EDUCHAT/logger"
	mid "github.com/Anuragsahu418/EDUCHAT/middleware"
	midsec "github.com/Anuragsahu418/EDUCHAT/middleware/security"
	chatapi "github.com/Anuragsahu418/EDUCHAT/module/chat"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/service"
	"github.com/Anuragsahu418/EDUCHAT/module/user"
	"github.com/Anuragsahu418/EDUCHAT/service/chat"
	"github.com/Anuragsahu418/EDUCHAT/tools/safe"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		logger.Error("educhat exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := global.ConfigLogger(cfg.Log); err != nil {
		return err
	}
	defer logger.Sync()
	global.ConfigIds(cfg.Node)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1) 持久化 / 在线状态 / 节点总线
	stores, closeStores, err := global.ConfigStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStores()

	presenceStore, closeRedis, err := global.ConfigRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRedis()

	bus, closeNATS, err := global.ConfigNATS(cfg)
	if err != nil {
		return err
	}
	defer closeNATS()

	// 2) 实时层 + 业务服务
	opts := chat.Options{
		Conf: chat.Conf{
			ReadLimit:    cfg.WS.ReadLimit,
			PingInterval: cfg.WS.PingInterval,
			PongWait:     cfg.WS.PongWait,
			WriteWait:    cfg.WS.WriteWait,
			SendQueue:    cfg.WS.SendQueue,
			CheckOrigin:  mid.CheckOrigin(cfg.HTTP.AllowedOrigins),
		},
		Store: presenceStore,
	}
	if bus != nil {
		opts.Bus = bus
	}
	ws := chat.NewServer(opts)
	if bus != nil {
		if err := ws.Attach(bus); err != nil {
			return err
		}
	}
	safe.Go("presence-keepalive", func() { ws.Presence().Keepalive(ctx, cfg.Redis.PresenceTTL/2) })

	svc := service.New(service.Options{
		Messages:  stores.Messages,
		Groups:    stores.Groups,
		Users:     stores.Users,
		Deliverer: ws.Router(),
	})
	ws.SetReceipts(svc)

	// 3) HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	global.ConfigMiddleware(cfg.HTTP).Mount(r)

	auth := midsec.Middleware(midsec.DefaultOptions(cfg.JWTSecret()))
	routes := mid.Routes{R: r, Auth: auth}
	chatapi.NewHandler(svc, ws.Presence()).Register(routes)
	user.Register(routes, stores.Users)
	r.GET("/ws", auth, ws.HandleWS)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr), zap.String("node", cfg.Node.ID), zap.String("storage", cfg.Storage.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()
	ws.Shutdown()
	return srv.Shutdown(shutdownCtx)
}
