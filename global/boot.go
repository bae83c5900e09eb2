package global

import (
	"context"
	"fmt"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/data/database/mgo/mongoutil"
	"github.com/Anuragsahu418/EDUCHAT/global/config"
	"github.com/Anuragsahu418/EDUCHAT/logger"
	"github.com/Anuragsahu418/EDUCHAT/middleware"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/message"
	"github.com/Anuragsahu418/EDUCHAT/module/group"
	"github.com/Anuragsahu418/EDUCHAT/module/user"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/service/chat"
	mgoSrv "github.com/Anuragsahu418/EDUCHAT/service/mgo"
	"github.com/Anuragsahu418/EDUCHAT/service/natsx"
	"github.com/Anuragsahu418/EDUCHAT/service/storage"
	redisx "github.com/Anuragsahu418/EDUCHAT/service/storage/redis"
	"github.com/Anuragsahu418/EDUCHAT/tools/ids"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const mongoReadyTimeout = 30 * time.Second

// Stores 持久化协作者
type Stores struct {
	Messages message.Store
	Groups   group.Store
	Users    user.Directory
}

// Closer releases whatever a Config* call opened.
type Closer func()

func nop() {}

func ConfigLogger(cfg config.LogConfig) error {
	return logger.Setup(logger.Options{
		Level:      cfg.Level,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	})
}

func ConfigIds(cfg config.NodeConfig) {
	ids.SetNodeID(cfg.Snowflake)
}

// ConfigStorage opens the configured driver. For mongo it blocks until the
// first connection is up (indexes ensured) or the ready timeout passes.
func ConfigStorage(ctx context.Context, cfg config.StorageConfig) (Stores, Closer, error) {
	if cfg.Driver == config.StorageMemory {
		logger.Warn("storage driver is memory; data is lost on restart", zap.Int("seedUsers", len(cfg.Seed)))
		dir := user.NewMemDirectory()
		for _, u := range cfg.Seed {
			dir.Put(usermodel.User{
				ID:        u.ID,
				FullName:  u.FullName,
				Email:     u.Email,
				Role:      usermodel.ParseRole(u.Role),
				CreatedAt: time.Now().UTC(),
			})
		}
		return Stores{
			Messages: message.NewMemStore(),
			Groups:   group.NewMemStore(),
			Users:    dir,
		}, nop, nil
	}

	mc := &mongoutil.Config{
		Uri:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		MaxRetry:    cfg.Mongo.MaxRetry,
	}
	runCtx, cancel := context.WithCancel(ctx)
	mgr := mgoSrv.NewManager(mc, ensureIndexes)
	mgr.Start(runCtx)

	waitCtx, waitCancel := context.WithTimeout(ctx, mongoReadyTimeout)
	defer waitCancel()
	db, err := mgr.WaitReady(waitCtx)
	if err != nil {
		cancel()
		return Stores{}, nop, fmt.Errorf("mongo not ready: %w (last error: %v)", err, mgr.Err())
	}
	return Stores{
		Messages: message.NewMongoStore(db),
		Groups:   group.NewMongoStore(db),
		Users:    user.NewMongoDirectory(db),
	}, Closer(cancel), nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := message.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	return group.EnsureIndexes(ctx, db)
}

// ConfigRedis returns the shared presence store, or nil when redis is off.
func ConfigRedis(ctx context.Context, cfg config.AppConfig) (chat.PresenceStore, Closer, error) {
	if !cfg.Redis.Enabled {
		return nil, nop, nil
	}
	rdb, err := redisx.Open(ctx, redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nop, err
	}
	store := storage.NewOnlineStore(rdb, storage.OnlineConfig{NodeID: cfg.Node.ID, TTL: cfg.Redis.PresenceTTL})
	logger.Info("redis presence enabled", zap.String("addr", cfg.Redis.Addr))
	return store, func() { _ = rdb.Close() }, nil
}

// ConfigNATS returns the inter-node bus, or nil when nats is off.
func ConfigNATS(cfg config.AppConfig) (*natsx.Bus, Closer, error) {
	if !cfg.NATS.Enabled {
		return nil, nop, nil
	}
	nc, err := natsx.Connect(natsx.Config{Servers: cfg.NATS.Servers, Name: "educhat-" + cfg.Node.ID})
	if err != nil {
		return nil, nop, err
	}
	logger.Info("nats bus enabled", zap.Strings("servers", cfg.NATS.Servers), zap.String("subject", cfg.NATS.Subject))
	return natsx.NewBus(nc, cfg.NATS.Subject, cfg.Node.ID), func() { _ = nc.Close() }, nil
}

// ConfigMiddleware 全局中间件：恢复、访问日志、跨域
func ConfigMiddleware(cfg config.HTTPConfig) *middleware.MiddlewareManager {
	m := middleware.NewManager()
	m.Add(middleware.Recover(), middleware.AccessLog(), middleware.Origin(cfg.AllowedOrigins))
	return m
}
