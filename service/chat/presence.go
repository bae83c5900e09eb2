package chat

import (
	"context"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/service/natsx"
	"go.uber.org/zap"
)

// PresenceStore is the cluster-wide presence mirror (Redis).
type PresenceStore interface {
	Add(ctx context.Context, userID, connID string) error
	Remove(ctx context.Context, userID, connID string) error
	Online(ctx context.Context) ([]string, error)
}

const presenceTimeout = 2 * time.Second

// Presence broadcasts the full online set to every live connection after
// each registry mutation. No diffs, no debouncing.
type Presence struct {
	reg    *Registry
	router *Router
	store  PresenceStore // optional
	bus    Bus           // optional
}

// NewPresence wires itself as a registry observer.
func NewPresence(reg *Registry, router *Router, store PresenceStore, bus Bus) *Presence {
	p := &Presence{reg: reg, router: router, store: store, bus: bus}
	reg.Observe(p.onMutation)
	return p
}

func (p *Presence) onMutation(m Mutation) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	if p.store != nil {
		var err error
		if m.Added {
			err = p.store.Add(ctx, m.UserID, m.ConnID)
		} else {
			err = p.store.Remove(ctx, m.UserID, m.ConnID)
		}
		if err != nil {
			logger.Warn("presence store update failed", zap.String("user", m.UserID), zap.Bool("added", m.Added), zap.Error(err))
		}
	}
	p.Publish(ctx)
}

// Snapshot is the current online set: shared store when configured, local
// registry otherwise (or when the store is unreachable).
func (p *Presence) Snapshot(ctx context.Context) []string {
	online, _ := p.snapshot(ctx)
	return online
}

// snapshot also reports whether the set is cluster-wide.
func (p *Presence) snapshot(ctx context.Context) ([]string, bool) {
	if p.store != nil {
		online, err := p.store.Online(ctx)
		if err == nil {
			return online, true
		}
		logger.Warn("presence store read failed, using local registry", zap.Error(err))
	}
	return p.reg.Online(), false
}

// Publish broadcasts presence-changed with the full set. Only a cluster-wide
// set goes on the bus; a node-local one would overwrite peers' views.
func (p *Presence) Publish(ctx context.Context) {
	online, shared := p.snapshot(ctx)
	frame, err := chatmodel.EncodeFrame(chatmodel.EventPresenceChanged, online)
	if err != nil {
		logger.Error("encode presence", zap.Error(err))
		return
	}
	p.router.broadcastLocal(frame)
	if p.bus == nil || !shared {
		return
	}
	env := &natsx.Envelope{Event: chatmodel.EventPresenceChanged, Broadcast: true, Frame: frame}
	if err := p.bus.Publish(ctx, env); err != nil {
		logger.Warn("bus publish presence failed", zap.Error(err))
	}
}

// Keepalive renews this node's connections in the shared store until ctx ends,
// so entries of a crashed node expire on their own.
func (p *Presence) Keepalive(ctx context.Context, every time.Duration) {
	if p.store == nil || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.renew(ctx)
		}
	}
}

func (p *Presence) renew(ctx context.Context) {
	p.reg.mu.RLock()
	pairs := make([][2]string, 0, len(p.reg.byUser))
	for uid, m := range p.reg.byUser {
		for cid := range m {
			pairs = append(pairs, [2]string{uid, cid})
		}
	}
	p.reg.mu.RUnlock()
	for _, pr := range pairs {
		if err := p.store.Add(ctx, pr[0], pr[1]); err != nil {
			logger.Warn("presence renew failed", zap.String("user", pr[0]), zap.Error(err))
			return
		}
	}
}
