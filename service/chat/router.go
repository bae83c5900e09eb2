package chat

import (
	"context"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/fanout"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/service/natsx"
	"go.uber.org/zap"
)

// Bus relays encoded frames to peer nodes.
type Bus interface {
	Publish(ctx context.Context, env *natsx.Envelope) error
}

// Router delivers named events to users' live connections, here and, when a
// bus is configured, on peer nodes. Delivery is fire-and-forget.
type Router struct {
	reg *Registry
	bus Bus
}

func NewRouter(reg *Registry, bus Bus) *Router {
	return &Router{reg: reg, bus: bus}
}

// Deliver pushes event to every handle of every target. Offline targets
// are skipped. The only error is a payload that cannot be encoded.
func (r *Router) Deliver(ctx context.Context, targets []string, event string, payload any) error {
	if len(targets) == 0 {
		return nil
	}
	frame, err := chatmodel.EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	r.deliverLocal(targets, frame)
	if r.bus != nil {
		env := &natsx.Envelope{Event: event, Targets: targets, Frame: frame}
		if err := r.bus.Publish(ctx, env); err != nil {
			logger.Warn("bus publish failed", zap.String("event", event), zap.Error(err))
		}
	}
	return nil
}

// Execute runs every delivery of a plan in order.
func (r *Router) Execute(ctx context.Context, plan fanout.Plan) error {
	for _, d := range plan {
		if err := r.Deliver(ctx, d.Targets, d.Event, d.Payload); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) deliverLocal(targets []string, frame []byte) int {
	n := 0
	seen := make(map[string]struct{}, len(targets))
	for _, uid := range targets {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		handles := r.reg.Resolve(uid)
		if len(handles) == 0 {
			logger.Debug("target offline, skip", zap.String("user", uid))
			continue
		}
		for _, h := range handles {
			if h.Send(frame) {
				n++
			}
		}
	}
	return n
}

// broadcastLocal pushes frame to every handle on this node.
func (r *Router) broadcastLocal(frame []byte) int {
	n := 0
	for _, h := range r.reg.All() {
		if h.Send(frame) {
			n++
		}
	}
	return n
}

// HandleRemote applies a peer node's envelope to local handles.
func (r *Router) HandleRemote(_ context.Context, env *natsx.Envelope) {
	if env.Broadcast {
		r.broadcastLocal(env.Frame)
		return
	}
	r.deliverLocal(env.Targets, env.Frame)
}
