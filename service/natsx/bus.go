package natsx

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
)

// Envelope carries one already-encoded websocket frame between nodes.
// Broadcast frames go to every local connection; otherwise only Targets.
type Envelope struct {
	Origin    string   `msgpack:"o"`
	Event     string   `msgpack:"e"`
	Targets   []string `msgpack:"t,omitempty"`
	Broadcast bool     `msgpack:"b,omitempty"`
	Frame     []byte   `msgpack:"f"`
}

func EncodeEnvelope(env *Envelope) ([]byte, error) {
	return msgpack.Marshal(env)
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Bus publishes deliveries on one subject and hands peers' envelopes to a
// callback. A node never re-delivers its own envelopes.
type Bus struct {
	c       *Client
	subject string
	node    string
	mws     []Middleware
}

func NewBus(c *Client, subject, node string, mws ...Middleware) *Bus {
	return &Bus{c: c, subject: subject, node: node, mws: mws}
}

func (b *Bus) Node() string { return b.node }

func (b *Bus) Publish(_ context.Context, env *Envelope) error {
	env.Origin = b.node
	data, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	return b.c.publish(b.subject, data)
}

func (b *Bus) Subscribe(fn func(ctx context.Context, env *Envelope)) error {
	if fn == nil {
		return errors.New("nil envelope callback")
	}
	h := Chain(b.handler(fn), append([]Middleware{LogErrors(), Recover()}, b.mws...)...)
	return b.c.subscribe(b.subject, func(m *nats.Msg) {
		_ = h(context.Background(), Message{Subject: m.Subject, Data: append([]byte(nil), m.Data...)})
	})
}

func (b *Bus) handler(fn func(ctx context.Context, env *Envelope)) Handler {
	return func(ctx context.Context, msg Message) error {
		env, err := DecodeEnvelope(msg.Data)
		if err != nil {
			return err
		}
		if env.Origin == b.node {
			return nil
		}
		fn(ctx, env)
		return nil
	}
}
