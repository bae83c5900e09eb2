package natsx

import (
	"context"
	"errors"
	"testing"

	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	in := &Envelope{Origin: "n1", Event: "message-arrived", Targets: []string{"a", "b"}, Frame: []byte(`{"event":"x"}`)}
	raw, err := EncodeEnvelope(in)
	require.NoError(t, err)
	out, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	require.Equal(t, in, out)

	_, err = DecodeEnvelope([]byte{0xc1})
	require.Error(t, err)
}

func TestBusHandler_SkipsOwnOrigin(t *testing.T) {
	b := NewBus(nil, "educhat.deliver", "n1")
	var got []*Envelope
	h := b.handler(func(_ context.Context, env *Envelope) { got = append(got, env) })

	own, _ := EncodeEnvelope(&Envelope{Origin: "n1", Broadcast: true})
	peer, _ := EncodeEnvelope(&Envelope{Origin: "n2", Targets: []string{"u"}})

	require.NoError(t, h(context.Background(), Message{Data: own}))
	require.NoError(t, h(context.Background(), Message{Data: peer}))
	require.Len(t, got, 1)
	require.Equal(t, "n2", got[0].Origin)
}

func TestChain_RecoverAndOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, msg Message) error {
				order = append(order, name)
				return next(ctx, msg)
			}
		}
	}
	h := Chain(func(context.Context, Message) error { panic("boom") }, mark("outer"), Recover(), mark("inner"))
	err := h(context.Background(), Message{})
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrInternal))
	require.Equal(t, []string{"outer", "inner"}, order)
}
