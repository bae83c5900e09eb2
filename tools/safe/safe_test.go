package safe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type dep struct{}

func TestMustNotNil(t *testing.T) {
	var p *dep
	var i any = p
	require.Panics(t, func() { MustNotNil(nil, "x") })
	require.Panics(t, func() { MustNotNil(i, "typed nil") })
	require.NotPanics(t, func() { MustNotNil(&dep{}, "ok") })
	require.NotPanics(t, func() { MustNotNil(dep{}, "value") })
}

func TestGo_RecoversPanic(t *testing.T) {
	done := make(chan struct{})
	Go("boom", func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}
