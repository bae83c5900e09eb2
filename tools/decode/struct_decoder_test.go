package decode

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type readPayload struct {
	MessageIDs []string `json:"messageIds"`
	Limit      int      `json:"limit"`
}

func jsonAny(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestDecode_NumbersIntoStrings(t *testing.T) {
	out, err := Decode[readPayload](jsonAny(t, `{"messageIds":["a",812345678901234567],"limit":"5"}`))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "812345678901234567"}, out.MessageIDs)
	require.Equal(t, 5, out.Limit)
}

func TestDecode_Nil(t *testing.T) {
	_, err := Decode[readPayload](nil)
	require.Error(t, err)
}

func TestStringSlice(t *testing.T) {
	got, err := StringSlice(jsonAny(t, `["x", 12]`))
	require.NoError(t, err)
	require.Equal(t, []string{"x", "12"}, got)

	got, err = StringSlice("solo")
	require.NoError(t, err)
	require.Equal(t, []string{"solo"}, got)

	_, err = StringSlice(jsonAny(t, `[{"a":1}]`))
	require.Error(t, err)
}
