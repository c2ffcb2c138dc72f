package protocol

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/BetaCatPro/ws-pingpong/internal/errors"
	"github.com/BetaCatPro/ws-pingpong/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProtocol(t *testing.T) {
	assert.IsType(t, &RawProtocol{}, GetProtocol(types.ProtocolV1))
	assert.IsType(t, &JSONProtocol{}, GetProtocol(types.ProtocolV2))
	assert.IsType(t, &JSONProtocol{}, GetProtocol(""))
}

func TestRawProtocolEchoes(t *testing.T) {
	p := &RawProtocol{}
	for _, payload := range []string{"abc123", "", "{\"ping\":1}", "héllo wörld"} {
		f, err := p.Decode([]byte(payload))
		require.NoError(t, err)
		assert.Equal(t, FramePing, f.Kind)
		assert.Equal(t, payload, f.Label)

		out, err := p.EncodePong(f.Token)
		require.NoError(t, err)
		assert.Equal(t, payload, string(out))
	}
}

func TestRawProtocolCopiesPayload(t *testing.T) {
	buf := []byte("abc")
	f, err := (&RawProtocol{}).Decode(buf)
	require.NoError(t, err)
	buf[0] = 'x'
	assert.Equal(t, "abc", string(f.Token))
}

func TestJSONDecodeReadTimeout(t *testing.T) {
	p := &JSONProtocol{}

	f, err := p.Decode([]byte(`{"read_timeout":5}`))
	require.NoError(t, err)
	assert.Equal(t, FrameReadTimeout, f.Kind)
	assert.Equal(t, 5*time.Second, f.ReadTimeout)

	f, err = p.Decode([]byte(`{ "read_timeout": 0.25 }`))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, f.ReadTimeout)
}

func TestJSONReadTimeoutWinsOverPing(t *testing.T) {
	f, err := (&JSONProtocol{}).Decode([]byte(`{"read_timeout":3,"ping":7}`))
	require.NoError(t, err)
	assert.Equal(t, FrameReadTimeout, f.Kind)
}

func TestJSONPingTokens(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		label string
		pong  string
	}{
		{"string", `{"ping":"xyz"}`, "xyz", `{"pong":"xyz"}`},
		{"zero", `{"ping":0}`, "0", `{"pong":0}`},
		{"empty string", `{"ping":""}`, "", `{"pong":""}`},
		{"false", `{"ping":false}`, "false", `{"pong":false}`},
		{"number", `{ "ping": 42 }`, "42", `{"pong":42}`},
		{"float", `{"ping":1.5}`, "1.5", `{"pong":1.5}`},
	}

	p := &JSONProtocol{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := p.Decode([]byte(tt.in))
			require.NoError(t, err)
			require.Equal(t, FramePing, f.Kind)
			assert.Equal(t, tt.label, f.Label)

			out, err := p.EncodePong(f.Token)
			require.NoError(t, err)
			assert.JSONEq(t, tt.pong, string(out))
		})
	}
}

func TestJSONOtherMessages(t *testing.T) {
	p := &JSONProtocol{}
	for _, in := range []string{`{}`, `{"hello":"world"}`, `{"ping":null}`, `{"read_timeout":null}`, `5`, `"text"`, `[1,2]`} {
		f, err := p.Decode([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, FrameOther, f.Kind, in)
	}
}

func TestJSONParseErrors(t *testing.T) {
	p := &JSONProtocol{}
	for _, in := range []string{``, `not json`, `{"ping":`, `null`, `{"read_timeout":"5"}`} {
		_, err := p.Decode([]byte(in))
		require.Error(t, err, in)

		var perr *errors.ParseError
		assert.True(t, stderrors.As(err, &perr), in)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidMessage), in)
	}
}

func TestJSONEncodePongRejectsEmptyToken(t *testing.T) {
	_, err := (&JSONProtocol{}).EncodePong(nil)
	assert.ErrorIs(t, err, errors.ErrProtocolError)
}
