package envelope

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-sign/walletbridge/pkg/apierrors"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

func desktopFrame(header, typ, nonce string) string {
	return `{"header":"` + header + `","type":"` + typ + `","request":{"data":{"id":"req-7","appkey":"ak","nonce":` + nonce + `,"nextNonce":"6","type":"getEosBalance","payload":{"account":"alice","contract":"eosio.token"}},"plugin":"Scatter"},"callback":"window.scatterCb"}`
}

func TestPassthroughRoundTrip(t *testing.T) {
	a := PassthroughAdapter{}
	req, c, err := a.Unwrap([]byte(`{"methodName":"walletLanguage","callback":"cb_1"}`))
	require.NoError(t, err)
	require.Equal(t, req, c)

	resp, err := wire.NewSuccess(req, wire.Language("zh"))
	require.NoError(t, err)
	frame, err := a.Wrap(resp, c)
	require.NoError(t, err)
	require.Equal(t, "cb_1", frame.Callback)
	require.Empty(t, frame.Header)
	require.JSONEq(t, `{"code":0,"message":"success","data":"zh"}`, string(frame.Body))
	require.Len(t, frame.Args(), 1)

	frame, err = a.WrapError(errors.New("nope"), c)
	require.NoError(t, err)
	require.JSONEq(t, `{"code":1,"message":"nope","isError":true}`, string(frame.Body))
}

func TestCorrelatedUnwrapNormalizesNonce(t *testing.T) {
	a := CorrelatedAdapter{}
	for _, nonce := range []string{`"5"`, `5`} {
		req, s, err := a.Unwrap([]byte(desktopFrame(HeaderEvent, TypeAPI, nonce)))
		require.NoError(t, err)
		require.Equal(t, "5", s.Nonce)
		require.Equal(t, "6", s.NextNonce)
		require.Equal(t, "req-7", s.ID)
		require.Equal(t, "ak", s.AppKey)
		require.Equal(t, "Scatter", s.Plugin)
		require.Equal(t, "window.scatterCb", req.Callback())
		require.Equal(t, wire.OpGetEosBalance, req.Operation())
		require.Equal(t, wire.BalanceParams{Account: "alice", Contract: "eosio.token"}, req.Params())
	}
}

func TestCorrelatedUnwrapRejectsUnsupportedKind(t *testing.T) {
	a := CorrelatedAdapter{}
	for _, tc := range [][2]string{{HeaderConnect, TypeAPI}, {HeaderEvent, "pair"}, {"41/scatter", "api"}} {
		_, _, err := a.Unwrap([]byte(desktopFrame(tc[0], tc[1], `1`)))
		require.ErrorIs(t, err, apierrors.ErrUnsupportedKind)
		require.ErrorIs(t, err, apierrors.ErrDecode)
	}
	_, _, err := a.Unwrap([]byte(`{"header":"42/scatter","type":"api","request":{"data":{"id":"1"}},"callback":"cb"}`))
	require.ErrorIs(t, err, apierrors.ErrDecode)
}

func TestCorrelatedWrapEchoesID(t *testing.T) {
	a := CorrelatedAdapter{}
	req, s, err := a.Unwrap([]byte(desktopFrame(HeaderEvent, TypeAPI, `5`)))
	require.NoError(t, err)

	resp, err := wire.NewSuccess(req, wire.Balance{Account: "alice", Contract: "eosio.token", Symbol: "EOS"})
	require.NoError(t, err)
	frame, err := a.Wrap(resp, s)
	require.NoError(t, err)
	require.Equal(t, HeaderEvent, frame.Header)
	require.JSONEq(t, `["api",{"id":"req-7","result":{"balance":"0 EOS","contract":"eosio.token","account":"alice"}}]`, string(frame.Body))
	require.Equal(t, []string{"message", HeaderEvent + "," + string(frame.Body)}, frame.Args())
}

func TestCorrelatedErrorEncoding(t *testing.T) {
	a := CorrelatedAdapter{}
	_, s, err := a.Unwrap([]byte(desktopFrame(HeaderEvent, TypeAPI, `5`)))
	require.NoError(t, err)

	sources := []error{
		errors.New("plain"),
		apierrors.New(apierrors.CodeForbidden, apierrors.KindMalicious, "malicious"),
		apierrors.Unimplemented("getEosBalance"),
	}
	for _, src := range sources {
		frame, err := a.WrapError(src, s)
		require.NoError(t, err)

		var out []json.RawMessage
		require.NoError(t, json.Unmarshal(frame.Body, &out))
		require.Len(t, out, 2)
		require.Equal(t, `"api"`, string(out[0]))

		var keyed struct {
			ID     string         `json:"id"`
			Result map[string]any `json:"result"`
		}
		require.NoError(t, json.Unmarshal(out[1], &keyed))
		require.Equal(t, "req-7", keyed.ID)
		require.Equal(t, true, keyed.Result["isError"])
		require.Contains(t, keyed.Result, "code")
		require.Contains(t, keyed.Result, "message")
		for key := range keyed.Result {
			require.Contains(t, []string{"code", "message", "isError", "type"}, key)
		}
	}
}
