package classify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/transport"
)

func resp(status int, body string) *transport.Response {
	return &transport.Response{StatusCode: status, Body: body}
}

func TestClassify_REST204IsEmptySuccess(t *testing.T) {
	for _, body := range []string{"", "ignored", `{"detail":"x"}`} {
		out := Classify(envelope.StyleREST, resp(204, body), nil)
		assert.True(t, out.Succeeded)
		assert.Empty(t, out.Body)
		assert.Empty(t, out.ErrorMessage)
		assert.True(t, out.NoContent())
	}
}

func TestClassify_RESTSuccessIffTwoHundredRange(t *testing.T) {
	for status := 100; status < 600; status++ {
		out := Classify(envelope.StyleREST, resp(status, "b"), nil)
		want := status >= 200 && status < 300
		assert.Equal(t, want, out.Succeeded, "status %d", status)
		assert.Equal(t, !want, out.ErrorMessage != "", "status %d", status)
		if !want {
			assert.Equal(t, FailureProtocol, out.Failure)
		}
	}
}

func TestClassify_RPCSuccessIffBelowFourHundred(t *testing.T) {
	for status := 100; status < 600; status++ {
		out := Classify(envelope.StyleRPC, resp(status, "b"), nil)
		want := status < 400
		assert.Equal(t, want, out.Succeeded, "status %d", status)
		assert.Equal(t, !want, out.ErrorMessage != "", "status %d", status)
	}
}

func TestClassify_Redirects(t *testing.T) {
	for _, status := range []int{301, 302, 303, 307, 308} {
		out := Classify(envelope.StyleREST, resp(status, ""), nil)
		assert.False(t, out.Succeeded, "status %d", status)
		assert.Equal(t, status, out.StatusCode)
		assert.Equal(t, fmt.Sprintf("HTTP %d -> ", status), out.ErrorMessage)

		out = Classify(envelope.StyleRPC, resp(status, ""), nil)
		assert.True(t, out.Succeeded, "status %d", status)
		assert.Equal(t, status, out.StatusCode)
	}
}

func TestClassify_RPCIgnoresExceptionInBody(t *testing.T) {
	body := `{"requestId":1,"isException":true,"error":"boom"}`
	out := Classify(envelope.StyleRPC, resp(200, body), nil)
	assert.True(t, out.Succeeded)
	assert.Equal(t, body, out.Body)
}

func TestClassify_ErrorMessageCarriesStatusAndBody(t *testing.T) {
	out := Classify(envelope.StyleREST, resp(400, `{"detail":"tipos diferentes"}`), nil)
	require.False(t, out.Succeeded)
	assert.Equal(t, `HTTP 400 -> {"detail":"tipos diferentes"}`, out.ErrorMessage)
	assert.Equal(t, 400, out.StatusCode)
	assert.Equal(t, `{"detail":"tipos diferentes"}`, out.Body)
}

func TestClassify_TransportFailure(t *testing.T) {
	terr := &transport.Error{Method: "GET", URL: "http://x/produtos", Err: errors.New("connection refused")}

	for _, style := range []envelope.Style{envelope.StyleREST, envelope.StyleRPC} {
		out := Classify(style, nil, fmt.Errorf("wrapped: %w", terr))
		assert.False(t, out.Succeeded)
		assert.Equal(t, 0, out.StatusCode)
		assert.Equal(t, FailureTransport, out.Failure)
		assert.Contains(t, out.ErrorMessage, "transport error: ")
		assert.Contains(t, out.ErrorMessage, "connection refused")
	}

	out := Classify(envelope.StyleREST, nil, nil)
	assert.False(t, out.Succeeded)
	assert.Equal(t, "transport error: no response", out.ErrorMessage)
}

func TestDecodeReply(t *testing.T) {
	t.Run("bare reply", func(t *testing.T) {
		r, err := DecodeReply(`{"requestId":3,"isException":false,"result":[1,2]}`)
		require.NoError(t, err)
		assert.Equal(t, int64(3), r.RequestID)
		assert.False(t, r.IsException)
		assert.JSONEq(t, `[1,2]`, string(r.Result))
	})

	t.Run("detail wrapper", func(t *testing.T) {
		r, err := DecodeReply(`{"detail":{"requestId":5,"isException":true,"error":"Produtos de tipos diferentes"}}`)
		require.NoError(t, err)
		assert.Equal(t, int64(5), r.RequestID)
		assert.True(t, r.IsException)
		assert.Equal(t, "Produtos de tipos diferentes", r.Error)
	})

	t.Run("string detail is not a reply", func(t *testing.T) {
		r, err := DecodeReply(`{"detail":"Not Found"}`)
		require.NoError(t, err)
		assert.False(t, r.IsException)
		assert.Zero(t, r.RequestID)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodeReply("  ")
		require.Error(t, err)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := DecodeReply(`[1,2]`)
		require.Error(t, err)
	})
}
