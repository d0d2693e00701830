package test

import (
	"extension-portal/internal/global/response"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func ErrorEqual(t *testing.T, expected *response.Error, resp response.ResponseBody) {
	t.Helper()
	require.Equal(t, expected.Code, resp.Code)
	require.Contains(t, resp.Msg, expected.Message)
}

func NoError(t *testing.T, resp response.ResponseBody) {
	t.Helper()
	require.Equal(t, int32(200), resp.Code, resp.Msg)
}

// Status 同时检查 HTTP 状态码和错误码
func Status(t *testing.T, w *httptest.ResponseRecorder, expected *response.Error) {
	t.Helper()
	require.Equal(t, expected.HTTPStatus(), w.Code, w.Body.String())
	ErrorEqual(t, expected, Decode(t, w, nil))
}
