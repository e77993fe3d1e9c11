package loggingmw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Skotchmaster/group_buy/pkg/logging"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h echo.HandlerFunc, rid string, pre ...echo.MiddlewareFunc) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	e := echo.New()
	e.Use(pre...)
	e.Use(RequestLogger(logging.NewWithWriter(&buf, "debug")))
	e.GET("/things/:id", h)

	req := httptest.NewRequest(http.MethodGet, "/things/42", nil)
	if rid != "" {
		req.Header.Set(echo.HeaderXRequestID, rid)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), buf.String())
	return line, rec
}

func TestRequestLogger_Success(t *testing.T) {
	line, rec := serve(t, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, "rid-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "/things/:id", line["route"])
	assert.Equal(t, "http_request", line["msg"])
	assert.Equal(t, "/things/42", line["url"])
	assert.Equal(t, "rid-1", line["request_id"])
	assert.EqualValues(t, 200, line["status"])
}

func TestRequestLogger_ClientAndServerErrors(t *testing.T) {
	line, rec := serve(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ERROR", line["level"], "handler errors are logged as errors")

	line, rec = serve(t, func(c echo.Context) error {
		return c.NoContent(http.StatusConflict)
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "WARN", line["level"])
	assert.NotContains(t, line, "request_id")
}

func TestRequestLogger_GeneratedRequestIDAndUser(t *testing.T) {
	line, rec := serve(t, func(c echo.Context) error {
		c.Set("user_id", "u-1")
		return c.NoContent(http.StatusNoContent)
	}, "", echomw.RequestID())

	rid := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, rid)
	assert.Equal(t, rid, line["request_id"])
	assert.Equal(t, "u-1", line["user_id"])
	assert.Equal(t, "INFO", line["level"])
}
