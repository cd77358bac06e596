package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoke(t *testing.T, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Use(Middleware())
	e.GET("/test", handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewarePassesSuccessThrough(t *testing.T) {
	rec := invoke(t, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareRendersStructuredError(t *testing.T) {
	rec := invoke(t, func(c echo.Context) error {
		return Validation("invalid period").WithField("period", "hourly")
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid period", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, "hourly", resp.Context["period"])
}

func TestMiddlewareWrapsPlainErrors(t *testing.T) {
	rec := invoke(t, func(c echo.Context) error {
		return fmt.Errorf("something broke")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, TypeInternal, resp.Type)
	// internal detail must not leak to the client
	assert.NotContains(t, resp.Error, "something broke")
}

func TestMiddlewareLeavesEchoErrorsAlone(t *testing.T) {
	rec := invoke(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
