package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/common/fault"
)

// statusOf maps fault kinds onto HTTP statuses. Unkinded errors are 500s.
func statusOf(err error) int {
	switch fault.KindOf(err) {
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindConflict, fault.KindResourceExhausted:
		return http.StatusConflict
	case fault.KindInstanceError:
		return http.StatusBadGateway
	case fault.KindLaunchTimeout:
		return http.StatusGatewayTimeout
	case fault.KindCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	return c.JSON(statusOf(err), map[string]any{
		"error": err.Error(),
		"kind":  fault.KindOf(err).String(),
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]any{"error": msg})
}

// pathID parses a uuid path parameter
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// pathIDValue parses a uuid from a request body field
func pathIDValue(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}

// actorOf reads the authenticated caller from the X-User-ID header
func actorOf(c echo.Context) string {
	if actor := c.Request().Header.Get("X-User-ID"); actor != "" {
		return actor
	}
	return "anonymous"
}
