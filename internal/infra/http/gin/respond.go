package ginserver

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"opalestay/internal/domain/shared/failure"
)

// respond writes {"result": true, ...payload}. Payloads that are not JSON objects are
// put under "items".
func respond(c *gin.Context, status int, payload any) {
	body, err := envelope(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"result": false, "error": err.Error()})
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

// respondError writes {"result": false, "error": "..."} with the status of err's kind.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed", "status", status, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"result": false, "error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"result": false, "error": err.Error()})
}

func statusFor(err error) int {
	switch failure.Kind(err) {
	case failure.ErrValidation:
		return http.StatusBadRequest
	case failure.ErrConflict:
		return http.StatusConflict
	case failure.ErrNotFound:
		return http.StatusNotFound
	case failure.ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func envelope(payload any) ([]byte, error) {
	headJSON, err := json.Marshal(map[string]any{"result": true})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return headJSON, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		wrapped, err := json.Marshal(map[string]json.RawMessage{"items": body})
		if err != nil {
			return nil, err
		}
		body = wrapped
	}
	if bytes.Equal(body, []byte("{}")) {
		return headJSON, nil
	}
	var buf bytes.Buffer
	buf.Grow(len(headJSON) + len(body))
	buf.Write(headJSON[:len(headJSON)-1])
	buf.WriteByte(',')
	buf.Write(body[1:])
	return buf.Bytes(), nil
}
