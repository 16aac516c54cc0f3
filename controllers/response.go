package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ict-ledger/interfaces"
)

// apiResponse is the envelope of every API reply. Code is 0 on success and
// the HTTP status otherwise; Kind is the machine-readable error kind.
type apiResponse struct {
	Code    int                  `json:"code"`
	Kind    interfaces.ErrorKind `json:"kind,omitempty"`
	Message string               `json:"message"`
	Data    any                  `json:"data,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// respondError renders a ledger error. Risk rejections carry their decision
// as data so clients can show the failing rule.
func respondError(c *gin.Context, err error) {
	kind := interfaces.KindOf(err)
	status := statusForKind(kind)
	resp := apiResponse{
		Code:    status,
		Kind:    kind,
		Message: err.Error(),
	}
	if d := interfaces.DecisionOf(err); d != nil {
		resp.Data = d
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, apiResponse{
		Code:    http.StatusBadRequest,
		Kind:    interfaces.KindValidation,
		Message: message,
	})
}

func statusForKind(kind interfaces.ErrorKind) int {
	switch kind {
	case interfaces.KindValidation:
		return http.StatusBadRequest
	case interfaces.KindNotFound:
		return http.StatusNotFound
	case interfaces.KindInvalidState, interfaces.KindConcurrencyConflict, interfaces.KindAlreadyResolved:
		return http.StatusConflict
	case interfaces.KindRiskRejection:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// parseTime accepts RFC3339 or a bare YYYY-MM-DD, read as midnight in loc
func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, interfaces.ValidationError("parse_time", "%q is neither RFC3339 nor YYYY-MM-DD", raw)
	}
	return t, nil
}

// timeQuery reads an optional time query parameter
func timeQuery(c *gin.Context, key string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(key)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseTime(raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
