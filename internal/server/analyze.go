package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/internal/util"
	"github.com/enzo-prism/density/pkg/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	temporaryFailureMessage    = "Temporary failure. Please try again."
	lifetimeUnavailableMessage = "Unable to determine the channel creation date."
	quotaExceededMessage       = "Quota exceeded. Please try again later."
	tryAgainMessage            = "Try again. YouTube API request failed."
)

// analyzeBody accepts loosely typed fields; values of the wrong JSON type are
// treated as absent.
type analyzeBody struct {
	Channel      any `json:"channel"`
	Timezone     any `json:"timezone"`
	LookbackDays any `json:"lookbackDays"`
	Range        any `json:"range"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func (s *Server) analyze(c echo.Context) error {
	var body analyzeBody
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		s.logger.Debug("Unreadable analyze body", zap.Error(err))
		body = analyzeBody{}
	}

	req := toRequest(body)
	req.ClientID = clientIP(c.Request())

	resp, err := s.analyzer.Analyze(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func toRequest(body analyzeBody) domain.AnalyzeRequest {
	req := domain.AnalyzeRequest{Range: domain.RangeDays}
	if channel, ok := body.Channel.(string); ok {
		req.ChannelReference = channel
	}
	if tz, ok := body.Timezone.(string); ok {
		req.Timezone = strings.TrimSpace(tz)
	}
	if r, ok := body.Range.(string); ok && r == string(domain.RangeLifetime) {
		req.Range = domain.RangeLifetime
		return req
	}

	var days *float64
	if n, ok := body.LookbackDays.(float64); ok {
		days = &n
	}
	req.Days = util.ClampWindowFloat(days)
	return req
}

// clientIP prefers proxy headers in the order X-Forwarded-For (first hop),
// X-Real-IP, CF-Connecting-IP.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}
	return "unknown"
}

func (s *Server) writeError(c echo.Context, err error) error {
	status, code, message := classify(err)

	var rlErr *errors.RateLimitError
	if errors.As(err, &rlErr) {
		seconds := int(math.Ceil(rlErr.RetryAfter.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
	}

	if status >= http.StatusInternalServerError {
		s.logger.Warn("Analyze request failed",
			zap.String("code", code),
			zap.Int("status", status),
			zap.Error(err))
	}
	return c.JSON(status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// classify maps a pipeline error onto the public error contract.
func classify(err error) (int, string, string) {
	var (
		verr   *errors.ValidationError
		nfErr  *errors.NotFoundError
		rlErr  *errors.RateLimitError
		ltErr  *errors.LifetimeUnavailableError
		toErr  *errors.TimeoutError
		apiErr *errors.APIError
		cfgErr *errors.ConfigError
	)

	switch {
	case errors.As(err, &verr):
		if verr.Field == "timezone" {
			return http.StatusBadRequest, "invalid_timezone", verr.Message
		}
		return http.StatusBadRequest, "invalid_channel", verr.Message
	case errors.As(err, &rlErr):
		return http.StatusTooManyRequests, "rate_limited", rlErr.Message
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, "missing_api_key", cfgErr.Message
	case errors.As(err, &nfErr):
		return http.StatusNotFound, "channel_not_found", nfErr.Message
	case errors.As(err, &ltErr):
		return http.StatusBadGateway, "lifetime_unavailable", lifetimeUnavailableMessage
	case errors.As(err, &toErr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "temporary_failure", temporaryFailureMessage
	case errors.As(err, &apiErr):
		if apiErr.IsQuota() {
			return http.StatusServiceUnavailable, "quota_exceeded", quotaExceededMessage
		}
		return http.StatusServiceUnavailable, "try_again", tryAgainMessage
	default:
		return http.StatusInternalServerError, "temporary_failure", temporaryFailureMessage
	}
}
