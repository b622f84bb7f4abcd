package reliability

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Error codes used as metric labels for provider failures.
const (
	CodeCanceled    = "canceled"
	CodeTimeout     = "timeout"
	CodeRateLimited = "rate_limited"
	CodeAuth        = "auth"
	CodeUpstream    = "upstream"
	CodeBadRequest  = "bad_request"
	CodeNetwork     = "network"
	CodeUnknown     = "unknown"
)

// IsRetryableHTTPStatus classifies transient HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ClassifyHTTPStatus maps an upstream status to an error code.
func ClassifyHTTPStatus(code int) string {
	switch {
	case code == 401 || code == 403:
		return CodeAuth
	case code == 408:
		return CodeTimeout
	case code == 429:
		return CodeRateLimited
	case code >= 500:
		return CodeUpstream
	case code >= 400:
		return CodeBadRequest
	default:
		return CodeUnknown
	}
}

// Classify maps err to a short code. Sessions never retry a provider call;
// the code only labels metrics and logs.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return CodeCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ClassifyHTTPStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ClassifyHTTPStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeTimeout
		}
		return CodeNetwork
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "quota"):
		return CodeRateLimited
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "api key"):
		return CodeAuth
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connect failed"):
		return CodeNetwork
	default:
		return CodeUnknown
	}
}

// IsTransient reports whether err is worth surfacing as a temporary outage.
func IsTransient(err error) bool {
	switch Classify(err) {
	case CodeTimeout, CodeRateLimited, CodeUpstream, CodeNetwork:
		return true
	default:
		return false
	}
}
