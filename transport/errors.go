package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-trust/core"
)

// wireError is the JSON failure body shared by identity servers and
// integration managers.
type wireError struct {
	ErrCode string `json:"errcode"`
	Error   string `json:"error"`
}

const wireErrCodeUnknownToken = "M_UNKNOWN_TOKEN"

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.TrustErrorBadInput
	case goerrors.CategoryAuth:
		return core.TrustErrorTokenInvalid
	default:
		return core.TrustErrorServerError
	}
}

// classifyStatus turns a non-2xx service response into the typed failure
// that drives core's retry branching. tokenSpecific403 marks services
// (the scalar API) whose plain 403 means "invalid token" rather than
// generic forbidden.
func classifyStatus(service string, statusCode int, body []byte, tokenSpecific403 bool) error {
	wire := wireError{}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &wire)
	}
	errCode := strings.TrimSpace(strings.ToUpper(wire.ErrCode))
	message := strings.TrimSpace(wire.Error)
	if message == "" {
		message = "transport: " + service + " request failed"
	}
	metadata := map[string]any{
		"service":     service,
		"status_code": statusCode,
	}
	if errCode != "" {
		metadata["errcode"] = errCode
	}

	switch {
	case statusCode == http.StatusUnauthorized:
		return goerrors.New(message, goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode(core.TrustErrorTokenInvalid).
			WithMetadata(metadata)
	case statusCode == http.StatusForbidden && errCode == core.WireErrorTermsNotSigned:
		return goerrors.New(message, goerrors.CategoryAuthz).
			WithCode(http.StatusForbidden).
			WithTextCode(core.TrustErrorTermsNotSigned).
			WithMetadata(metadata)
	case statusCode == http.StatusForbidden && (errCode == wireErrCodeUnknownToken || tokenSpecific403):
		return goerrors.New(message, goerrors.CategoryAuth).
			WithCode(http.StatusForbidden).
			WithTextCode(core.TrustErrorTokenInvalid).
			WithMetadata(metadata)
	case statusCode >= http.StatusInternalServerError:
		return goerrors.New(message, goerrors.CategoryExternal).
			WithCode(statusCode).
			WithTextCode(core.TrustErrorServerError).
			WithMetadata(metadata)
	default:
		return goerrors.New(message, goerrors.CategoryOperation).
			WithCode(statusCode).
			WithTextCode(core.TrustErrorServerError).
			WithMetadata(metadata)
	}
}
