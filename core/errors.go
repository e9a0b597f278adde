package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TrustErrorBadInput         = "TRUST_BAD_INPUT"
	TrustErrorNoIdentityServer = "TRUST_NO_IDENTITY_SERVER"
	TrustErrorOutdatedServer   = "TRUST_OUTDATED_HOMESERVER"
	TrustErrorTermsNotSigned   = "TRUST_TERMS_NOT_SIGNED"
	TrustErrorTokenInvalid     = "TRUST_TOKEN_INVALID"
	TrustErrorServerError      = "TRUST_SERVER_ERROR"
	TrustErrorInternal         = "TRUST_INTERNAL_ERROR"
)

// WireErrorTermsNotSigned is the application error code carried by a 403
// response when the user has not agreed to the service's terms. It is a
// wire-protocol string and must match exactly.
const WireErrorTermsNotSigned = "M_TERMS_NOT_SIGNED"

var (
	ErrNoIdentityServer   = errors.New("core: no identity server configured")
	ErrOutdatedHomeServer = errors.New("core: home server does not support openid token exchange")
	ErrTermsNotSigned     = errors.New("core: terms of service not signed")
	ErrTokenInvalid       = errors.New("core: auth token rejected by service")
	ErrStopped            = errors.New("core: session manager is stopped")
)

func trustErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureTrustErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrNoIdentityServer):
		return newTrustError(err.Error(), goerrors.CategoryOperation, TrustErrorNoIdentityServer)
	case errors.Is(err, ErrOutdatedHomeServer):
		return newTrustError(err.Error(), goerrors.CategoryOperation, TrustErrorOutdatedServer)
	case errors.Is(err, ErrTermsNotSigned):
		return newTrustError(err.Error(), goerrors.CategoryAuthz, TrustErrorTermsNotSigned)
	case errors.Is(err, ErrTokenInvalid):
		return newTrustError(err.Error(), goerrors.CategoryAuth, TrustErrorTokenInvalid)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newTrustError(err.Error(), goerrors.CategoryBadInput, TrustErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureTrustErrorEnvelope(mapped)
}

func newTrustError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureTrustErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureTrustErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = trustHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTrustTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTrustTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return TrustErrorBadInput
	case goerrors.CategoryAuth:
		return TrustErrorTokenInvalid
	case goerrors.CategoryAuthz:
		return TrustErrorTermsNotSigned
	case goerrors.CategoryExternal:
		return TrustErrorServerError
	default:
		return TrustErrorInternal
	}
}

func trustHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsAuthTokenInvalid reports whether err is the recoverable
// authorization-class failure: HTTP 401, or HTTP 403 carrying the
// token-specific marker. Exactly these conditions permit the one-shot
// token refresh.
func IsAuthTokenInvalid(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenInvalid) {
		return true
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	if richErr.Code == http.StatusUnauthorized {
		return true
	}
	return richErr.Code == http.StatusForbidden &&
		strings.EqualFold(strings.TrimSpace(richErr.TextCode), TrustErrorTokenInvalid)
}

// IsTermsNotSigned reports whether err is the terminal 403 distinguished by
// the M_TERMS_NOT_SIGNED application code. It must never trigger a token
// refresh.
func IsTermsNotSigned(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTermsNotSigned) {
		return true
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), TrustErrorTermsNotSigned)
}
