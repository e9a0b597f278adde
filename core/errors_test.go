package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func statusError(status int, textCode string) error {
	err := goerrors.New("request failed", goerrors.CategoryExternal)
	err.Code = status
	err.TextCode = textCode
	return err
}

func TestIsAuthTokenInvalid(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrTokenInvalid, true},
		{"wrapped sentinel", fmt.Errorf("calling account: %w", ErrTokenInvalid), true},
		{"plain 401", statusError(http.StatusUnauthorized, ""), true},
		{"403 with token marker", statusError(http.StatusForbidden, TrustErrorTokenInvalid), true},
		{"403 with lowercase marker", statusError(http.StatusForbidden, "trust_token_invalid"), true},
		{"403 without marker", statusError(http.StatusForbidden, ""), false},
		{"403 terms marker", statusError(http.StatusForbidden, TrustErrorTermsNotSigned), false},
		{"500", statusError(http.StatusInternalServerError, ""), false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAuthTokenInvalid(tc.err); got != tc.want {
				t.Fatalf("IsAuthTokenInvalid(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsTermsNotSigned(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrTermsNotSigned, true},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", ErrTermsNotSigned), true},
		{"403 terms marker", statusError(http.StatusForbidden, TrustErrorTermsNotSigned), true},
		{"403 token marker", statusError(http.StatusForbidden, TrustErrorTokenInvalid), false},
		{"plain 401", statusError(http.StatusUnauthorized, ""), false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTermsNotSigned(tc.err); got != tc.want {
				t.Fatalf("IsTermsNotSigned(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestTrustErrorMapperSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		textCode string
		status   int
	}{
		{"no identity server", ErrNoIdentityServer, TrustErrorNoIdentityServer, http.StatusInternalServerError},
		{"outdated home server", ErrOutdatedHomeServer, TrustErrorOutdatedServer, http.StatusInternalServerError},
		{"terms not signed", ErrTermsNotSigned, TrustErrorTermsNotSigned, http.StatusForbidden},
		{"token invalid", ErrTokenInvalid, TrustErrorTokenInvalid, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := trustErrorMapper(tc.err)
			if mapped == nil {
				t.Fatal("mapper returned nil for non-nil error")
			}
			if mapped.TextCode != tc.textCode {
				t.Fatalf("TextCode = %q, want %q", mapped.TextCode, tc.textCode)
			}
			if mapped.Code != tc.status {
				t.Fatalf("Code = %d, want %d", mapped.Code, tc.status)
			}
		})
	}
}

func TestTrustErrorMapperValidationMessages(t *testing.T) {
	mapped := trustErrorMapper(errors.New("core: identity server url is required"))
	if mapped.TextCode != TrustErrorBadInput {
		t.Fatalf("TextCode = %q, want %q", mapped.TextCode, TrustErrorBadInput)
	}
	if mapped.Code != http.StatusBadRequest {
		t.Fatalf("Code = %d, want %d", mapped.Code, http.StatusBadRequest)
	}
}

func TestTrustErrorMapperPreservesEnvelope(t *testing.T) {
	source := statusError(http.StatusForbidden, TrustErrorTermsNotSigned)
	mapped := trustErrorMapper(source)
	if mapped.Code != http.StatusForbidden || mapped.TextCode != TrustErrorTermsNotSigned {
		t.Fatalf("existing envelope rewritten: code=%d text=%q", mapped.Code, mapped.TextCode)
	}

	bare := goerrors.New("upstream failed", goerrors.CategoryExternal)
	mapped = trustErrorMapper(bare)
	if mapped.Code != http.StatusBadGateway {
		t.Fatalf("external category status = %d, want %d", mapped.Code, http.StatusBadGateway)
	}
	if mapped.TextCode != TrustErrorServerError {
		t.Fatalf("external category text code = %q, want %q", mapped.TextCode, TrustErrorServerError)
	}
}

func TestTrustErrorMapperNil(t *testing.T) {
	if trustErrorMapper(nil) != nil {
		t.Fatal("nil error should map to nil")
	}
}
