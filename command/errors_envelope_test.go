package command

import (
	"context"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-trust/core"
)

func TestCommandDependencyError_ReturnsRichEnvelope(t *testing.T) {
	cmd := NewSetWidgetAllowedCommand(nil)
	err := cmd.Execute(context.Background(), SetWidgetAllowedMessage{StateEventID: "$event1", Allowed: true})
	if err == nil {
		t.Fatalf("expected dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.TrustErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.TrustErrorInternal, rich.TextCode)
	}
	if rich.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d code, got %d", http.StatusInternalServerError, rich.Code)
	}
}
