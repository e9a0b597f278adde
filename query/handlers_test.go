package query

import (
	"context"
	"testing"

	"github.com/goliatone/go-trust/core"
)

type stubWidgetReader struct {
	allowed     core.AllowedWidgetsContent
	widgetState map[string]bool
	enabled     bool
}

func (s stubWidgetReader) GetAllowedWidgets(_ context.Context) (core.AllowedWidgetsContent, error) {
	return s.allowed, nil
}

func (s stubWidgetReader) IsWidgetAllowed(_ context.Context, stateEventID string) (bool, error) {
	return s.widgetState[stateEventID], nil
}

func (s stubWidgetReader) IsIntegrationEnabled(_ context.Context) (bool, error) {
	return s.enabled, nil
}

type stubIdentityReader struct {
	url *string
}

func (s stubIdentityReader) GetIdentityServerURL(_ context.Context) (*string, error) {
	return s.url, nil
}

type stubConnectivityReader struct {
	online    bool
	lastForce bool
}

func (s *stubConnectivityReader) HasInternetAccess(_ context.Context, forcePing bool) bool {
	s.lastForce = forcePing
	return s.online
}

func TestGetIdentityServerURLQuery_Delegates(t *testing.T) {
	url := "https://id.example.org"
	q := NewGetIdentityServerURLQuery(stubIdentityReader{url: &url})

	got, err := q.Query(context.Background(), GetIdentityServerURLMessage{})
	if err != nil {
		t.Fatalf("query identity server url: %v", err)
	}
	if got == nil || *got != url {
		t.Fatalf("expected %q, got %v", url, got)
	}
}

func TestWidgetQueries_Delegate(t *testing.T) {
	reader := stubWidgetReader{
		allowed: core.AllowedWidgetsContent{
			Widgets: map[string]bool{"$event1": true},
			Native:  map[string]map[string]bool{},
		},
		widgetState: map[string]bool{"$event1": true},
		enabled:     true,
	}

	widgets, err := NewGetAllowedWidgetsQuery(reader).Query(context.Background(), GetAllowedWidgetsMessage{})
	if err != nil {
		t.Fatalf("query allowed widgets: %v", err)
	}
	if !widgets.Widgets["$event1"] {
		t.Fatalf("expected $event1 allowed, got %+v", widgets)
	}

	allowed, err := NewIsWidgetAllowedQuery(reader).Query(context.Background(), IsWidgetAllowedMessage{StateEventID: "$event1"})
	if err != nil {
		t.Fatalf("query widget allowed: %v", err)
	}
	if !allowed {
		t.Fatalf("expected widget allowed")
	}

	enabled, err := NewIsIntegrationEnabledQuery(reader).Query(context.Background(), IsIntegrationEnabledMessage{})
	if err != nil {
		t.Fatalf("query provisioning: %v", err)
	}
	if !enabled {
		t.Fatalf("expected provisioning enabled")
	}
}

func TestHasInternetAccessQuery_PassesForcePing(t *testing.T) {
	reader := &stubConnectivityReader{online: true}
	q := NewHasInternetAccessQuery(reader)

	online, err := q.Query(context.Background(), HasInternetAccessMessage{ForcePing: true})
	if err != nil {
		t.Fatalf("query connectivity: %v", err)
	}
	if !online {
		t.Fatalf("expected online")
	}
	if !reader.lastForce {
		t.Fatalf("expected force ping to reach reader")
	}
}

func TestQueriesRequireReader(t *testing.T) {
	var q *GetAllowedWidgetsQuery
	if _, err := q.Query(context.Background(), GetAllowedWidgetsMessage{}); err == nil {
		t.Fatalf("expected dependency error from nil query")
	}
	if _, err := NewIsWidgetAllowedQuery(nil).Query(context.Background(), IsWidgetAllowedMessage{StateEventID: "$e"}); err == nil {
		t.Fatalf("expected dependency error from nil reader")
	}
}

func TestIsWidgetAllowedMessageValidation(t *testing.T) {
	if err := (IsWidgetAllowedMessage{}).Validate(); err == nil {
		t.Fatalf("expected empty state event id to fail validation")
	}
	if err := (IsWidgetAllowedMessage{StateEventID: "$event1"}).Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
}
