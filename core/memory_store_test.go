package core

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreIdentityTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	// A token cannot be attached before a server is configured.
	if err := store.SetIdentityToken(ctx, "tok"); !errors.Is(err, ErrNoIdentityServer) {
		t.Fatalf("SetIdentityToken without server = %v, want ErrNoIdentityServer", err)
	}

	url := "https://id.example.org"
	if err := store.SetIdentityConfig(ctx, IdentityServerConfig{URL: &url}); err != nil {
		t.Fatalf("SetIdentityConfig: %v", err)
	}
	if err := store.SetIdentityToken(ctx, "  tok  "); err != nil {
		t.Fatalf("SetIdentityToken: %v", err)
	}

	config, err := store.GetIdentityConfig(ctx)
	if err != nil {
		t.Fatalf("GetIdentityConfig: %v", err)
	}
	if !config.HasToken() || *config.Token != "tok" {
		t.Fatalf("token not stored trimmed: %+v", config)
	}

	if err := store.ClearIdentityToken(ctx); err != nil {
		t.Fatalf("ClearIdentityToken: %v", err)
	}
	config, err = store.GetIdentityConfig(ctx)
	if err != nil {
		t.Fatalf("GetIdentityConfig after clear: %v", err)
	}
	if config.Token != nil {
		t.Fatal("cleared token must be indistinguishable from one never fetched")
	}
	if !config.HasURL() {
		t.Fatal("clearing the token must not drop the server binding")
	}
}

func TestMemoryStoreReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()
	url := "https://id.example.org"
	if err := store.SetIdentityConfig(ctx, IdentityServerConfig{URL: &url}); err != nil {
		t.Fatalf("SetIdentityConfig: %v", err)
	}

	first, _ := store.GetIdentityConfig(ctx)
	*first.URL = "https://tampered.example.org"

	second, _ := store.GetIdentityConfig(ctx)
	if *second.URL != "https://id.example.org" {
		t.Fatalf("caller mutation reached the store: %q", *second.URL)
	}
}

func TestMemoryStoreScalarTokensKeyedCanonically(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	if err := store.SetScalarToken(ctx, "HTTPS://IM.Example.Org/api/", "scalar-tok"); err != nil {
		t.Fatalf("SetScalarToken: %v", err)
	}
	token, err := store.GetScalarToken(ctx, "https://im.example.org/api")
	if err != nil {
		t.Fatalf("GetScalarToken: %v", err)
	}
	if token != "scalar-tok" {
		t.Fatalf("canonical key variants should share one slot, got %q", token)
	}

	if err := store.ClearScalarToken(ctx, "https://im.example.org/api/"); err != nil {
		t.Fatalf("ClearScalarToken: %v", err)
	}
	token, _ = store.GetScalarToken(ctx, "https://im.example.org/api")
	if token != "" {
		t.Fatalf("cleared scalar token still readable: %q", token)
	}

	if err := store.SetScalarToken(ctx, "   ", "tok"); err == nil {
		t.Fatal("blank api url should be rejected")
	}
}

func TestMemoryStorePendingBindings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()
	pid := ThreePid{Medium: MediumEmail, Address: "user@example.org"}

	if err := store.SavePendingBinding(ctx, PendingBinding{ThreePid: ThreePid{Medium: "bogus"}}); err == nil {
		t.Fatal("binding with invalid pid should be rejected")
	}

	binding := PendingBinding{ThreePid: pid, ClientSecret: "secret", SID: "sid-1", SendAttempt: 1}
	if err := store.SavePendingBinding(ctx, binding); err != nil {
		t.Fatalf("SavePendingBinding: %v", err)
	}

	// Medium casing and surrounding whitespace must hit the same record.
	got, ok, err := store.GetPendingBinding(ctx, ThreePid{Medium: " EMAIL ", Address: " user@example.org "})
	if err != nil || !ok {
		t.Fatalf("GetPendingBinding = (%v, %v), want hit", ok, err)
	}
	if got.ClientSecret != "secret" || got.SID != "sid-1" {
		t.Fatalf("wrong binding returned: %+v", got)
	}

	if err := store.DeletePendingBinding(ctx, pid); err != nil {
		t.Fatalf("DeletePendingBinding: %v", err)
	}
	if _, ok, _ := store.GetPendingBinding(ctx, pid); ok {
		t.Fatal("deleted binding still present")
	}
}

func TestMemoryStoreNilReceiver(t *testing.T) {
	var store *MemoryTokenStore
	if _, err := store.GetIdentityConfig(context.Background()); err == nil {
		t.Fatal("nil store should report not configured")
	}
	if err := store.SetScalarToken(context.Background(), "https://im.example.org", "tok"); err == nil {
		t.Fatal("nil store should report not configured")
	}
}
