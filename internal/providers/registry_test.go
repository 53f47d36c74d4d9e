package providers

import (
	"fmt"
	"sync"
	"testing"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
)

// TestRegistry_RegisterAndGet tests registration and case-insensitive lookup
func TestRegistry_RegisterAndGet(t *testing.T) {
	registry, err := NewRegistry(GitHub(Options{ClientID: "a"}), Google(Options{ClientID: "b"}))
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	for _, name := range []string{"github", "GitHub", " google "} {
		if _, err := registry.Get(name); err != nil {
			t.Errorf("Get(%q) returned error: %v", name, err)
		}
	}

	_, err = registry.Get("facebook")
	if !autherrors.HasCode(err, autherrors.ErrCodeProviderNotFound) {
		t.Errorf("Expected PROVIDER_NOT_FOUND, got %v", err)
	}

	names := registry.Names()
	if len(names) != 2 || names[0] != "github" || names[1] != "google" {
		t.Errorf("Expected registration order, got %v", names)
	}
	if len(registry.All()) != 2 {
		t.Errorf("Expected two providers, got %d", len(registry.All()))
	}
}

// TestRegistry_RejectsInvalid tests invalid and duplicate registrations
func TestRegistry_RejectsInvalid(t *testing.T) {
	registry, _ := NewRegistry()

	if err := registry.Register(nil); err == nil {
		t.Error("Expected error for nil provider")
	}
	if err := registry.Register(GitHub(Options{})); !autherrors.HasCode(err, autherrors.ErrCodeInvalidProviderConfig) {
		t.Errorf("Expected INVALID_PROVIDER_CONFIG for missing client id, got %v", err)
	}
	if err := registry.Register(GitHub(Options{ClientID: "x"})); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := registry.Register(GitHub(Options{ClientID: "y"})); err == nil {
		t.Error("Expected duplicate registration to fail")
	}

	if _, err := NewRegistry(Generic("x", Endpoints{}, Options{})); err == nil {
		t.Error("Expected NewRegistry to propagate validation errors")
	}
}

// TestRegistry_ConcurrentAccess tests concurrent registration and lookups
func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry, _ := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("idp%d", i)
			_ = registry.Register(Generic(name, Endpoints{
				AuthURL:  "https://idp.example.com/authorize",
				TokenURL: "https://idp.example.com/token",
			}, Options{ClientID: "id", Scopes: []string{"openid"}}))
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = registry.Get(fmt.Sprintf("idp%d", i))
			_ = registry.Names()
		}(i)
	}
	wg.Wait()

	if len(registry.Names()) != 20 {
		t.Errorf("Expected 20 providers, got %d", len(registry.Names()))
	}
}
