package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/mathboard/internal/ai"
)

func hi() ai.CompletionRequest {
	return ai.CompletionRequest{Messages: []ai.Message{{Role: "user", Content: "hi"}}}
}

func TestRouter_SingleProvider(t *testing.T) {
	router := ai.NewRouter()
	router.Register("openrouter", ai.NewMockProvider("Hello!"))

	resp, err := router.Complete(context.Background(), hi())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Hello!" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hello!")
	}
}

func TestRouter_Fallback(t *testing.T) {
	router := ai.NewRouter()
	router.Register("openrouter", &ai.MockProvider{Err: errors.New("rate limited")})
	router.Register("openai", ai.NewMockProvider("Fallback response"))

	resp, err := router.Complete(context.Background(), hi())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Fallback response" {
		t.Errorf("Content = %q, want %q", resp.Content, "Fallback response")
	}
}

func TestRouter_AllProvidersFail(t *testing.T) {
	router := ai.NewRouter()
	errRate := errors.New("fail 1")
	router.Register("openrouter", &ai.MockProvider{Err: errRate})
	router.Register("openai", &ai.MockProvider{Err: errors.New("fail 2")})

	_, err := router.Complete(context.Background(), hi())
	if err == nil {
		t.Fatal("Complete() should return error when all providers fail")
	}
	if !errors.Is(err, errRate) {
		t.Errorf("error = %v, should wrap each provider error", err)
	}
}

func TestRouter_NoProviders(t *testing.T) {
	router := ai.NewRouter()

	if _, err := router.Complete(context.Background(), hi()); !errors.Is(err, ai.ErrNoProvider) {
		t.Fatalf("Complete() error = %v, want ErrNoProvider", err)
	}
	if err := router.HealthCheck(context.Background()); !errors.Is(err, ai.ErrNoProvider) {
		t.Errorf("HealthCheck() error = %v, want ErrNoProvider", err)
	}
}

func TestRouter_CanceledContext(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("unused")
	router.Register("mock", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := router.Complete(ctx, hi()); !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
	if len(mock.Requests()) != 0 {
		t.Error("no provider should be called after cancellation")
	}
}

func TestRouter_HasProvider(t *testing.T) {
	router := ai.NewRouter()
	if router.HasProvider() {
		t.Error("HasProvider() should be false with no providers")
	}

	router.Register("mock", ai.NewMockProvider("ok"))
	if !router.HasProvider() {
		t.Error("HasProvider() should be true after Register")
	}
}

func TestRouter_FallbackOrder(t *testing.T) {
	router := ai.NewRouter()
	router.Register("first", ai.NewMockProvider("first"))
	router.Register("second", ai.NewMockProvider("second"))
	router.Register("first", ai.NewMockProvider("first again"))

	resp, err := router.Complete(context.Background(), hi())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "first again" {
		t.Errorf("Content = %q, want %q (re-registering keeps the position)", resp.Content, "first again")
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	router := ai.NewRouter()
	router.Register("down", &ai.MockProvider{Err: errors.New("down")})
	router.Register("up", ai.NewMockProvider("ok"))

	if err := router.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil when one provider is healthy", err)
	}
}
