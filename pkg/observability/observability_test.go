package observability

import (
	"context"
	"errors"
	"testing"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}

	ctx, done := p.StartOperation(context.Background(), "create_campaign")
	if ctx == nil {
		t.Fatal("expected a context back")
	}
	done(errors.New("boom")) // must not panic

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown of disabled provider: %v", err)
	}
}

func TestNilProviderIsSafe(t *testing.T) {
	var p *Provider

	ctx, done := p.StartOperation(context.Background(), "donate")
	if ctx == nil {
		t.Fatal("expected a context back")
	}
	done(nil)

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Enabled {
		t.Fatal("telemetry must be opt-in")
	}
	if cfg.ServiceName == "" || cfg.OTLPEndpoint == "" {
		t.Fatal("defaults must be populated")
	}
}
