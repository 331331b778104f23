package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(ctx, endpoint, "test-service", false)
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
			t.Fatal("providers should all be non-nil")
		}
		if err := providers.Shutdown(ctx); err != nil {
			t.Errorf("shutdown should be no-op for empty endpoint, got error: %v", err)
		}
	}
}

func TestNewProviders_InvalidURL(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"://invalid", "http://[invalid", "http://"} {
		if _, err := NewProviders(ctx, endpoint, "test-service", false); err == nil {
			t.Errorf("NewProviders(%q) should return error", endpoint)
		}
	}
}

func TestParseEndpoint(t *testing.T) {
	testCases := []struct {
		endpoint     string
		wantTarget   string
		wantInsecure bool
	}{
		{"localhost:4317", "localhost:4317", true},
		{"http://collector:4317", "collector:4317", true},
		{"https://collector:4317", "collector:4317", false},
		{"http://collector:4317/v1/traces", "collector:4317", true},
	}
	for _, tc := range testCases {
		t.Run(tc.endpoint, func(t *testing.T) {
			target, insecure, err := parseEndpoint(tc.endpoint)
			if err != nil {
				t.Fatalf("parseEndpoint: %v", err)
			}
			if target != tc.wantTarget {
				t.Errorf("target = %q, want %q", target, tc.wantTarget)
			}
			if insecure != tc.wantInsecure {
				t.Errorf("insecure = %v, want %v", insecure, tc.wantInsecure)
			}
		})
	}
}

func TestSetGlobal_WithProviders(t *testing.T) {
	providers, err := NewProviders(context.Background(), "", "test-service", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	oldTracerProvider := otel.GetTracerProvider()
	providers.SetGlobal()
	if otel.GetTracerProvider() == oldTracerProvider {
		t.Error("TracerProvider should be updated")
	}
	if otel.GetMeterProvider() != providers.MeterProvider {
		t.Error("MeterProvider should be the configured provider")
	}
}
