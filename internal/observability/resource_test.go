package observability

import "testing"

func TestServiceNameDefaultAndOverride(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	if got := ServiceName(); got != "vector-core" {
		t.Fatalf("expected default service name %q, got %q", "vector-core", got)
	}

	t.Setenv("OTEL_SERVICE_NAME", "calc-edge")
	if got := ServiceName(); got != "calc-edge" {
		t.Fatalf("expected service name %q, got %q", "calc-edge", got)
	}
}
