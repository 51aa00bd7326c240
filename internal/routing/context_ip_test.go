package routing

import (
	"context"
	"testing"
)

func TestClientIPRoundTrip(t *testing.T) {
	ctx := WithClientIP(context.Background(), "203.0.113.7")
	if got := ClientIPFromContext(ctx); got != "203.0.113.7" {
		t.Fatalf("expected ip, got %q", got)
	}
	if got := ClientIPFromContext(WithClientIP(context.Background(), "")); got != "" {
		t.Fatalf("expected empty ip, got %q", got)
	}
}
