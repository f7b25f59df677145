package requestid

import (
	"context"
	"testing"
)

func TestFromContext_EmptyWhenUnset(t *testing.T) {
	if got := FromContext(context.Background()); got != "" {
		t.Errorf("expected empty string for a bare context, got %q", got)
	}
}

func TestWithRequestID_RoundTrips(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc-123")
	if got := FromContext(ctx); got != "abc-123" {
		t.Errorf("expected %q, got %q", "abc-123", got)
	}
}

func TestNew_GeneratesNonEmptyUniqueID(t *testing.T) {
	ctx1 := New(context.Background())
	ctx2 := New(context.Background())

	id1 := FromContext(ctx1)
	id2 := FromContext(ctx2)

	if id1 == "" {
		t.Fatal("expected a non-empty generated request ID")
	}
	if id1 == id2 {
		t.Error("expected two calls to New to generate distinct IDs")
	}
}
