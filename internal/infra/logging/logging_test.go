//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithAttachesContextFields(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	ctx := WithTraceID(context.Background(), "t-1")
	ctx = WithChannelID(ctx, "42")
	ctx = WithInstanceID(ctx, 1101)
	ctx = WithDeliveryID(ctx, "01HX")

	// Act
	With(ctx, &base).Info().Msg("hello")

	// Assert
	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if got["trace_id"] != "t-1" || got["channel_id"] != "42" || got["delivery_id"] != "01HX" {
		t.Errorf("missing string fields: %v", got)
	}
	if got["instance_id"] != float64(1101) {
		t.Errorf("expected instance_id 1101, got %v", got["instance_id"])
	}
	if TraceID(ctx) != "t-1" || DeliveryID(ctx) != "01HX" {
		t.Error("accessors did not return stored ids")
	}
}

func TestRedact(t *testing.T) {
	testCases := []struct {
		in   string
		dev  bool
		want string
	}{
		{"short", false, "***"},
		{"abcdefghijkl", false, "abcd...kl"},
		{"abcdefghijkl", true, "abcdefghijkl"},
	}
	for _, tc := range testCases {
		if got := Redact(tc.in, tc.dev); got != tc.want {
			t.Errorf("Redact(%q, %v) = %q, want %q", tc.in, tc.dev, got, tc.want)
		}
	}
}
