package tracing

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("credit.channel", "sms"),
		attribute.String("topup.reason", "goodwill for outage"),
		attribute.String("authorization", "Bearer x"),
	)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if attrs[0].Key != "credit.channel" {
		t.Fatalf("expected credit.channel to be retained, got %s", attrs[0].Key)
	}
}

func TestSafeErrorHidesMessage(t *testing.T) {
	err := SafeError(errors.New("password=hunter2"))
	if err == nil || err.Error() != "*errors.errorString" {
		t.Fatalf("expected type-only error, got %v", err)
	}
}
