package pagerduty

import (
	"strings"
	"testing"
	"time"

	"github.com/sportwire/ingest-admin/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when routing key missing")
	}
}

func TestBuildEventDefaults(t *testing.T) {
	client, err := NewClient(Config{
		RoutingKey: "key",
		Source:     "",
		Component:  "",
		Timeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := notify.JobFailurePayload{
		JobID:      "123",
		JobType:    "deep_ingest",
		Subject:    "season:42",
		Error:      "boom",
		ErrorClass: "err_class",
	}
	event := client.buildEvent(payload)

	payloadSection, ok := event["payload"].(map[string]any)
	if !ok {
		t.Fatalf("expected payload section")
	}
	if payloadSection["severity"] != notify.SeverityCritical {
		t.Fatalf("expected default severity, got %v", payloadSection["severity"])
	}
	if payloadSection["source"] != "ingest-admin" {
		t.Fatalf("expected default source, got %v", payloadSection["source"])
	}
	if payloadSection["component"] != "ingest-admin" {
		t.Fatalf("expected default component, got %v", payloadSection["component"])
	}

	custom, ok := payloadSection["custom_details"].(map[string]any)
	if !ok {
		t.Fatalf("expected custom details")
	}

	required := []string{"job_id", "job_type", "subject", "error", "error_class"}
	for _, key := range required {
		if _, exists := custom[key]; !exists {
			t.Fatalf("expected key %s in custom details", key)
		}
	}

	summary, ok := payloadSection["summary"].(string)
	if !ok || !strings.Contains(summary, "123") {
		t.Fatalf("expected summary to mention job id, got %v", payloadSection["summary"])
	}

	if event["dedup_key"] != "deep_ingest:123" {
		t.Fatalf("unexpected dedup key: %v", event["dedup_key"])
	}
}

func TestBuildEventMetadataDoesNotOverrideCoreFields(t *testing.T) {
	client, err := NewClient(Config{RoutingKey: "key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := client.buildEvent(notify.JobFailurePayload{
		JobID:   "abc",
		JobType: "backtest",
		Error:   "real error",
		Metadata: map[string]string{
			"error":    "spoofed",
			"strategy": "gen-7",
		},
	})

	payloadSection := event["payload"].(map[string]any)
	custom := payloadSection["custom_details"].(map[string]any)
	if custom["error"] != "real error" {
		t.Fatalf("metadata must not override core fields, got %v", custom["error"])
	}
	if custom["strategy"] != "gen-7" {
		t.Fatalf("expected metadata key to pass through, got %v", custom["strategy"])
	}
}
