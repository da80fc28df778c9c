package gateway

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestVerifyAndParseWebhook(t *testing.T) {
	cfg := &Config{WebhookSecret: "whsec_test"}
	body := []byte(`{"event":"charge.success","data":{"id":"evt_1","reference":"ORDER-501-1700000000000-abc","amount":10000,"currency":"usd","paid_at":"2026-08-01T10:00:00Z"}}`)
	headers := map[string]string{
		"x-provider-signature": ComputeSignature(cfg.WebhookSecret, body),
	}

	event, err := VerifyAndParseWebhook(cfg, headers, body)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if event.EventType != EventChargeSuccess {
		t.Fatalf("expected charge.success, got %s", event.EventType)
	}
	if event.Reference != "ORDER-501-1700000000000-abc" {
		t.Fatalf("unexpected reference: %s", event.Reference)
	}
	if event.Amount != "10000" {
		t.Fatalf("unexpected amount: %s", event.Amount)
	}
	if event.Currency != "USD" {
		t.Fatalf("unexpected currency: %s", event.Currency)
	}
	if event.PaidAt == nil || !event.PaidAt.Equal(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected paid_at: %v", event.PaidAt)
	}
}

func TestVerifyAndParseWebhookRejectsBadSignature(t *testing.T) {
	cfg := &Config{WebhookSecret: "whsec_test"}
	body := []byte(`{"event":"charge.success","data":{"reference":"ORDER-1-1-a"}}`)

	cases := map[string]map[string]string{
		"missing header": {},
		"wrong secret":   {SignatureHeader: ComputeSignature("other_secret", body)},
		"garbage value":  {SignatureHeader: "deadbeef"},
	}
	for name, headers := range cases {
		if _, err := VerifyAndParseWebhook(cfg, headers, body); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("%s: expected ErrSignatureInvalid, got %v", name, err)
		}
	}
}

func TestVerifyAndParseWebhookTamperedBody(t *testing.T) {
	cfg := &Config{WebhookSecret: "whsec_test"}
	body := []byte(`{"event":"charge.success","data":{"reference":"ORDER-1-1-a","amount":100}}`)
	headers := map[string]string{SignatureHeader: ComputeSignature(cfg.WebhookSecret, body)}

	tampered := []byte(strings.Replace(string(body), "100", "999", 1))
	if _, err := VerifyAndParseWebhook(cfg, headers, tampered); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for tampered body, got %v", err)
	}
}

func TestBuildAndParseReference(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	reference := BuildReference(501, now)
	if !strings.HasPrefix(reference, "ORDER-501-1700000000000-") {
		t.Fatalf("unexpected reference format: %s", reference)
	}

	orderID, err := ParseReference(reference)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if orderID != 501 {
		t.Fatalf("expected order 501, got %d", orderID)
	}
}

func TestParseReferenceInvalid(t *testing.T) {
	cases := []string{
		"",
		"ORDER-501",
		"INVOICE-501-1700000000000-abc",
		"ORDER-0-1700000000000-abc",
		"ORDER-abc-1700000000000-abc",
		"ORDER-501-notatime-abc",
	}
	for _, raw := range cases {
		if _, err := ParseReference(raw); !errors.Is(err, ErrReferenceInvalid) {
			t.Fatalf("%q: expected ErrReferenceInvalid, got %v", raw, err)
		}
	}
}
