package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/enroll"
	"github.com/xraph/enroll/gateway"
)

const testSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := New(Config{APIKey: "sk_test_key", WebhookSecret: testSecret})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func eventJSON(eventType, sessionID, paymentStatus string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"api_version": "2024-06-20",
		"type": %q,
		"data": {"object": {"id": %q, "object": "checkout.session", "payment_status": %q}}
	}`, eventType, sessionID, paymentStatus))
}

func TestVerifyAndParse_Succeeded(t *testing.T) {
	g := newTestGateway(t)
	payload := eventJSON("checkout.session.completed", "cs_test_123", "paid")
	headers := map[string]string{"Stripe-Signature": signPayload(t, payload, testSecret)}

	n, err := g.VerifyAndParse(payload, headers)
	if err != nil {
		t.Fatalf("VerifyAndParse: %v", err)
	}
	if n == nil {
		t.Fatal("expected notification, got nil")
	}
	if n.CorrelationID != "cs_test_123" {
		t.Errorf("correlation id = %q, want cs_test_123", n.CorrelationID)
	}
	if n.Outcome != gateway.OutcomeSucceeded {
		t.Errorf("outcome = %q, want succeeded", n.Outcome)
	}
}

func TestVerifyAndParse_Failed(t *testing.T) {
	for _, typ := range []string{"checkout.session.expired", "checkout.session.async_payment_failed"} {
		payload := eventJSON(typ, "cs_test_456", "unpaid")
		g := newTestGateway(t)
		headers := map[string]string{"Stripe-Signature": signPayload(t, payload, testSecret)}

		n, err := g.VerifyAndParse(payload, headers)
		if err != nil {
			t.Fatalf("%s: VerifyAndParse: %v", typ, err)
		}
		if n == nil || n.Outcome != gateway.OutcomeFailed {
			t.Errorf("%s: expected failed notification, got %+v", typ, n)
		}
	}
}

func TestVerifyAndParse_BadSignature(t *testing.T) {
	g := newTestGateway(t)
	payload := eventJSON("checkout.session.completed", "cs_test_789", "paid")
	headers := map[string]string{"Stripe-Signature": signPayload(t, payload, "whsec_wrong")}

	_, err := g.VerifyAndParse(payload, headers)
	if !errors.Is(err, enroll.ErrUnauthenticatedNotification) {
		t.Fatalf("expected ErrUnauthenticatedNotification, got %v", err)
	}
}

func TestVerifyAndParse_MissingSignature(t *testing.T) {
	g := newTestGateway(t)
	payload := eventJSON("checkout.session.completed", "cs_test_789", "paid")

	_, err := g.VerifyAndParse(payload, map[string]string{})
	if !errors.Is(err, enroll.ErrUnauthenticatedNotification) {
		t.Fatalf("expected ErrUnauthenticatedNotification, got %v", err)
	}
}

func TestVerifyAndParse_IgnoredEventType(t *testing.T) {
	g := newTestGateway(t)
	payload := eventJSON("payment_intent.created", "cs_test_111", "unpaid")
	headers := map[string]string{"Stripe-Signature": signPayload(t, payload, testSecret)}

	n, err := g.VerifyAndParse(payload, headers)
	if err != nil {
		t.Fatalf("VerifyAndParse: %v", err)
	}
	if n != nil {
		t.Fatalf("expected nil notification for ignored event, got %+v", n)
	}
}

func TestVerifyAndParse_CompletedButUnpaid(t *testing.T) {
	g := newTestGateway(t)
	payload := eventJSON("checkout.session.completed", "cs_test_222", "unpaid")
	headers := map[string]string{"Stripe-Signature": signPayload(t, payload, testSecret)}

	n, err := g.VerifyAndParse(payload, headers)
	if err != nil {
		t.Fatalf("VerifyAndParse: %v", err)
	}
	if n != nil {
		t.Fatalf("expected nil notification for unpaid completion, got %+v", n)
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(Config{WebhookSecret: "x"}); !errors.Is(err, enroll.ErrInvalidInput) {
		t.Errorf("missing api key: got %v", err)
	}
	if _, err := New(Config{APIKey: "x"}); !errors.Is(err, enroll.ErrInvalidInput) {
		t.Errorf("missing webhook secret: got %v", err)
	}
}
