package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"
)

var testKey = []byte("identity-test-signing-key-123456")

func testSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString(testKey)
}

func signHeaders(t *testing.T, payload []byte, key []byte, ts time.Time) map[string]string {
	t.Helper()
	msgID := "msg_test_1"
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", msgID, timestamp, payload)
	return map[string]string{
		"Svix-Id":        msgID,
		"Svix-Timestamp": timestamp,
		"Svix-Signature": "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	}
}

const userCreatedPayload = `{
	"type": "user.created",
	"data": {
		"id": "ext_abc",
		"first_name": "Ada",
		"last_name": "Lovelace",
		"image_url": "https://img.example/ada.png",
		"email_addresses": [{"email_address": "ada@example.com"}]
	}
}`

func TestVerifyAndParse_ValidSignature(t *testing.T) {
	v, err := NewVerifier(testSecret())
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	payload := []byte(userCreatedPayload)
	ev, err := v.VerifyAndParse(payload, signHeaders(t, payload, testKey, time.Now()))
	if err != nil {
		t.Fatalf("VerifyAndParse: %v", err)
	}
	if ev.Type != EventUserCreated {
		t.Errorf("type = %q, want user.created", ev.Type)
	}
	if ev.User.ExternalID != "ext_abc" {
		t.Errorf("external id = %q, want ext_abc", ev.User.ExternalID)
	}
	if ev.User.Email != "ada@example.com" {
		t.Errorf("email = %q", ev.User.Email)
	}
	if ev.User.Name != "Ada Lovelace" {
		t.Errorf("name = %q, want Ada Lovelace", ev.User.Name)
	}
}

func TestVerifyAndParse_WrongKey(t *testing.T) {
	v, _ := NewVerifier(testSecret())
	payload := []byte(userCreatedPayload)
	headers := signHeaders(t, payload, []byte("some-other-key"), time.Now())

	_, err := v.VerifyAndParse(payload, headers)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticatedNotification, got %v", err)
	}
}

func TestVerifyAndParse_TamperedPayload(t *testing.T) {
	v, _ := NewVerifier(testSecret())
	payload := []byte(userCreatedPayload)
	headers := signHeaders(t, payload, testKey, time.Now())
	tampered := []byte(`{"type": "user.deleted", "data": {"id": "ext_abc"}}`)

	_, err := v.VerifyAndParse(tampered, headers)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticatedNotification, got %v", err)
	}
}

func TestVerifyAndParse_StaleTimestamp(t *testing.T) {
	v, _ := NewVerifier(testSecret())
	payload := []byte(userCreatedPayload)
	headers := signHeaders(t, payload, testKey, time.Now().Add(-10*time.Minute))

	_, err := v.VerifyAndParse(payload, headers)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticatedNotification, got %v", err)
	}
}

func TestVerifyAndParse_MissingHeaders(t *testing.T) {
	v, _ := NewVerifier(testSecret())
	_, err := v.VerifyAndParse([]byte(userCreatedPayload), map[string]string{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticatedNotification, got %v", err)
	}
}

func TestVerifyAndParse_SecretRotation(t *testing.T) {
	v, _ := NewVerifier(testSecret())
	payload := []byte(userCreatedPayload)
	headers := signHeaders(t, payload, testKey, time.Now())
	// Old-secret signature listed first, current one second.
	stale := signHeaders(t, payload, []byte("retired-key"), time.Now())
	headers["Svix-Signature"] = stale["Svix-Signature"] + " " + headers["Svix-Signature"]

	if _, err := v.VerifyAndParse(payload, headers); err != nil {
		t.Fatalf("VerifyAndParse with rotated secrets: %v", err)
	}
}

func TestNewVerifier_BadSecret(t *testing.T) {
	if _, err := NewVerifier(""); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("empty secret: got %v", err)
	}
	if _, err := NewVerifier("whsec_%%%not-base64%%%"); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("non-base64 secret: got %v", err)
	}
}

func TestJoinName(t *testing.T) {
	cases := []struct{ first, last, want string }{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := joinName(c.first, c.last); got != c.want {
			t.Errorf("joinName(%q, %q) = %q, want %q", c.first, c.last, got, c.want)
		}
	}
}
