package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxTimestampSkew bounds how old a notification timestamp may be
// before it is rejected as a possible replay.
const maxTimestampSkew = 5 * time.Minute

var (
	// ErrUnauthenticated marks a payload that failed signature
	// verification. Nothing in it may be trusted.
	ErrUnauthenticated = errors.New("identity: notification failed signature verification")

	// ErrInvalidSecret marks an unusable endpoint signing secret.
	ErrInvalidSecret = errors.New("identity: invalid signing secret")
)

// Verifier authenticates raw provider payloads against the endpoint
// signing secret before any decoding happens.
type Verifier struct {
	key []byte
	now func() time.Time
}

// NewVerifier builds a verifier from the provider's endpoint secret.
// The secret carries a "whsec_" prefix over a base64 key.
func NewVerifier(secret string) (*Verifier, error) {
	raw := strings.TrimPrefix(secret, "whsec_")
	if raw == "" {
		return nil, fmt.Errorf("identity: empty signing secret: %w", ErrInvalidSecret)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("identity: decode signing secret: %w", ErrInvalidSecret)
	}
	return &Verifier{key: key, now: time.Now}, nil
}

// VerifyAndParse authenticates a raw payload with the provider's
// headers (message id, timestamp, signature) and decodes the event.
// Verification failure carries ErrUnauthenticated; nothing
// in the payload is trusted before the signature check passes.
func (v *Verifier) VerifyAndParse(payload []byte, headers map[string]string) (*Event, error) {
	msgID := headers["Svix-Id"]
	timestamp := headers["Svix-Timestamp"]
	signatures := headers["Svix-Signature"]
	if msgID == "" || timestamp == "" || signatures == "" {
		return nil, fmt.Errorf("identity: missing signature headers: %w", ErrUnauthenticated)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("identity: malformed timestamp: %w", ErrUnauthenticated)
	}
	age := v.now().Sub(time.Unix(ts, 0))
	if age > maxTimestampSkew || age < -maxTimestampSkew {
		return nil, fmt.Errorf("identity: timestamp outside tolerance: %w", ErrUnauthenticated)
	}

	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.%s", msgID, timestamp, payload)
	expected := mac.Sum(nil)

	// The header may carry several space-separated versioned signatures
	// during secret rotation; any v1 match authenticates the payload.
	for _, sig := range strings.Fields(signatures) {
		version, value, ok := strings.Cut(sig, ",")
		if !ok || version != "v1" {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return decodeEvent(payload)
		}
	}
	return nil, fmt.Errorf("identity: signature mismatch: %w", ErrUnauthenticated)
}
