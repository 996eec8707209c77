package webhook

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	enroll "github.com/xraph/enroll"
)

type fakeEngine struct {
	gatewayErr  error
	identityErr error

	gotPayload []byte
	gotHeaders map[string]string
}

func (f *fakeEngine) HandleGatewayNotification(_ context.Context, payload []byte, headers map[string]string) error {
	f.gotPayload = payload
	f.gotHeaders = headers
	return f.gatewayErr
}

func (f *fakeEngine) HandleIdentityNotification(_ context.Context, payload []byte, headers map[string]string) error {
	f.gotPayload = payload
	f.gotHeaders = headers
	return f.identityErr
}

func post(t *testing.T, handler http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGatewayHandler_PassesRawBodyAndHeaders(t *testing.T) {
	fake := &fakeEngine{}
	h := New(fake)

	body := `{"id":"evt_1","type":"checkout.session.completed"}`
	rec := post(t, h.Gateway(), body, map[string]string{
		"Stripe-Signature": "t=123,v1=abc",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if string(fake.gotPayload) != body {
		t.Errorf("payload altered before reaching the engine: %q", fake.gotPayload)
	}
	if fake.gotHeaders["Stripe-Signature"] != "t=123,v1=abc" {
		t.Errorf("signature header missing: %v", fake.gotHeaders)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"unauthenticated", fmt.Errorf("verify: %w", enroll.ErrUnauthenticatedNotification), http.StatusUnauthorized},
		{"unknown purchase", fmt.Errorf("lookup: %w", enroll.ErrUnknownPurchase), http.StatusOK},
		{"unknown user", fmt.Errorf("lookup: %w", enroll.ErrUserNotFound), http.StatusNotFound},
		{"terminal conflict acknowledged", fmt.Errorf("reconcile: %w", enroll.ErrTerminalStateConflict), http.StatusOK},
		{"already enrolled acknowledged", enroll.ErrAlreadyEnrolled, http.StatusOK},
		{"store failure", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEngine{gatewayErr: tt.err}
			rec := post(t, New(fake).Gateway(), "{}", nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestIdentityHandler_Unauthenticated(t *testing.T) {
	fake := &fakeEngine{identityErr: fmt.Errorf("bad sig: %w", enroll.ErrUnauthenticatedNotification)}
	rec := post(t, New(fake).Identity(), `{"type":"user.created"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	fake := &fakeEngine{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	New(fake).Gateway().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if fake.gotPayload != nil {
		t.Error("engine invoked on GET")
	}
}

func TestMount(t *testing.T) {
	fake := &fakeEngine{}
	mux := http.NewServeMux()
	New(fake).Mount(mux)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
