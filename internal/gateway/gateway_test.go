package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendText(t *testing.T) {
	var got sendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/send-text" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "secret-token")
	if err := c.SendText(context.Background(), "5511999999999", "✅ Despesa registrada"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got.Phone != "5511999999999" || got.Message != "✅ Despesa registrada" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if auth != "Bearer secret-token" {
		t.Fatalf("unexpected auth header: %q", auth)
	}
}

func TestSendTextFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "secret-token")
	if err := c.SendText(context.Background(), "5511999999999", "oi"); err == nil {
		t.Fatal("expected an error on 502")
	}
}
