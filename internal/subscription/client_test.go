package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchStatusSendsBearer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"active","plan":"pro","limits":{"is_unlimited":true}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	status := client.FetchStatus(context.Background(), "token-123")
	if status == nil {
		t.Fatal("Expected status, got nil")
	}
	if gotAuth != "Bearer token-123" {
		t.Errorf("Expected bearer header, got %q", gotAuth)
	}
	if status.Status != StateActive {
		t.Errorf("Expected active status, got %q", status.Status)
	}
	if !status.Limits.IsUnlimited {
		t.Error("Expected unlimited limits")
	}
}

func TestFetchStatusNoToken(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if status := client.FetchStatus(context.Background(), ""); status != nil {
		t.Errorf("Expected nil status without token, got %+v", status)
	}
	if called {
		t.Error("Expected no request without a token")
	}
}

func TestFetchStatusNoBaseURL(t *testing.T) {
	client := NewClient("")
	if status := client.FetchStatus(context.Background(), "token"); status != nil {
		t.Errorf("Expected nil status without base URL, got %+v", status)
	}
}

func TestFetchStatusNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if status := client.FetchStatus(context.Background(), "token"); status != nil {
		t.Errorf("Expected nil status on 502, got %+v", status)
	}
}

func TestFetchStatusNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)
	if status := client.FetchStatus(context.Background(), "token"); status != nil {
		t.Errorf("Expected nil status on connection failure, got %+v", status)
	}
}

func TestFetchStatusBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if status := client.FetchStatus(context.Background(), "token"); status != nil {
		t.Errorf("Expected nil status on decode failure, got %+v", status)
	}
}
