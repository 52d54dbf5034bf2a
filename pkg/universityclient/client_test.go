package universityclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNotifyFeePaid_SendsAuthorizedRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody FeePaidRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	err := client.NotifyFeePaid(context.Background(), FeePaidRequest{
		StudentID:     "7f6c9a2e-0000-0000-0000-000000000001",
		ApplicationID: "7f6c9a2e-0000-0000-0000-000000000002",
		FeeCategory:   "scholarship",
		Amount:        60000,
		PaidAt:        "2026-08-27T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("NotifyFeePaid failed: %v", err)
	}

	if gotPath != "/v1/enrollments/fee-paid" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected authorization header %q", gotAuth)
	}
	if gotBody.FeeCategory != "scholarship" || gotBody.Amount != 60000 {
		t.Errorf("unexpected payload: %+v", gotBody)
	}
}

func TestNotifyFeePaid_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "enrollment not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	err := client.NotifyFeePaid(context.Background(), FeePaidRequest{FeeCategory: "application"})
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected the status code in the error, got %v", err)
	}
}
