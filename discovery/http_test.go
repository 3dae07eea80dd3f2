package discovery_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/discovery"
)

func TestHTTPClient_FetchPreservesRankOrder(t *testing.T) {
	var gotRegion, gotDays string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRegion = r.URL.Query().Get("region")
		gotDays = r.URL.Query().Get("days")
		json.NewEncoder(w).Encode(map[string]any{
			"keywords": []string{"first", "second", "third"},
		})
	}))
	defer srv.Close()

	client := discovery.NewHTTP(srv.URL)
	keywords, err := client.Fetch(context.Background(), "KR", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotRegion != "KR" || gotDays != "7" {
		t.Errorf("query = region %q days %q, want KR 7", gotRegion, gotDays)
	}
	want := []string{"first", "second", "third"}
	for i, kw := range want {
		if keywords[i] != kw {
			t.Fatalf("keywords = %v, want %v", keywords, want)
		}
	}
}

func TestHTTPClient_EmptyListIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"keywords": []string{}})
	}))
	defer srv.Close()

	client := discovery.NewHTTP(srv.URL)
	if _, err := client.Fetch(context.Background(), "KR", 24*time.Hour); err == nil {
		t.Fatal("Fetch returned nil error for empty keyword list")
	}
}

func TestHTTPClient_SubDayWindowRoundsUpToOneDay(t *testing.T) {
	var gotDays string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDays = r.URL.Query().Get("days")
		json.NewEncoder(w).Encode(map[string]any{"keywords": []string{"a", "b"}})
	}))
	defer srv.Close()

	client := discovery.NewHTTP(srv.URL)
	if _, err := client.Fetch(context.Background(), "US", time.Hour); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotDays != "1" {
		t.Errorf("days = %q, want 1", gotDays)
	}
}
