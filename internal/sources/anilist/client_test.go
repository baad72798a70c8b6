package anilist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shiori/internal/services"
	"shiori/internal/sources"
)

func newTestHTTPClient() *sources.Client {
	return sources.NewClient(sources.ClientOptions{
		RatePerMinute: 6000,
		MaxAttempts:   1,
	})
}

func TestFetchPagesUntilExhausted(t *testing.T) {
	var requests []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		requests = append(requests, req.Variables)

		page := int(req.Variables["page"].(float64))
		hasNext := page == 1
		episode := page
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"Page": map[string]any{
					"pageInfo": map[string]any{"hasNextPage": hasNext},
					"airingSchedules": []map[string]any{{
						"airingAt": 1700000000 + int64(page),
						"episode":  episode,
						"media": map[string]any{
							"id":      101,
							"type":    "ANIME",
							"siteUrl": "https://anilist.co/anime/101",
							"title":   map[string]any{"romaji": "Test Show"},
						},
					}},
				},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, 50, newTestHTTPClient())
	items, cursor, err := client.Fetch(context.Background(), "1699999999")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 page requests, got %d", len(requests))
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first, ok := items[0].(Item)
	if !ok {
		t.Fatalf("expected anilist.Item, got %T", items[0])
	}
	if first.TitleRomaji != "Test Show" || first.Episode != 1 {
		t.Fatalf("unexpected item: %+v", first)
	}
	if cursor != "1700000002" {
		t.Fatalf("expected cursor of latest airing, got %q", cursor)
	}
}

func TestFetchUsesCursorAsWindow(t *testing.T) {
	var airedSince float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		airedSince = req.Variables["airedSince"].(float64)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"Page": map[string]any{
				"pageInfo":        map[string]any{"hasNextPage": false},
				"airingSchedules": []map[string]any{},
			}},
		})
	}))
	defer server.Close()

	client := New(server.URL, 50, newTestHTTPClient())
	_, cursor, err := client.Fetch(context.Background(), "1700000000")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if int64(airedSince) != 1700000000 {
		t.Fatalf("expected cursor forwarded as airedSince, got %v", airedSince)
	}
	if cursor != "1700000000" {
		t.Fatalf("empty fetch must keep cursor, got %q", cursor)
	}
}

func TestFetchEmptyCursorDefaultsToDayWindow(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	var airedSince float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		airedSince = req.Variables["airedSince"].(float64)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"Page": map[string]any{
				"pageInfo":        map[string]any{"hasNextPage": false},
				"airingSchedules": []map[string]any{},
			}},
		})
	}))
	defer server.Close()

	client := New(server.URL, 50, newTestHTTPClient(), WithNow(func() time.Time { return now }))
	if _, _, err := client.Fetch(context.Background(), ""); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if int64(airedSince) != now.Add(-24*time.Hour).Unix() {
		t.Fatalf("expected 24h window, got %v", airedSince)
	}
}

func TestFetchGraphQLErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "rate limited query complexity"}},
		})
	}))
	defer server.Close()

	client := New(server.URL, 50, newTestHTTPClient())
	_, _, err := client.Fetch(context.Background(), "1700000000")
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
