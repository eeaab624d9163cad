package pkdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
)

func init() {
	logger.Init()
}

func pageResponse(page, lastPage int, rows []map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"current_page": page,
		"last_page":    lastPage,
		"data": map[string]interface{}{
			"count": len(rows),
			"data":  rows,
		},
	}
}

func TestFetchGroupsWalksAllPages(t *testing.T) {
	pages := map[string][]map[string]interface{}{
		"1": {{"study_sid": "PKDB00001", "group_pk": 1.0, "measurement_type": "age"}},
		"2": {{"study_sid": "PKDB00001", "group_pk": 2.0, "measurement_type": "weight"}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		rows, ok := pages[page]
		if !ok {
			http.Error(w, "no such page", http.StatusNotFound)
			return
		}
		pageNum := 1
		fmt.Sscanf(page, "%d", &pageNum)
		json.NewEncoder(w).Encode(pageResponse(pageNum, 2, rows))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	records, err := client.FetchGroups(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records across 2 pages, got %d", len(records))
	}
	if records[0].Source != models.SourceGroups {
		t.Fatalf("expected source %q, got %q", models.SourceGroups, records[0].Source)
	}
	if records[1].Fields["measurement_type"] != "weight" {
		t.Fatalf("expected second page record, got %v", records[1].Fields)
	}
}

func TestFetchStopsAtPageCap(t *testing.T) {
	var served int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served++
		rows := []map[string]interface{}{{"study_sid": "PKDB00001"}}
		json.NewEncoder(w).Encode(pageResponse(served, 100, rows))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, MaxPages: 3})
	records, err := client.FetchStudies(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if served != 3 {
		t.Fatalf("expected exactly 3 requests, got %d", served)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}

func TestFetchPropagatesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	if _, err := client.FetchIndividuals(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestFetchSubstanceStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathSubstanceStatistics {
			http.Error(w, "wrong path", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"substances": []map[string]interface{}{
				{"substance": "caffeine", "output_count": 120.0},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	records, err := client.FetchSubstanceStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Fields["substance"] != "caffeine" {
		t.Fatalf("expected caffeine record, got %v", records[0].Fields)
	}
}
