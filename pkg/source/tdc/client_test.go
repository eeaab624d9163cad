package tdc

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
)

func init() {
	logger.Init()
}

const clearanceCSV = "Drug_ID,Drug,Y\nTerbinafine,CC(C)(C)C#CC=CCN(C)Cc1cccc2ccccc12,110\nCaffeine,Cn1cnc2c1c(=O)n(C)c(=O)n2C,4.9\n"

func TestFetchEndpointPlainCSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(clearanceCSV))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	records, err := client.FetchEndpoint(context.Background(), models.EndpointClearance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Fields["Drug_ID"] != "Terbinafine" {
		t.Fatalf("expected Drug_ID preserved, got %v", records[0].Fields)
	}
	if records[0].Source != "tdc-clearance" {
		t.Fatalf("expected source tdc-clearance, got %q", records[0].Source)
	}
}

func TestFetchEndpointZippedPayload(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("half_life_obach.csv")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	f.Write([]byte(clearanceCSV))
	zw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	records, err := client.FetchEndpoint(context.Background(), models.EndpointHalfLife)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records from zipped csv, got %d", len(records))
	}
}

func TestFetchEndpointTabDelimited(t *testing.T) {
	tsv := "Drug_ID\tDrug\tY\nEthanol\tCCO\t1.1\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tsv))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	records, err := client.FetchEndpoint(context.Background(), models.EndpointBioavailability)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Fields["Drug"] != "CCO" {
		t.Fatalf("expected tab-delimited parse, got %v", records[0].Fields)
	}
}

func TestFetchEndpointUnknown(t *testing.T) {
	client := NewClient("http://localhost:0", 0)
	if _, err := client.FetchEndpoint(context.Background(), "solubility"); err == nil {
		t.Fatal("expected error for unknown endpoint")
	}
}
