package tdc

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pharmkit-ai/platform/pkg/common/httpclient"
	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
)

// DefaultFiles maps each ADME benchmark endpoint to its repository file ID.
var DefaultFiles = map[string]int{
	models.EndpointClearance:       6358080,
	models.EndpointHalfLife:        6358082,
	models.EndpointBioavailability: 6358078,
	models.EndpointProteinBinding:  6358084,
}

var zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// Client downloads benchmark datasets from the Dataverse file API. Files
// arrive either as plain CSV/TSV or zipped; the payload is sniffed, not
// trusted from headers.
type Client struct {
	http    *http.Client
	baseURL string
	files   map[string]int
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    httpclient.New(timeout),
		baseURL: baseURL,
		files:   DefaultFiles,
	}
}

// FetchEndpoint downloads and parses one benchmark dataset into raw records.
func (c *Client) FetchEndpoint(ctx context.Context, endpoint string) ([]models.RawRecord, error) {
	fileID, ok := c.files[endpoint]
	if !ok {
		return nil, fmt.Errorf("unknown benchmark endpoint %s", endpoint)
	}

	data, err := c.download(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", endpoint, err)
	}

	if bytes.HasPrefix(data, zipMagic) {
		data, err = extractTabular(data)
		if err != nil {
			return nil, fmt.Errorf("extracting %s archive: %w", endpoint, err)
		}
	}

	records, err := parseTabular(data, endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", endpoint, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"records":  len(records),
	}).Info("benchmark dataset fetched")

	return records, nil
}

func (c *Client) download(ctx context.Context, fileID int) ([]byte, error) {
	url := c.baseURL + "/" + strconv.Itoa(fileID)

	var data []byte
	err := httpclient.Retry(ctx, 3, 500*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		data, err = io.ReadAll(resp.Body)
		return err
	})
	return data, err
}

// extractTabular pulls the first CSV or TSV entry out of a zip payload.
func extractTabular(data []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for _, file := range reader.File {
		name := strings.ToLower(file.Name)
		if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".tsv") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("no tabular file in archive")
}

// parseTabular reads a delimited payload into raw records keyed by the
// header row. Tab delimiting is detected from the header.
func parseTabular(data []byte, endpoint string) ([]models.RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	if i := bytes.IndexByte(data, '\n'); i > 0 && bytes.ContainsRune(data[:i], '\t') {
		reader.Comma = '\t'
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var records []models.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		fields := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			fields[strings.TrimSpace(col)] = row[i]
		}
		records = append(records, models.RawRecord{Source: "tdc-" + endpoint, Fields: fields})
	}

	return records, nil
}
