package pkdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pharmkit-ai/platform/pkg/common/httpclient"
	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
	"golang.org/x/oauth2/clientcredentials"
)

// Endpoint paths on the clinical study API.
const (
	pathStudies             = "/studies/analysis/"
	pathGroups              = "/groups/analysis/"
	pathIndividuals         = "/individuals/analysis/"
	pathInterventions       = "/interventions/analysis/"
	pathSubstanceStatistics = "/statistics/substances/"
)

const defaultPageSize = 1000

// Options configures the API client. Zero values fall back to anonymous
// access with unbounded paging.
type Options struct {
	BaseURL      string
	PageDelay    time.Duration
	MaxPages     int // 0 = no cap
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client pulls long-format study data from the external API. Every fetch
// walks the nested pagination envelope page by page with a politeness delay
// between requests.
type Client struct {
	http      *http.Client
	baseURL   string
	pageDelay time.Duration
	maxPages  int
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var httpClient *http.Client
	if opts.TokenURL != "" && opts.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = timeout
	} else {
		httpClient = httpclient.New(timeout)
	}

	return &Client{
		http:      httpClient,
		baseURL:   opts.BaseURL,
		pageDelay: opts.PageDelay,
		maxPages:  opts.MaxPages,
	}
}

// envelope is the API's nested pagination shape.
type envelope struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Data        struct {
		Count int                      `json:"count"`
		Data  []map[string]interface{} `json:"data"`
	} `json:"data"`
}

func (c *Client) FetchStudies(ctx context.Context) ([]models.RawRecord, error) {
	return c.fetchPaginated(ctx, pathStudies, models.SourceStudies)
}

func (c *Client) FetchGroups(ctx context.Context) ([]models.RawRecord, error) {
	return c.fetchPaginated(ctx, pathGroups, models.SourceGroups)
}

func (c *Client) FetchIndividuals(ctx context.Context) ([]models.RawRecord, error) {
	return c.fetchPaginated(ctx, pathIndividuals, models.SourceIndividuals)
}

func (c *Client) FetchInterventions(ctx context.Context) ([]models.RawRecord, error) {
	return c.fetchPaginated(ctx, pathInterventions, models.SourceInterventions)
}

// FetchSubstanceStats pulls the per-substance output statistics. The
// statistics endpoint is not paginated.
func (c *Client) FetchSubstanceStats(ctx context.Context) ([]models.RawRecord, error) {
	var payload struct {
		Substances []map[string]interface{} `json:"substances"`
	}
	if err := c.getJSON(ctx, c.baseURL+pathSubstanceStatistics, &payload); err != nil {
		return nil, fmt.Errorf("fetching substance statistics: %w", err)
	}

	records := make([]models.RawRecord, 0, len(payload.Substances))
	for _, fields := range payload.Substances {
		records = append(records, models.RawRecord{Source: models.SourceSubstanceStats, Fields: fields})
	}
	return records, nil
}

func (c *Client) fetchPaginated(ctx context.Context, path, source string) ([]models.RawRecord, error) {
	var records []models.RawRecord

	page := 1
	for {
		u, err := url.Parse(c.baseURL + path)
		if err != nil {
			return nil, fmt.Errorf("building url: %w", err)
		}
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(defaultPageSize))
		q.Set("format", "json")
		u.RawQuery = q.Encode()

		var env envelope
		if err := c.getJSON(ctx, u.String(), &env); err != nil {
			return nil, fmt.Errorf("fetching %s page %d: %w", path, page, err)
		}

		for _, fields := range env.Data.Data {
			records = append(records, models.RawRecord{Source: source, Fields: fields})
		}

		logger.Log.WithFields(map[string]interface{}{
			"source":    source,
			"page":      page,
			"last_page": env.LastPage,
			"fetched":   len(records),
		}).Debug("page fetched")

		if page >= env.LastPage {
			break
		}
		if c.maxPages > 0 && page >= c.maxPages {
			logger.Log.WithField("source", source).Warn("page cap reached before last page")
			break
		}
		page++

		if c.pageDelay > 0 {
			select {
			case <-time.After(c.pageDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return records, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	return httpclient.Retry(ctx, 3, 500*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}
