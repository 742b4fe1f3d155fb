package wallhaven

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/provider"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://wallhaven.cc/api/v1"

// Config holds the wallhaven adapter configuration. The API key is optional;
// the public search endpoint works without one.
type Config struct {
	APIKey     string
	BaseURL    string
	Categories []string
	RPS        float64
	Timeout    time.Duration
}

// Adapter implements the provider.Provider interface for wallhaven.cc.
type Adapter struct {
	client  *resty.Client
	limiter *rate.Limiter
	cfg     Config
}

// New creates a new wallhaven adapter.
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Adapter{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		cfg:     cfg,
	}
}

// Source returns the provider identifier.
func (a *Adapter) Source() domain.Source {
	return domain.SourceWallhaven
}

// Configured always reports true; wallhaven needs no credential for search.
func (a *Adapter) Configured() bool {
	return true
}

// Categories returns the category/query plan for one sync run.
func (a *Adapter) Categories() []string {
	return a.cfg.Categories
}

type searchResponse struct {
	Data []struct {
		ID         string `json:"id"`
		ShortURL   string `json:"short_url"`
		Favorites  int64  `json:"favorites"`
		DimensionX int    `json:"dimension_x"`
		DimensionY int    `json:"dimension_y"`
		Path       string `json:"path"`
		Thumbs     struct {
			Large    string `json:"large"`
			Original string `json:"original"`
			Small    string `json:"small"`
		} `json:"thumbs"`
	} `json:"data"`
}

// Search fetches one page of search results.
func (a *Adapter) Search(ctx context.Context, query, category string, page int) ([]provider.Record, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var out searchResponse
	req := a.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParams(map[string]string{
			"q":       query,
			"sorting": "toplist",
			"purity":  "100", // sfw only
			"page":    strconv.Itoa(page),
		})
	if a.cfg.APIKey != "" {
		req.SetQueryParam("apikey", a.cfg.APIKey)
	}

	resp, err := req.Get("/search")
	if err != nil {
		return nil, fmt.Errorf("wallhaven search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &provider.StatusError{Source: domain.SourceWallhaven, StatusCode: resp.StatusCode()}
	}

	records := make([]provider.Record, 0, len(out.Data))
	for _, w := range out.Data {
		if w.ID == "" || w.Path == "" {
			continue
		}
		records = append(records, provider.Record{
			SourceID: w.ID,
			URLs: provider.URLSet{
				Thumb:    w.Thumbs.Small,
				Preview:  w.Thumbs.Large,
				Full:     w.Path,
				Original: w.Path,
			},
			Width:       w.DimensionX,
			Height:      w.DimensionY,
			Category:    domain.NormalizeKey(category),
			Tags:        domain.NormalizeTags([]string{query, category}),
			Attribution: fmt.Sprintf("wallhaven.cc (%s)", w.ShortURL),
			Likes:       w.Favorites,
		})
	}
	return records, nil
}
