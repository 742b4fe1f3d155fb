package pexels

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/provider"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.pexels.com/v1"

// Config holds the pexels adapter configuration. An API key is required and
// sent via the Authorization header.
type Config struct {
	APIKey     string
	BaseURL    string
	Categories []string
	RPS        float64
	Timeout    time.Duration
}

// Adapter implements the provider.Provider interface for Pexels.
type Adapter struct {
	client  *resty.Client
	limiter *rate.Limiter
	cfg     Config
}

// New creates a new pexels adapter.
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
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", cfg.APIKey)

	return &Adapter{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		cfg:     cfg,
	}
}

// Source returns the provider identifier.
func (a *Adapter) Source() domain.Source {
	return domain.SourcePexels
}

// Configured reports whether the API key is present.
func (a *Adapter) Configured() bool {
	return a.cfg.APIKey != ""
}

// Categories returns the category/query plan for one sync run.
func (a *Adapter) Categories() []string {
	return a.cfg.Categories
}

type searchResponse struct {
	Photos []struct {
		ID           int64  `json:"id"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		URL          string `json:"url"`
		Photographer string `json:"photographer"`
		Alt          string `json:"alt"`
		Src          struct {
			Original string `json:"original"`
			Large2x  string `json:"large2x"`
			Large    string `json:"large"`
			Medium   string `json:"medium"`
			Tiny     string `json:"tiny"`
		} `json:"src"`
	} `json:"photos"`
}

// Search fetches one page of search results.
func (a *Adapter) Search(ctx context.Context, query, category string, page int) ([]provider.Record, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var out searchResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParams(map[string]string{
			"query":       query,
			"orientation": "portrait",
			"per_page":    "30",
			"page":        strconv.Itoa(page),
		}).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("pexels search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &provider.StatusError{Source: domain.SourcePexels, StatusCode: resp.StatusCode()}
	}

	records := make([]provider.Record, 0, len(out.Photos))
	for _, p := range out.Photos {
		if p.ID == 0 || p.Src.Original == "" {
			continue
		}
		// Pexels search results carry no tag list; derive from the alt text.
		tags := strings.Fields(p.Alt)
		tags = append(tags, query, category)
		records = append(records, provider.Record{
			SourceID: strconv.FormatInt(p.ID, 10),
			URLs: provider.URLSet{
				Thumb:    p.Src.Tiny,
				Preview:  p.Src.Large,
				Full:     p.Src.Large2x,
				Original: p.Src.Original,
			},
			Width:       p.Width,
			Height:      p.Height,
			Category:    domain.NormalizeKey(category),
			Tags:        domain.NormalizeTags(tags),
			Attribution: fmt.Sprintf("%s / Pexels", p.Photographer),
		})
	}
	return records, nil
}
