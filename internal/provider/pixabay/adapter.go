package pixabay

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

const defaultBaseURL = "https://pixabay.com/api"

// Config holds the pixabay adapter configuration. An API key is required.
type Config struct {
	APIKey     string
	BaseURL    string
	Categories []string
	RPS        float64
	Timeout    time.Duration
}

// Adapter implements the provider.Provider interface for Pixabay.
type Adapter struct {
	client  *resty.Client
	limiter *rate.Limiter
	cfg     Config
}

// New creates a new pixabay adapter.
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
	return domain.SourcePixabay
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
	Hits []struct {
		ID            int64  `json:"id"`
		PageURL       string `json:"pageURL"`
		Tags          string `json:"tags"`
		PreviewURL    string `json:"previewURL"`
		WebformatURL  string `json:"webformatURL"`
		LargeImageURL string `json:"largeImageURL"`
		ImageWidth    int    `json:"imageWidth"`
		ImageHeight   int    `json:"imageHeight"`
		Likes         int64  `json:"likes"`
		Downloads     int64  `json:"downloads"`
		User          string `json:"user"`
	} `json:"hits"`
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
			"key":         a.cfg.APIKey,
			"q":           query,
			"category":    category,
			"image_type":  "photo",
			"orientation": "vertical",
			"safesearch":  "true",
			"per_page":    "30",
			"page":        strconv.Itoa(page),
		}).
		Get("/")
	if err != nil {
		return nil, fmt.Errorf("pixabay search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &provider.StatusError{Source: domain.SourcePixabay, StatusCode: resp.StatusCode()}
	}

	records := make([]provider.Record, 0, len(out.Hits))
	for _, h := range out.Hits {
		if h.ID == 0 || h.LargeImageURL == "" {
			continue
		}
		tags := strings.Split(h.Tags, ",")
		tags = append(tags, category)
		records = append(records, provider.Record{
			SourceID: strconv.FormatInt(h.ID, 10),
			URLs: provider.URLSet{
				Thumb:    h.PreviewURL,
				Preview:  h.WebformatURL,
				Full:     h.LargeImageURL,
				Original: h.LargeImageURL,
			},
			Width:       h.ImageWidth,
			Height:      h.ImageHeight,
			Category:    domain.NormalizeKey(category),
			Tags:        domain.NormalizeTags(tags),
			Attribution: fmt.Sprintf("%s / Pixabay", h.User),
			Likes:       h.Likes,
			Downloads:   h.Downloads,
		})
	}
	return records, nil
}
