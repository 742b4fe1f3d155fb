package syncer

import (
	"github.com/tomoki/wallfeed/internal/config"
	"github.com/tomoki/wallfeed/internal/provider"
	"github.com/tomoki/wallfeed/internal/provider/pexels"
	"github.com/tomoki/wallfeed/internal/provider/pixabay"
	"github.com/tomoki/wallfeed/internal/provider/wallhaven"
)

// BuildProviders constructs the fallback chain from configuration. Slice
// order is the chain priority: wallhaven, then pixabay, then pexels.
// Disabled providers are left out entirely; enabled but unconfigured ones
// are skipped at sync time.
// Parameters:
//   - cfg: per-provider configuration.
//   - sync: sync tuning, supplies the per-request timeout.
// Returns:
//   - []provider.Provider: adapters in priority order.
func BuildProviders(cfg *config.ProvidersConfig, sync *config.SyncConfig) []provider.Provider {
	var chain []provider.Provider

	if cfg.Wallhaven.Enabled {
		chain = append(chain, wallhaven.New(wallhaven.Config{
			APIKey:     cfg.Wallhaven.APIKey,
			BaseURL:    cfg.Wallhaven.BaseURL,
			Categories: cfg.Wallhaven.Categories,
			RPS:        cfg.Wallhaven.RPS,
			Timeout:    sync.RequestTimeout,
		}))
	}
	if cfg.Pixabay.Enabled {
		chain = append(chain, pixabay.New(pixabay.Config{
			APIKey:     cfg.Pixabay.APIKey,
			BaseURL:    cfg.Pixabay.BaseURL,
			Categories: cfg.Pixabay.Categories,
			RPS:        cfg.Pixabay.RPS,
			Timeout:    sync.RequestTimeout,
		}))
	}
	if cfg.Pexels.Enabled {
		chain = append(chain, pexels.New(pexels.Config{
			APIKey:     cfg.Pexels.APIKey,
			BaseURL:    cfg.Pexels.BaseURL,
			Categories: cfg.Pexels.Categories,
			RPS:        cfg.Pexels.RPS,
			Timeout:    sync.RequestTimeout,
		}))
	}

	return chain
}
