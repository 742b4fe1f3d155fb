package recommend

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomoki/wallfeed/internal/config"
	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/logger"
)

// Component weights of the personalized score.
const (
	weightAffinity   = 0.35
	weightTagSim     = 0.25
	weightPopularity = 0.20
	weightFreshness  = 0.15
	weightDiversity  = 0.05

	// interactedDampening shrinks the score of items the user has already
	// interacted with so the feed favors new material.
	interactedDampening = 0.3

	// lowAffinityThreshold marks categories the user has barely touched;
	// such items earn the diversity bonus.
	lowAffinityThreshold = 0.1

	diversityBonus = 0.5

	// similarityFloor filters near-zero matches out of Similar results.
	similarityFloor = 0.1

	// coldStartWindow is the trailing window used for the cold-start check.
	coldStartWindow = 30 * 24 * time.Hour

	// candidateLimit bounds how much of the catalog one scoring pass loads.
	candidateLimit = 500
)

// Recommendation reasons, ordered category > tags > popularity > freshness
// when components tie.
const (
	ReasonCategory = "category"
	ReasonTags     = "tags"
	ReasonPopular  = "popular"
	ReasonFresh    = "fresh"
	ReasonTrending = "trending"
	ReasonSimilar  = "similar"
)

// Recommendation is one scored catalog item.
type Recommendation struct {
	Wallpaper domain.Wallpaper `json:"wallpaper"`
	Score     float64          `json:"score"`
	Reason    string           `json:"reason"`
}

// CatalogSource supplies scoring candidates from the catalog.
type CatalogSource interface {
	AllForScoring(ctx context.Context, limit int) ([]domain.Wallpaper, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Wallpaper, error)
}

// SignalSource supplies the tracked interaction signals.
type SignalSource interface {
	Affinities(ctx context.Context) (map[string]domain.CategoryAffinity, error)
	DistinctCategoriesSince(ctx context.Context, since time.Time) (int64, error)
	RecentTags(ctx context.Context, types []domain.InteractionType, limit int) ([]string, error)
	InteractedItemIDs(ctx context.Context) (map[string]struct{}, error)
	WeeklyTop(ctx context.Context, weekNumber, limit int) ([]domain.WeeklyStat, error)
}

// Scorer ranks catalog items for the recommendation endpoints.
type Scorer struct {
	catalog CatalogSource
	signals SignalSource
	cfg     config.RecommendConfig
	log     *logger.Logger
}

// NewScorer creates a scorer over the catalog and signal sources.
func NewScorer(catalog CatalogSource, signals SignalSource, cfg config.RecommendConfig, log *logger.Logger) *Scorer {
	if cfg.MinPreferredCategories <= 0 {
		cfg.MinPreferredCategories = 2
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.RecentTagInteractions <= 0 {
		cfg.RecentTagInteractions = 20
	}
	if cfg.AffinityCeiling <= 0 {
		cfg.AffinityCeiling = 100
	}
	if cfg.LikesCeiling <= 0 {
		cfg.LikesCeiling = 1000
	}
	if cfg.DownloadsCeiling <= 0 {
		cfg.DownloadsCeiling = 500
	}
	return &Scorer{catalog: catalog, signals: signals, cfg: cfg, log: log}
}

// signalSnapshot is everything the personalized scorer needs, loaded in one
// concurrent pass.
type signalSnapshot struct {
	affinities    map[string]domain.CategoryAffinity
	preferredTags map[string]struct{}
	interacted    map[string]struct{}
	categoryCount int64
}

func (s *Scorer) loadSignals(ctx context.Context) (*signalSnapshot, error) {
	snap := &signalSnapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		affinities, err := s.signals.Affinities(gctx)
		if err != nil {
			return err
		}
		snap.affinities = affinities
		return nil
	})
	g.Go(func() error {
		count, err := s.signals.DistinctCategoriesSince(gctx, time.Now().Add(-coldStartWindow))
		if err != nil {
			return err
		}
		snap.categoryCount = count
		return nil
	})
	g.Go(func() error {
		tags, err := s.signals.RecentTags(gctx, []domain.InteractionType{
			domain.InteractionFavorite,
			domain.InteractionDownload,
			domain.InteractionSetWallpaper,
		}, s.cfg.RecentTagInteractions)
		if err != nil {
			return err
		}
		snap.preferredTags = tagSet(tags)
		return nil
	})
	g.Go(func() error {
		interacted, err := s.signals.InteractedItemIDs(gctx)
		if err != nil {
			return err
		}
		snap.interacted = interacted
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// ForYou returns the personalized feed. With too little interaction history
// it falls back to pure popularity ranking, and a failed signal load degrades
// the same way rather than failing the request.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []Recommendation: scored items, best first, capped at MaxResults.
//   - error: non-nil only when the catalog itself cannot be read.
func (s *Scorer) ForYou(ctx context.Context) ([]Recommendation, error) {
	candidates, err := s.catalog.AllForScoring(ctx, candidateLimit)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSignals(ctx)
	if err != nil {
		logger.CtxWarn(ctx, "Signal load failed, degrading to popularity ranking: %v", err)
		return s.popularityRanking(candidates), nil
	}

	if snap.categoryCount < int64(s.cfg.MinPreferredCategories) {
		logger.CtxDebug(ctx, "Cold start: %d distinct categories interacted, need %d",
			snap.categoryCount, s.cfg.MinPreferredCategories)
		return s.popularityRanking(candidates), nil
	}

	recs := make([]Recommendation, 0, len(candidates))
	for _, w := range candidates {
		score, reason := s.scoreItem(&w, snap)
		if score <= 0 {
			continue
		}
		recs = append(recs, Recommendation{Wallpaper: w, Score: score, Reason: reason})
	}

	sortByScore(recs)
	return capResults(recs, s.cfg.MaxResults), nil
}

// scoreItem computes the weighted multi-factor score of one candidate and
// the reason label of its dominant component.
func (s *Scorer) scoreItem(w *domain.Wallpaper, snap *signalSnapshot) (float64, string) {
	affinity := 0.0
	if a, ok := snap.affinities[w.Category]; ok {
		affinity = clamp01(a.Score / s.cfg.AffinityCeiling)
	}
	tagSim := jaccard(tagSet(w.Tags), snap.preferredTags)
	popularity := s.normPopularity(w)
	freshness := freshness(w.SyncedAt)

	diversity := 0.0
	if affinity < lowAffinityThreshold {
		diversity = diversityBonus
	}

	components := [4]float64{
		weightAffinity * affinity,
		weightTagSim * tagSim,
		weightPopularity * popularity,
		weightFreshness * freshness,
	}
	score := components[0] + components[1] + components[2] + components[3] + weightDiversity*diversity

	if _, seen := snap.interacted[w.ID]; seen {
		score *= interactedDampening
	}

	// Reason is the dominant weighted component. Earlier entries win ties,
	// giving the category > tags > popularity > freshness ordering.
	reasons := [4]string{ReasonCategory, ReasonTags, ReasonPopular, ReasonFresh}
	best := 0
	for i := 1; i < len(components); i++ {
		if components[i] > components[best] {
			best = i
		}
	}
	return score, reasons[best]
}

// Similar ranks the catalog by similarity to one item using category match
// and tag overlap only. No personalization signals are involved.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - itemID: the anchor item, excluded from results.
//   - category: the anchor's normalized category.
//   - tags: the anchor's tags.
//   - limit: maximum results; 0 uses MaxResults.
// Returns:
//   - []Recommendation: similar items, best first.
//   - error: non-nil if the catalog cannot be read.
func (s *Scorer) Similar(ctx context.Context, itemID, category string, tags []string, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}

	candidates, err := s.catalog.AllForScoring(ctx, candidateLimit)
	if err != nil {
		return nil, err
	}

	anchorTags := tagSet(domain.NormalizeTags(tags))
	anchorCategory := domain.NormalizeKey(category)

	recs := make([]Recommendation, 0, len(candidates))
	for _, w := range candidates {
		if w.ID == itemID {
			continue
		}
		categoryMatch := 0.0
		if anchorCategory != "" && w.Category == anchorCategory {
			categoryMatch = 1.0
		}
		score := 0.5*categoryMatch + 0.5*jaccard(tagSet(w.Tags), anchorTags)
		if score <= similarityFloor {
			continue
		}
		recs = append(recs, Recommendation{Wallpaper: w, Score: score, Reason: ReasonSimilar})
	}

	sortByScore(recs)
	return capResults(recs, limit), nil
}

// PopularThisWeek ranks items by the current week's interaction stats,
// falling back to all-time popularity when the week has no data yet.
func (s *Scorer) PopularThisWeek(ctx context.Context) ([]Recommendation, error) {
	week := domain.WeekNumber(time.Now())
	stats, err := s.signals.WeeklyTop(ctx, week, s.cfg.MaxResults)
	if err != nil {
		logger.CtxWarn(ctx, "Weekly stats load failed, degrading to all-time popularity: %v", err)
		stats = nil
	}

	if len(stats) == 0 {
		candidates, cerr := s.catalog.AllForScoring(ctx, candidateLimit)
		if cerr != nil {
			return nil, cerr
		}
		return s.popularityRanking(candidates), nil
	}

	ids := make([]string, 0, len(stats))
	scores := make(map[string]float64, len(stats))
	top := float64(stats[0].PopularityScore)
	if top <= 0 {
		top = 1
	}
	for _, st := range stats {
		ids = append(ids, st.ItemID)
		scores[st.ItemID] = float64(st.PopularityScore) / top
	}

	items, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Wallpaper, len(items))
	for _, w := range items {
		byID[w.ID] = w
	}

	// Preserve the weekly ranking order; drop stats whose item has been
	// swept from the catalog.
	recs := make([]Recommendation, 0, len(ids))
	for _, id := range ids {
		w, ok := byID[id]
		if !ok {
			continue
		}
		recs = append(recs, Recommendation{Wallpaper: w, Score: scores[id], Reason: ReasonPopular})
	}
	return recs, nil
}

// Trending blends provider popularity with recency, with no personalization.
func (s *Scorer) Trending(ctx context.Context) ([]Recommendation, error) {
	candidates, err := s.catalog.AllForScoring(ctx, candidateLimit)
	if err != nil {
		return nil, err
	}

	recs := make([]Recommendation, 0, len(candidates))
	for _, w := range candidates {
		score := 0.6*s.normPopularity(&w) + 0.4*freshness(w.SyncedAt)
		if score <= 0 {
			continue
		}
		recs = append(recs, Recommendation{Wallpaper: w, Score: score, Reason: ReasonTrending})
	}

	sortByScore(recs)
	return capResults(recs, s.cfg.MaxResults), nil
}

// popularityRanking is the cold-start and degradation fallback: likes plus
// double-weighted downloads, descending.
func (s *Scorer) popularityRanking(candidates []domain.Wallpaper) []Recommendation {
	recs := make([]Recommendation, 0, len(candidates))
	for _, w := range candidates {
		recs = append(recs, Recommendation{
			Wallpaper: w,
			Score:     float64(w.PopularityRank()),
			Reason:    ReasonPopular,
		})
	}
	sortByScore(recs)
	return capResults(recs, s.cfg.MaxResults)
}

func (s *Scorer) normPopularity(w *domain.Wallpaper) float64 {
	likes := clamp01(float64(w.Likes) / s.cfg.LikesCeiling)
	downloads := clamp01(float64(w.Downloads) / s.cfg.DownloadsCeiling)
	return 0.6*likes + 0.4*downloads
}

// freshness is a step function over the item's sync age.
func freshness(syncedAt time.Time) float64 {
	age := time.Since(syncedAt)
	switch {
	case age < 7*24*time.Hour:
		return 1.0
	case age < 14*24*time.Hour:
		return 0.8
	case age < 28*24*time.Hour:
		return 0.5
	default:
		return 0.2
	}
}

// jaccard computes intersection-over-union of two tag sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	intersection := 0
	for tag := range small {
		if _, ok := large[tag]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortByScore(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
}

func capResults(recs []Recommendation, limit int) []Recommendation {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
