package domain

import "time"

// InteractionType represents a tracked user action against a wallpaper.
// Each type carries an integer weight used for category affinity scoring.
type InteractionType string

const (
	InteractionView         InteractionType = "view"
	InteractionDetailView   InteractionType = "detail_view"
	InteractionShare        InteractionType = "share"
	InteractionDownload     InteractionType = "download"
	InteractionSetWallpaper InteractionType = "set_wallpaper"
	InteractionFavorite     InteractionType = "favorite"
	InteractionUnfavorite   InteractionType = "unfavorite"
)

// Weight returns the affinity weight associated with the interaction type.
// Unknown types weigh zero.
func (t InteractionType) Weight() int {
	switch t {
	case InteractionView:
		return 1
	case InteractionDetailView:
		return 2
	case InteractionShare:
		return 4
	case InteractionDownload:
		return 5
	case InteractionSetWallpaper:
		return 8
	case InteractionFavorite:
		return 10
	case InteractionUnfavorite:
		return -5
	default:
		return 0
	}
}

// Valid reports whether the type is one of the known interaction types.
func (t InteractionType) Valid() bool {
	return t.Weight() != 0
}

// WeekNumber converts a time into the monotonically comparable weekly stat
// key: isoYear*100 + isoWeek. Keys compare numerically across year boundaries.
func WeekNumber(t time.Time) int {
	year, week := t.ISOWeek()
	return year*100 + week
}

// Interaction is one append-only log entry of a user action.
type Interaction struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID     string          `gorm:"type:text;not null;index:idx_interactions_item" json:"item_id"`
	CategoryID string          `gorm:"type:text;not null;index:idx_interactions_category" json:"category_id"`
	Type       InteractionType `gorm:"type:text;not null" json:"type"`
	Timestamp  time.Time       `gorm:"not null;index:idx_interactions_ts" json:"timestamp"`
	DurationMs int64           `gorm:"default:0" json:"duration_ms"`
	Tags       StringArray     `gorm:"type:text" json:"tags"`
}

// TableName returns the database table name for Interaction.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Interaction) TableName() string {
	return "interactions"
}

// CategoryAffinity is the per-category materialized preference aggregate.
// Score is the running sum of interaction weights and can go negative.
type CategoryAffinity struct {
	CategoryID        string    `gorm:"type:text;primaryKey" json:"category_id"`
	Score             float64   `gorm:"default:0" json:"score"`
	InteractionCount  int64     `gorm:"default:0" json:"interaction_count"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
}

// TableName returns the database table name for CategoryAffinity.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (CategoryAffinity) TableName() string {
	return "category_affinities"
}

// WeeklyStat is the per-(item, week) materialized popularity aggregate.
// PopularityScore = views*1 + downloads*5 + favorites*10.
type WeeklyStat struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID          string    `gorm:"type:text;not null;index:idx_weekly_item_week,unique" json:"item_id"`
	WeekNumber      int       `gorm:"not null;index:idx_weekly_item_week,unique;index:idx_weekly_week" json:"week_number"`
	ViewCount       int64     `gorm:"default:0" json:"view_count"`
	DownloadCount   int64     `gorm:"default:0" json:"download_count"`
	FavoriteCount   int64     `gorm:"default:0" json:"favorite_count"`
	PopularityScore int64     `gorm:"default:0" json:"popularity_score"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for WeeklyStat.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (WeeklyStat) TableName() string {
	return "weekly_stats"
}

// ComputePopularity recalculates the weekly popularity score from counters.
func (s *WeeklyStat) ComputePopularity() {
	s.PopularityScore = s.ViewCount*1 + s.DownloadCount*5 + s.FavoriteCount*10
}
