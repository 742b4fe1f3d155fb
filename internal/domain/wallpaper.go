package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Source identifies a wallpaper provider.
// Values include SourceWallhaven, SourcePixabay, and SourcePexels.
type Source string

const (
	SourceWallhaven Source = "wallhaven"
	SourcePixabay   Source = "pixabay"
	SourcePexels    Source = "pexels"
)

// wallpaperNamespace is the UUIDv5 namespace for deterministic wallpaper IDs.
var wallpaperNamespace = uuid.MustParse("9d2f7a1c-5b64-4e38-8c11-3f0a6d42e97b")

// WallpaperID derives the stable wallpaper ID for a (source, sourceID) pair.
// Re-syncing the same provider item always yields the same ID.
// Parameters:
//   - source: provider identifier.
//   - sourceID: provider-native item ID.
// Returns:
//   - string: deterministic UUID string.
func WallpaperID(source Source, sourceID string) string {
	return uuid.NewSHA1(wallpaperNamespace, []byte(string(source)+":"+sourceID)).String()
}

// SourceKey builds the dedup key for a (source, sourceID) pair.
func SourceKey(source Source, sourceID string) string {
	return string(source) + "/" + sourceID
}

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Wallpaper represents a canonical catalog item after adapter translation.
// (source, source_id) is unique; ID is derived from it via WallpaperID.
type Wallpaper struct {
	ID             string      `gorm:"type:text;primaryKey" json:"id"`
	Source         Source      `gorm:"type:text;not null;index:idx_wallpapers_source,unique" json:"source"`
	SourceID       string      `gorm:"type:text;not null;index:idx_wallpapers_source,unique" json:"source_id"`
	ThumbURL       string      `gorm:"type:text" json:"thumb_url"`
	PreviewURL     string      `gorm:"type:text" json:"preview_url"`
	FullURL        string      `gorm:"type:text" json:"full_url"`
	OriginalURL    string      `gorm:"type:text" json:"original_url"`
	Width          int         `json:"width"`
	Height         int         `json:"height"`
	Category       string      `gorm:"type:text;index:idx_wallpapers_category" json:"category"`
	Tags           StringArray `gorm:"type:text" json:"tags"`
	Attribution    string      `gorm:"type:text" json:"attribution"`
	Likes          int64       `gorm:"default:0" json:"likes"`
	Downloads      int64       `gorm:"default:0" json:"downloads"`
	SyncedAt       time.Time   `gorm:"index:idx_wallpapers_synced_at" json:"synced_at"`
	Viewed         bool        `gorm:"default:false" json:"viewed"`
	LocalCachePath string      `gorm:"column:local_cache_path" json:"local_cache_path,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Wallpaper.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Wallpaper) TableName() string {
	return "wallpapers"
}

// PopularityRank is the non-personalized ranking value used for the
// cold-start fallback and all-time popularity ordering.
func (w *Wallpaper) PopularityRank() int64 {
	return w.Likes + 2*w.Downloads
}
