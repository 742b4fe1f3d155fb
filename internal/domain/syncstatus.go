package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// CursorMap stores per-provider pagination cursors as JSON in the database.
type CursorMap map[string]int

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the map.
//   - error: non-nil if marshaling fails.
func (m CursorMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *CursorMap) Scan(value interface{}) error {
	if value == nil {
		*m = CursorMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan CursorMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// SyncStatusID is the primary key of the singleton sync status row.
const SyncStatusID = 1

// SyncStatus is the singleton record describing the last catalog sync.
// At most one sync may hold IsSyncing = true at a time.
type SyncStatus struct {
	ID              int64       `gorm:"primaryKey" json:"id"`
	LastSyncAt      *time.Time  `json:"last_sync_at,omitempty"`
	LastSyncSources StringArray `gorm:"type:text" json:"last_sync_sources"`
	LastSyncCount   int         `gorm:"default:0" json:"last_sync_count"`
	IsSyncing       bool        `gorm:"default:false" json:"is_syncing"`
	LastError       string      `gorm:"type:text" json:"last_error,omitempty"`
	TotalSynced     int64       `gorm:"default:0" json:"total_synced"`
	Cursors         CursorMap   `gorm:"type:text" json:"cursors"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName returns the database table name for SyncStatus.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (SyncStatus) TableName() string {
	return "sync_status"
}
