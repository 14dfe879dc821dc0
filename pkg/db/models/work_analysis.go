package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WorkAnalysis caches a generated study sheet for a program work so repeated
// requests do not hit the generation backend again.
type WorkAnalysis struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WorkAuthor        string         `gorm:"column:work_author;not null;uniqueIndex:ux_work_analyses_work,priority:1"`
	WorkTitle         string         `gorm:"column:work_title;not null;uniqueIndex:ux_work_analyses_work,priority:2"`
	Biography         string         `gorm:"column:biography;type:text;not null"`
	HistoricalContext string         `gorm:"column:historical_context;type:text;not null"`
	Summary           pq.StringArray `gorm:"column:summary;type:text[];not null;default:ARRAY[]::text[]"`
	Characters        pq.StringArray `gorm:"column:characters;type:text[];not null;default:ARRAY[]::text[]"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
