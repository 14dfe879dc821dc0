package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
)

// Exercise is an append-only record of one student attempt. Feedback is filled
// in at most once; rows are never updated afterwards nor deleted.
type Exercise struct {
	ID         uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Type       enums.ExerciseType `gorm:"column:type;not null"`
	WorkAuthor *string            `gorm:"column:work_author"`
	WorkTitle  *string            `gorm:"column:work_title"`
	Subject    string             `gorm:"column:subject;type:text;not null"`
	Answer     string             `gorm:"column:answer;type:text;not null"`
	Feedback   *string            `gorm:"column:feedback;type:text"`
	Score      *decimal.Decimal   `gorm:"column:score;type:numeric(4,2)"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
