// Package job implements the persisted scheduled-job engine: durable job
// records, recurrence computation and the in-process timer scheduler.
package job

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"github.com/shop24h/shop24h/internal/timeutil"
)

type Job struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	// JobID is the human decodable identifier, e.g. "250115_A3F9KQ".
	JobID          string            `gorm:"uniqueIndex" json:"jobId"`
	Kind           Kind              `json:"kind"`
	JobType        string            `json:"jobType"`
	ReferenceID    string            `json:"referenceId,omitempty"`
	ScheduleTime   timeutil.DateTime `json:"scheduleTime"`
	RepeatInterval *RepeatInterval   `gorm:"serializer:json" json:"repeatInterval,omitempty"`
	Status         Status            `json:"status"`

	CreatedAt timeutil.DateTime `json:"createdAt"`
	UpdatedAt timeutil.DateTime `json:"updatedAt"`
}

func (Job) TableName() string {
	return "scheduled_jobs"
}

type Kind string

const (
	KindOneTime   Kind = "one-time"
	KindRecurring Kind = "recurring"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Job types with registered handlers. Unknown types are logged and treated
// as satisfied no-ops when they fire.
const (
	TypeCancelOrder                = "cancel_order"
	TypeUpdateProductRatingAndSale = "update_product_rating_and_sale"
	TypePublishProduct             = "publish_product"
)

const jobIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewJobID mints an identifier of the form YYMMDD_XXXXXX.
func NewJobID() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(jobIDAlphabet))))
		suffix[i] = jobIDAlphabet[n.Int64()]
	}
	return timeutil.Now().Format("060102") + "_" + string(suffix)
}
