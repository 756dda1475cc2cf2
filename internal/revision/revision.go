package revision

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Object types recorded in the revision trail
const (
	ObjectTypeProduct         = "product"
	ObjectTypeMigrationOption = "product_migration_option"
)

// Meta describes who made a change and why. Actor may be empty when the
// change was not triggered by a named user.
type Meta struct {
	Actor   string
	Comment string
}

// Entry is one row of the revision trail
type Entry struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ObjectType string    `json:"objectType" gorm:"not null;index:idx_revisions_object"`
	ObjectKey  string    `json:"objectKey" gorm:"not null;index:idx_revisions_object"`
	Actor      *string   `json:"actor,omitempty"`
	Comment    string    `json:"comment" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName specifies the table name for Entry
func (Entry) TableName() string {
	return "revisions"
}

// Recorder appends revision entries within the caller's transaction
type Recorder struct {
	logger *logrus.Entry
}

// NewRecorder creates a revision recorder
func NewRecorder(logger *logrus.Logger) *Recorder {
	return &Recorder{
		logger: logger.WithField("component", "revisions"),
	}
}

// Record writes one revision entry using the given transaction handle, so the
// entry commits or rolls back together with the change it describes. An
// unresolvable actor is logged as a warning and the entry is written without
// one, it never fails the surrounding save.
func (r *Recorder) Record(tx *gorm.DB, objectType, objectKey string, meta Meta) error {
	entry := Entry{
		ObjectType: objectType,
		ObjectKey:  objectKey,
		Comment:    meta.Comment,
	}

	if meta.Actor != "" {
		actor := meta.Actor
		entry.Actor = &actor
	} else {
		r.logger.WithFields(logrus.Fields{
			"objectType": objectType,
			"objectKey":  objectKey,
		}).Warn("no actor resolved for revision entry")
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record revision for %s %s: %w", objectType, objectKey, err)
	}
	return nil
}
