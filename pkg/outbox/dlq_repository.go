package outbox

import (
	"errors"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
)

// maxDLQErrorLen bounds error_message; provider errors can embed whole payloads.
const maxDLQErrorLen = 1024

type DLQRepository struct{}

func NewDLQRepository() *DLQRepository {
	return &DLQRepository{}
}

// DeadLetterTx copies a failed event into outbox_dlq inside the publisher's
// transaction. A second entry for the same event_id is ignored and reported
// as false.
func (r *DLQRepository) DeadLetterTx(tx *gorm.DB, entry models.OutboxDLQ) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		clipped := clipErrorMessage(*entry.ErrorMessage)
		entry.ErrorMessage = &clipped
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&entry)
	return res.RowsAffected == 1, res.Error
}

// clipErrorMessage cuts at maxDLQErrorLen bytes without splitting a rune.
func clipErrorMessage(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	cut := maxDLQErrorLen
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
