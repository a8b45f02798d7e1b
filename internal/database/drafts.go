package database

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"caseintake/internal/intake"
	"caseintake/internal/models"
)

// Drafts stores intake session checkpoints in the drafts table.
type Drafts struct {
	db *gorm.DB
}

func NewDrafts(db *gorm.DB) *Drafts {
	return &Drafts{db: db}
}

func (d *Drafts) SaveDraft(ctx context.Context, draft models.Draft) error {
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"patient_id", "case_id", "tab", "slots", "updated_at"}),
	}).Create(&draft).Error
	if err != nil {
		return errors.Wrapf(err, "saving draft %s", draft.SessionID)
	}
	return nil
}

func (d *Drafts) FindDraft(ctx context.Context, sessionID string) (models.Draft, error) {
	var draft models.Draft
	if err := d.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&draft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Draft{}, intake.ErrDraftNotFound
		}
		return models.Draft{}, errors.Wrapf(err, "finding draft %s", sessionID)
	}
	return draft, nil
}

func (d *Drafts) DeleteDraft(ctx context.Context, sessionID string) error {
	res := d.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.Draft{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "deleting draft %s", sessionID)
	}
	if res.RowsAffected == 0 {
		return intake.ErrDraftNotFound
	}
	return nil
}

var _ intake.DraftStore = (*Drafts)(nil)
