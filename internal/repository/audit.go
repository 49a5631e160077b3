package repository

import (
	"context"
	"fmt"

	"github.com/insighted/schoolprofile/internal/models"
)

// Mutation changes a profile or one of its dependent records inside an
// audited transaction. A non-empty detail replaces the entry's detail.
type Mutation func(ctx context.Context, tx ProfileTx) (detail string, err error)

// AuditedUpdate runs mutate, appends entry to the school's history and reads
// the profile back, all in one transaction. If any step fails nothing is
// written and the error is returned as is.
func AuditedUpdate(ctx context.Context, store ProfileStore, schoolID string, entry models.HistoryEntry, mutate Mutation) (*models.Profile, error) {
	var profile *models.Profile

	err := store.WithTx(ctx, func(tx ProfileTx) error {
		detail, err := mutate(ctx, tx)
		if err != nil {
			return err
		}
		if detail != "" {
			entry.Detail = detail
		}

		if err := tx.AppendHistory(ctx, schoolID, entry); err != nil {
			return fmt.Errorf("append history for %s: %w", schoolID, err)
		}

		p, err := tx.GetProfile(ctx, schoolID, false)
		if err != nil {
			return fmt.Errorf("read back profile %s: %w", schoolID, err)
		}
		if p == nil {
			return fmt.Errorf("read back profile %s: %w", schoolID, ErrNotFound)
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
