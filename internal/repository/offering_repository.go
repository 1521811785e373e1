package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registrar-api/internal/domain"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

// OfferingRepository persists course offerings. The enrolled counter is
// written with a version check so a concurrent writer cannot slip a
// stale seat count past the capacity invariant.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// Load returns an offering by id.
func (r *OfferingRepository) Load(ctx context.Context, id string) (*domain.CourseOffering, error) {
	const query = `SELECT id, course_id, term, instructor_id, schedule, capacity, enrolled, version, created_at
        FROM course_offerings WHERE id = $1`
	var offering domain.CourseOffering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, fmt.Errorf("load offering %s: %w", id, err)
	}
	return &offering, nil
}

// Save writes the offering counter with a compare-and-swap on version.
func (r *OfferingRepository) Save(ctx context.Context, offering *domain.CourseOffering, expectedVersion int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE course_offerings SET enrolled = $2, version = version + 1 WHERE id = $1 AND version = $3`,
		offering.ID, offering.Enrolled, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save offering %s: %w", offering.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save offering %s: %w", offering.ID, err)
	}
	if affected == 0 {
		return appErrors.ErrVersionConflict
	}
	offering.Version = expectedVersion + 1
	return nil
}
