package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// ExhibitorRepo reads exhibitor profiles.  Profile editing lives in the
// storefront service.
type ExhibitorRepo struct {
	db *sql.DB
}

func NewExhibitorRepo(db *sql.DB) *ExhibitorRepo { return &ExhibitorRepo{db: db} }

const exhibitorColumns = `id, user_id, company_name, is_active`

// GetByUserID resolves the exhibitor profile of an authenticated user.
func (r *ExhibitorRepo) GetByUserID(ctx context.Context, userID uint64) (model.Exhibitor, error) {
	var e model.Exhibitor
	err := r.db.QueryRowContext(ctx, `SELECT `+exhibitorColumns+` FROM exhibitors WHERE user_id = ?`, userID).
		Scan(&e.ID, &e.UserID, &e.CompanyName, &e.IsActive)
	return e, classify(err)
}

// GetByID loads an exhibitor profile.
func (r *ExhibitorRepo) GetByID(ctx context.Context, id uint64) (model.Exhibitor, error) {
	var e model.Exhibitor
	err := r.db.QueryRowContext(ctx, `SELECT `+exhibitorColumns+` FROM exhibitors WHERE id = ?`, id).
		Scan(&e.ID, &e.UserID, &e.CompanyName, &e.IsActive)
	return e, classify(err)
}
