package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/campusprint/printq-api/internal/models"
)

// MemberRepository is the read-only profile source used by ingestion to
// resolve a member's container attributes. Account management lives in
// a separate system.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository constructs the repository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// GetByID retrieves one member profile.
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*models.MemberProfile, error) {
	const query = `SELECT id, full_name, email, period, grp, subgroup, term, cohort
	FROM members WHERE id = $1`
	var member models.MemberProfile
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		return nil, err
	}
	return &member, nil
}
