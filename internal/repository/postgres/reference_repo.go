// internal/repository/postgres/reference_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"fieldcrm-service/internal/domain/rep"
	xerrors "fieldcrm-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReferenceRepository reads the lookup tables visits point at: sales reps,
// HCPs, pharmacies, territories and territory assignments.
type ReferenceRepository struct {
	db *pgxpool.Pool
}

func NewReferenceRepository(db *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// FindRepByEmail matches the login email case-insensitively
func (r *ReferenceRepository) FindRepByEmail(ctx context.Context, email string) (*rep.Profile, error) {
	query := `
		SELECT id, name, email, territory_id, rep_type
		FROM sales_reps
		WHERE LOWER(email) = LOWER($1)
		ORDER BY id ASC
		LIMIT 1
	`

	var p rep.Profile
	var repType *string
	err := r.db.QueryRow(ctx, query, email).Scan(&p.ID, &p.Name, &p.Email, &p.TerritoryID, &repType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sales rep: %w", err)
	}

	p.RepType = rep.TypeSalesRep
	if repType != nil && *repType != "" {
		p.RepType = rep.RepType(*repType)
	}
	return &p, nil
}

// ListAssignedTerritoryIDs returns the territories a user may log visits in
func (r *ReferenceRepository) ListAssignedTerritoryIDs(ctx context.Context, email string) ([]int64, error) {
	query := `
		SELECT DISTINCT territory_id
		FROM user_territories
		WHERE LOWER(user_email) = LOWER($1)
		ORDER BY territory_id ASC
	`

	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned territories: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan territory id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ReferenceRepository) RepExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "sales_reps", id)
}

func (r *ReferenceRepository) HcpExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "hcps", id)
}

func (r *ReferenceRepository) PharmacyExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "pharmacies", id)
}

func (r *ReferenceRepository) TerritoryExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "territories", id)
}

// exists is only ever called with the table names above
func (r *ReferenceRepository) exists(ctx context.Context, table string, id int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)

	var ok bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check %s %d: %w", table, id, err)
	}
	return ok, nil
}

func (r *ReferenceRepository) ListReps(ctx context.Context) ([]rep.Profile, error) {
	query := `SELECT id, name, email, territory_id, COALESCE(rep_type, 'sales_rep') FROM sales_reps ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales reps: %w", err)
	}
	defer rows.Close()

	reps := []rep.Profile{}
	for rows.Next() {
		var p rep.Profile
		var repType string
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.TerritoryID, &repType); err != nil {
			return nil, fmt.Errorf("failed to scan sales rep: %w", err)
		}
		p.RepType = rep.RepType(repType)
		reps = append(reps, p)
	}
	return reps, rows.Err()
}

func (r *ReferenceRepository) ListTerritories(ctx context.Context) ([]rep.Territory, error) {
	query := `SELECT id, name, code FROM territories ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list territories: %w", err)
	}
	defer rows.Close()

	territories := []rep.Territory{}
	for rows.Next() {
		var t rep.Territory
		if err := rows.Scan(&t.ID, &t.Name, &t.Code); err != nil {
			return nil, fmt.Errorf("failed to scan territory: %w", err)
		}
		territories = append(territories, t)
	}
	return territories, rows.Err()
}
