// internal/repository/postgres/visit_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldcrm-service/internal/domain/visit"
	xerrors "fieldcrm-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type VisitRepository struct {
	db *pgxpool.Pool
}

func NewVisitRepository(db *pgxpool.Pool) *VisitRepository {
	return &VisitRepository{db: db}
}

// Count returns the number of visits matching the filter
func (r *VisitRepository) Count(ctx context.Context, f visit.Filter) (int64, error) {
	where, args := buildVisitWhere(f)
	query := "SELECT COUNT(*) " + visitFrom + where

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return total, nil
}

// List retrieves visits with their joined lookups
func (r *VisitRepository) List(ctx context.Context, f visit.Filter, s visit.Sort, limit, offset int) ([]*visit.Visit, error) {
	where, args := buildVisitWhere(f)
	query := "SELECT " + visitColumns + visitFrom + where + " " + buildVisitOrder(s)

	argPos := len(args) + 1
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	visits := []*visit.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visits: %w", err)
	}
	return visits, nil
}

// Stats computes the ungrouped aggregates behind the summary endpoint
func (r *VisitRepository) Stats(ctx context.Context, f visit.Filter) (*visit.Stats, error) {
	where, args := buildVisitWhere(f)
	query := `
		SELECT COUNT(*),
		       COUNT(DISTINCT v.hcp_id),
		       COUNT(DISTINCT v.rep_id),
		       COUNT(DISTINCT v.territory_id),
		       COALESCE(AVG(v.duration_minutes), 0)::float8,
		       COALESCE(SUM(v.duration_minutes), 0)::bigint,
		       MAX(v.visit_date)
	` + visitFrom + where

	var st visit.Stats
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&st.Total, &st.UniqueHcps, &st.UniqueReps, &st.UniqueTerritories,
		&st.AvgDurationMinutes, &st.SumDurationMinutes, &st.LastVisitDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute visit stats: %w", err)
	}
	return &st, nil
}

// GroupCount counts visits per combination of the requested keys
func (r *VisitRepository) GroupCount(ctx context.Context, f visit.Filter, keys ...visit.GroupKey) ([]visit.GroupCount, error) {
	ordered, cols, orderBy, err := buildGroupBy(keys)
	if err != nil {
		return nil, err
	}

	where, args := buildVisitWhere(f)
	query := "SELECT " + cols + ", COUNT(*) " + visitFrom + where +
		" GROUP BY " + cols + " ORDER BY " + orderBy

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group visits: %w", err)
	}
	defer rows.Close()

	out := []visit.GroupCount{}
	for rows.Next() {
		var gc visit.GroupCount
		dest := make([]interface{}, 0, len(ordered)+1)
		for _, k := range ordered {
			switch k {
			case visit.GroupByRep:
				dest = append(dest, &gc.RepID)
			case visit.GroupByDate:
				dest = append(dest, &gc.Date)
			case visit.GroupByHcp:
				dest = append(dest, &gc.HcpID)
			}
		}
		dest = append(dest, &gc.Count)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan visit group: %w", err)
		}
		out = append(out, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visit groups: %w", err)
	}
	return out, nil
}

// ListForReport returns the narrow projection report rollups need
func (r *VisitRepository) ListForReport(ctx context.Context, f visit.Filter) ([]visit.ReportRow, error) {
	where, args := buildVisitWhere(f)
	query := `
		SELECT v.id, v.rep_id, v.territory_id, v.status, v.account_type,
		       v.hcp_id, v.pharmacy_id, v.order_value_jod::float8, v.rating, v.products_json
	` + visitFrom + where + " ORDER BY v.id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list report rows: %w", err)
	}
	defer rows.Close()

	out := []visit.ReportRow{}
	for rows.Next() {
		var row visit.ReportRow
		var status string
		var accountType *string
		if err := rows.Scan(
			&row.ID, &row.RepID, &row.TerritoryID, &status, &accountType,
			&row.HcpID, &row.PharmacyID, &row.OrderValueJOD, &row.Rating, &row.ProductsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		row.Status = visit.Status(status)
		if accountType != nil {
			t := visit.AccountType(*accountType)
			row.AccountType = &t
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}
	return out, nil
}

// FindByID retrieves a visit by ID, including soft-deleted ones
func (r *VisitRepository) FindByID(ctx context.Context, id int64) (*visit.Visit, error) {
	query := "SELECT " + visitColumns + visitFrom + "WHERE v.id = $1"

	v, err := scanVisit(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Create inserts a visit and reloads it with its lookups
func (r *VisitRepository) Create(ctx context.Context, v *visit.Visit) error {
	query := `
		INSERT INTO visits (
			visit_date, status, duration_minutes, rep_id, territory_id, account_type,
			hcp_id, pharmacy_id, notes, commitment_text, visit_purpose, visit_channel,
			products_json, next_visit_date, order_value_jod, rating, start_location, end_location
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`

	args, err := visitWriteArgs(v)
	if err != nil {
		return err
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return xerrors.ErrConflict
		}
		return fmt.Errorf("failed to create visit: %w", err)
	}

	return r.reload(ctx, id, v)
}

// Update overwrites every mutable column of a live visit
func (r *VisitRepository) Update(ctx context.Context, v *visit.Visit) error {
	query := `
		UPDATE visits
		SET visit_date = $1, status = $2, duration_minutes = $3, rep_id = $4,
		    territory_id = $5, account_type = $6, hcp_id = $7, pharmacy_id = $8,
		    notes = $9, commitment_text = $10, visit_purpose = $11, visit_channel = $12,
		    products_json = $13, next_visit_date = $14, order_value_jod = $15,
		    rating = $16, start_location = $17, end_location = $18, updated_at = NOW()
		WHERE id = $19 AND is_deleted = FALSE
	`

	args, err := visitWriteArgs(v)
	if err != nil {
		return err
	}
	args = append(args, v.ID)

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return xerrors.ErrConflict
		}
		return fmt.Errorf("failed to update visit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return r.reload(ctx, v.ID, v)
}

// SoftDelete flags a visit as deleted
func (r *VisitRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE visits SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *VisitRepository) reload(ctx context.Context, id int64, v *visit.Visit) error {
	stored, err := r.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to reload visit %d: %w", id, err)
	}
	*v = *stored
	return nil
}

func visitWriteArgs(v *visit.Visit) ([]interface{}, error) {
	start, err := encodeLocation(v.StartLocation)
	if err != nil {
		return nil, err
	}
	end, err := encodeLocation(v.EndLocation)
	if err != nil {
		return nil, err
	}

	var accountType, purpose, channel *string
	if v.AccountType != nil {
		s := string(*v.AccountType)
		accountType = &s
	}
	if v.Purpose != nil {
		s := string(*v.Purpose)
		purpose = &s
	}
	if v.Channel != nil {
		s := string(*v.Channel)
		channel = &s
	}

	var nextVisit *string
	if v.NextVisitDate != nil {
		s := v.NextVisitDate.Format("2006-01-02")
		nextVisit = &s
	}

	return []interface{}{
		v.VisitDate.Format("2006-01-02"), string(v.Status), v.DurationMinutes, v.RepID,
		v.TerritoryID, accountType, v.HcpID, v.PharmacyID, v.Notes, v.CommitmentText,
		purpose, channel, v.ProductsJSON, nextVisit, v.OrderValueJOD, v.Rating, start, end,
	}, nil
}

func encodeLocation(l *visit.Location) ([]byte, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal location: %w", err)
	}
	return b, nil
}

func decodeLocation(b []byte) (*visit.Location, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var l visit.Location
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal location: %w", err)
	}
	return &l, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// scanVisit reads one row selected with visitColumns
func scanVisit(row pgx.Row) (*visit.Visit, error) {
	var v visit.Visit
	var status string
	var accountType, purpose, channel *string
	var startLoc, endLoc []byte
	var visitDate time.Time

	var repID *int64
	var repName, repEmail *string
	var hcpID *int64
	var hcpName *string
	var hcp visit.HcpRef
	var pharmacyID *int64
	var pharmacyName *string
	var pharmacy visit.PharmacyRef
	var territoryID *int64
	var territoryName *string
	var territory visit.TerritoryRef

	err := row.Scan(
		&v.ID, &visitDate, &status, &v.DurationMinutes, &v.RepID, &v.TerritoryID,
		&v.IsDeleted, &accountType, &v.HcpID, &v.PharmacyID, &v.Notes,
		&v.CommitmentText, &purpose, &channel, &v.ProductsJSON,
		&v.NextVisitDate, &v.OrderValueJOD, &v.Rating, &startLoc,
		&endLoc, &v.CreatedAt, &v.UpdatedAt,
		&repID, &repName, &repEmail,
		&hcpID, &hcpName, &hcp.AreaTag, &hcp.Specialty, &hcp.Phone, &hcp.Email, &hcp.Segment,
		&pharmacyID, &pharmacyName, &pharmacy.City, &pharmacy.Area, &pharmacy.Phone,
		&territoryID, &territoryName, &territory.Code,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan visit: %w", err)
	}

	v.VisitDate = visitDate.UTC()
	v.Status = visit.Status(status)
	if accountType != nil {
		t := visit.AccountType(*accountType)
		v.AccountType = &t
	}
	if purpose != nil {
		p := visit.Purpose(*purpose)
		v.Purpose = &p
	}
	if channel != nil {
		c := visit.Channel(*channel)
		v.Channel = &c
	}
	if v.StartLocation, err = decodeLocation(startLoc); err != nil {
		return nil, err
	}
	if v.EndLocation, err = decodeLocation(endLoc); err != nil {
		return nil, err
	}

	if repID != nil {
		v.Rep = &visit.RepRef{ID: *repID, Name: deref(repName), Email: deref(repEmail)}
	}
	if hcpID != nil {
		hcp.ID, hcp.Name = *hcpID, deref(hcpName)
		v.Hcp = &hcp
	}
	if pharmacyID != nil {
		pharmacy.ID, pharmacy.Name = *pharmacyID, deref(pharmacyName)
		v.Pharmacy = &pharmacy
	}
	if territoryID != nil {
		territory.ID, territory.Name = *territoryID, deref(territoryName)
		v.Territory = &territory
	}

	return &v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
