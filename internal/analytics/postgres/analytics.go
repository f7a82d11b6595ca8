package postgres

import (
	"context"

	"github.com/frahmantamala/lead-management/internal/analytics"
	"github.com/jmoiron/sqlx"
)

const (
	countTotalQuery = `SELECT COUNT(*) FROM leads l`

	countByStatusQuery = `SELECT l.status AS status, COUNT(*) AS total FROM leads l`

	sourceExpr = `COALESCE(NULLIF(l.source, ''), '` + analytics.UnknownSource + `')`

	countBySourceQuery = `SELECT ` + sourceExpr + ` AS source, COUNT(*) AS total FROM leads l`

	countByOwnerQuery = `SELECT l.owner_id AS owner_id, COALESCE(u.name, '') AS owner_name, COUNT(*) AS total
FROM leads l LEFT JOIN users u ON u.id = l.owner_id`
)

// AnalyticsRepository runs the dashboard GROUP BY queries directly with sqlx.
type AnalyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) analytics.RepositoryAPI {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) scoped(query string, scope analytics.Scope, tail string) (string, []interface{}) {
	var args []interface{}
	if scope.OwnerID > 0 {
		query += " WHERE l.owner_id = ?"
		args = append(args, scope.OwnerID)
	}
	return r.db.Rebind(query + tail), args
}

func (r *AnalyticsRepository) CountTotal(ctx context.Context, scope analytics.Scope) (int64, error) {
	query, args := r.scoped(countTotalQuery, scope, "")

	var total int64
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *AnalyticsRepository) CountByStatus(ctx context.Context, scope analytics.Scope) ([]analytics.StatusCount, error) {
	query, args := r.scoped(countByStatusQuery, scope, " GROUP BY l.status ORDER BY l.status")

	rows := []analytics.StatusCount{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AnalyticsRepository) CountBySource(ctx context.Context, scope analytics.Scope) ([]analytics.SourceCount, error) {
	query, args := r.scoped(countBySourceQuery, scope,
		" GROUP BY "+sourceExpr+" ORDER BY total DESC, source ASC")

	rows := []analytics.SourceCount{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AnalyticsRepository) CountByOwner(ctx context.Context, scope analytics.Scope) ([]analytics.OwnerCount, error) {
	query, args := r.scoped(countByOwnerQuery, scope,
		" GROUP BY l.owner_id, u.name ORDER BY total DESC, l.owner_id ASC")

	rows := []analytics.OwnerCount{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
