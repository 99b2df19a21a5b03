package repository

import (
	"database/sql"
	"time"

	"github.com/merchkpi/dashboard/backend/internal/domain"
	"github.com/merchkpi/dashboard/backend/internal/kpi"
)

// UpsertDailyRecord stores rec as the user's record for rec.Date, replacing
// the counts of an existing record for that day. EquivalentUploads is
// recomputed from the counts before writing.
func (r *Repository) UpsertDailyRecord(rec *domain.DailyRecord) error {
	rec.EquivalentUploads = kpi.Equivalent(rec.Counts)

	query := `
		INSERT INTO daily_records (
			user_id, date,
			product_uploads, re_optimizations, price_updates, price_comparisons, stock_updates, csv_updates,
			equivalent_uploads, target, comments, attachment_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, date) DO UPDATE SET
			product_uploads = EXCLUDED.product_uploads,
			re_optimizations = EXCLUDED.re_optimizations,
			price_updates = EXCLUDED.price_updates,
			price_comparisons = EXCLUDED.price_comparisons,
			stock_updates = EXCLUDED.stock_updates,
			csv_updates = EXCLUDED.csv_updates,
			equivalent_uploads = EXCLUDED.equivalent_uploads,
			target = EXCLUDED.target,
			comments = EXCLUDED.comments,
			attachment_url = EXCLUDED.attachment_url,
			updated_at = NOW()
		RETURNING id, date, created_at, updated_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{
		rec.UserID,
		rec.Date.Format(time.DateOnly),
		rec.ProductUploads,
		rec.ReOptimizations,
		rec.PriceUpdates,
		rec.PriceComparisons,
		rec.StockUpdates,
		rec.CsvUpdates,
		rec.EquivalentUploads,
		rec.Target,
		rec.Comments,
		rec.AttachmentURL,
	}
	dst := []any{&rec.ID, &rec.Date, &rec.CreatedAt, &rec.UpdatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.DateOnly), Valid: true}
}

// GetDailyRecords lists records newest first, each carrying its author.
func (r *Repository) GetDailyRecords(filter domain.RecordFilter) ([]*domain.DailyRecord, error) {
	query := `
		SELECT
			dr.id, dr.user_id, dr.date,
			dr.product_uploads, dr.re_optimizations, dr.price_updates, dr.price_comparisons, dr.stock_updates, dr.csv_updates,
			dr.equivalent_uploads, dr.target, dr.comments, dr.attachment_url, dr.created_at, dr.updated_at,
			u.name, u.email
		FROM daily_records dr
		JOIN users u ON u.id = dr.user_id
		WHERE ($1::bigint = 0 OR dr.user_id = $1)
			AND ($2::date IS NULL OR dr.date >= $2::date)
			AND ($3::date IS NULL OR dr.date <= $3::date)
			AND ($4::text = '' OR u.name ILIKE '%' || $4::text || '%')
		ORDER BY dr.date DESC, dr.id DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{filter.UserID, nullDate(filter.From), nullDate(filter.To), filter.NameLike}
	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*domain.DailyRecord, 0)
	for rows.Next() {
		rec := &domain.DailyRecord{User: &domain.UserBrief{}}
		dst := []any{
			&rec.ID, &rec.UserID, &rec.Date,
			&rec.ProductUploads, &rec.ReOptimizations, &rec.PriceUpdates, &rec.PriceComparisons, &rec.StockUpdates, &rec.CsvUpdates,
			&rec.EquivalentUploads, &rec.Target, &rec.Comments, &rec.AttachmentURL, &rec.CreatedAt, &rec.UpdatedAt,
			&rec.User.Name, &rec.User.Email,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		rec.User.ID = rec.UserID
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
