package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintech_reviews/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valLabel(l domain.SentimentLabel) any {
	if l == domain.SentimentNone {
		return nil
	}
	return string(l)
}
func valList(xs []string) any {
	if xs == nil {
		xs = []string{}
	}
	b, _ := json.Marshal(xs)
	return string(b)
}

// countChunk bounds the IN list of a single verification query.
const countChunk = 500

type Repo struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ domain.ReviewRepository = (*Repo)(nil)
	_ domain.SchemaManager    = (*Repo)(nil)
)

func New(db *sql.DB, d Dialect) *Repo { return &Repo{db: db, dialect: d} }

func (r *Repo) DB() *sql.DB { return r.db }

func (r *Repo) Dialect() Dialect { return r.dialect }

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) q(s string) string { return r.dialect.rebind(s) }

// UpsertSource inserts s when absent and returns its id. An existing row is left as is.
func (r *Repo) UpsertSource(ctx context.Context, s domain.Source) (int64, error) {
	if strings.TrimSpace(s.Name) == "" {
		return 0, errors.New("source name is empty")
	}
	if _, err := r.db.ExecContext(ctx, r.q(r.dialect.insertSourceSQL()), s.Name, s.DisplayApp()); err != nil {
		return 0, err
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, r.q(selectSourceIDSQL), s.Name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// UpsertReviews writes rs with one multi-row statement inside one transaction.
func (r *Repo) UpsertReviews(ctx context.Context, sourceID int64, rs []domain.Review) (err error) {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*10)
	for _, rv := range rs {
		values = append(values, reviewRowPlaceholders)
		args = append(args,
			rv.ID,                       // review_id
			sourceID,                    // source_id
			rv.Text,                     // review_text
			valInt(rv.Rating),           // rating
			valStr(rv.Date),             // review_date
			valLabel(rv.SentimentLabel), // sentiment_label
			valF64(rv.SentimentScore),   // sentiment_score
			rv.Provenance,               // provenance
			valList(rv.Themes),          // themes
			valList(rv.Keywords),        // keywords
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + r.dialect.reviewsUpsertSuffix()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, r.q(sqlStr), args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) CountReviews(ctx context.Context, source string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.q(countReviewsSQL), source).Scan(&n)
	return n, err
}

// CountExisting returns how many of ids are stored.
func (r *Repo) CountExisting(ctx context.Context, ids []string) (int, error) {
	total := 0
	for start := 0; start < len(ids); start += countChunk {
		end := start + countChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		var n int
		q := countExistingPrefix + placeholders(len(chunk))
		if err := r.db.QueryRowContext(ctx, r.q(q), args...).Scan(&n); err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// SourceTotals reads the review_statistics view.
func (r *Repo) SourceTotals(ctx context.Context) ([]domain.SourceTotals, error) {
	rows, err := r.db.QueryContext(ctx, sourceTotalsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SourceTotals
	for rows.Next() {
		var t domain.SourceTotals
		var app sql.NullString
		var avg sql.NullFloat64
		if err := rows.Scan(&t.Source, &app, &t.TotalReviews, &avg, &t.Positive, &t.Negative, &t.Neutral); err != nil {
			return nil, err
		}
		t.AppName = app.String
		if avg.Valid {
			a := avg.Float64
			t.AverageRating = &a
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListReviews returns stored reviews of source, or of every source when source is "".
func (r *Repo) ListReviews(ctx context.Context, source string) ([]domain.Review, error) {
	q := listReviewsSQL
	var args []any
	if source != "" {
		q += "\nWHERE s.name = ?"
		args = append(args, source)
	}
	q += "\nORDER BY s.name, r.review_id"

	rows, err := r.db.QueryContext(ctx, r.q(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		var (
			rating     sql.NullInt64
			date       any
			label      sql.NullString
			score      sql.NullFloat64
			provenance sql.NullString
			themes     sql.NullString
			keywords   sql.NullString
		)
		if err := rows.Scan(
			&rv.ID,
			&rv.SourceName,
			&rv.Text,
			&rating,
			&date,
			&label,
			&score,
			&provenance,
			&themes,
			&keywords,
		); err != nil {
			return nil, err
		}
		if rating.Valid {
			n := int(rating.Int64)
			rv.Rating = &n
		}
		rv.Date = dateString(date)
		if label.Valid {
			rv.SentimentLabel = domain.SentimentLabel(label.String)
		}
		if score.Valid {
			f := score.Float64
			rv.SentimentScore = &f
		}
		rv.Provenance = provenance.String
		if themes.Valid {
			_ = json.Unmarshal([]byte(themes.String), &rv.Themes)
		}
		if keywords.Valid {
			_ = json.Unmarshal([]byte(keywords.String), &rv.Keywords)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// dateString normalizes a scanned DATE column; drivers return time.Time, string or []byte.
func dateString(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		s = t.Format("2006-01-02")
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		s = fmt.Sprint(t)
	}
	if len(s) > 10 {
		s = s[:10]
	}
	if s == "" {
		return nil
	}
	return &s
}
