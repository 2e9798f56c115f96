package responses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrNotFound = errors.New("responses: not found")

// Row is one raw response row, every column rendered as text. NULL is "".
type Row map[string]string

// Repository reads the survey platform's per-survey response tables,
// {prefix}survey_{id}.
type Repository struct {
	DB     *sql.DB
	Prefix string
}

func NewRepository(db *sql.DB, prefix string) *Repository {
	return &Repository{DB: db, Prefix: prefix}
}

// Table returns the response table name for a numeric survey id.
func (r *Repository) Table(surveyID string) (string, error) {
	if _, err := strconv.ParseUint(surveyID, 10, 64); err != nil || surveyID == "" {
		return "", fmt.Errorf("responses: survey id %q is not numeric", surveyID)
	}
	return r.Prefix + "survey_" + surveyID, nil
}

// LatestByToken returns the token's most recent row: an unsubmitted row if
// one exists, else the newest submission.
func (r *Repository) LatestByToken(ctx context.Context, surveyID, token string) (Row, error) {
	t, err := r.Table(surveyID)
	if err != nil {
		return nil, err
	}
	rows, err := r.query(ctx, `SELECT * FROM `+t+`
		WHERE token=$1
		ORDER BY (submitdate IS NULL) DESC, submitdate DESC, id DESC LIMIT 1`, token)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (r *Repository) ByID(ctx context.Context, surveyID string, id int64) (Row, error) {
	t, err := r.Table(surveyID)
	if err != nil {
		return nil, err
	}
	rows, err := r.query(ctx, `SELECT * FROM `+t+` WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// ByToken returns every row of the token in id order.
func (r *Repository) ByToken(ctx context.Context, surveyID, token string) ([]Row, error) {
	t, err := r.Table(surveyID)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, `SELECT * FROM `+t+` WHERE token=$1 ORDER BY id`, token)
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]Row, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = text(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04:05")
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	}
	return fmt.Sprint(v)
}
