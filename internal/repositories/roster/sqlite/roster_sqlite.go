package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	r "github.com/quipper/poc/grader/pkg/repositories/roster"
)

type SQLiteRepo struct{ db *sql.DB }

func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases coherent across calls
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func (s *SQLiteRepo) Disconnect() { _ = s.db.Close() }

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS users (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  login_id TEXT NOT NULL UNIQUE,
	  name TEXT,
	  sortable_name TEXT,
	  email TEXT,
	  created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS enrollments (
	  seq INTEGER PRIMARY KEY AUTOINCREMENT,
	  course_id TEXT NOT NULL,
	  user_id INTEGER NOT NULL REFERENCES users(id),
	  role TEXT NOT NULL,
	  UNIQUE(course_id, user_id)
	);
	`)
	return err
}

const selectEnrollees = `SELECT u.id, u.login_id, u.name, u.sortable_name, u.email
	FROM enrollments e JOIN users u ON u.id = e.user_id`

func (s *SQLiteRepo) ListPage(ctx context.Context, courseID, role string, offset, limit int) ([]*r.Enrollee, int, error) {
	where := ` WHERE e.course_id = ?`
	args := []any{courseID}
	if role != "" {
		where += ` AND e.role = ?`
		args = append(args, role)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM enrollments e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, selectEnrollees+where+` ORDER BY e.seq ASC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*r.Enrollee
	for rows.Next() {
		var e r.Enrollee
		var name, sortable, email sql.NullString
		if err := rows.Scan(&e.ID, &e.LoginID, &name, &sortable, &email); err != nil {
			return nil, 0, err
		}
		e.Name = name.String
		e.SortableName = sortable.String
		e.Email = email.String
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *SQLiteRepo) Upsert(ctx context.Context, courseID, role string, e *r.Enrollee) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if e.ID == 0 {
		err = tx.QueryRowContext(ctx, `
		INSERT INTO users (login_id, name, sortable_name, email, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(login_id)
		DO UPDATE SET name = excluded.name, sortable_name = excluded.sortable_name, email = excluded.email
		RETURNING id
		`, e.LoginID, e.Name, e.SortableName, e.Email, now).Scan(&e.ID)
	} else {
		err = tx.QueryRowContext(ctx, `
		INSERT INTO users (id, login_id, name, sortable_name, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id)
		DO UPDATE SET login_id = excluded.login_id, name = excluded.name, sortable_name = excluded.sortable_name, email = excluded.email
		RETURNING id
		`, e.ID, e.LoginID, e.Name, e.SortableName, e.Email, now).Scan(&e.ID)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO enrollments (course_id, user_id, role) VALUES (?, ?, ?)
	ON CONFLICT(course_id, user_id) DO UPDATE SET role = excluded.role
	`, courseID, e.ID, role); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteRepo) Enrolled(ctx context.Context, courseID, role string, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+2)
	args = append(args, courseID, role)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM enrollments WHERE course_id = ? AND role = ? AND user_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *SQLiteRepo) Delete(ctx context.Context, courseID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM enrollments WHERE course_id = ? AND user_id = ?`, courseID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
