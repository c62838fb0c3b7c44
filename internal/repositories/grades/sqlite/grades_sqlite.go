package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	gr "github.com/quipper/poc/grader/pkg/repositories/grades"
)

const progressTag = "submissions_update"

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Disconnect() {
	_ = r.db.Close()
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			context_id TEXT NOT NULL,
			tag TEXT NOT NULL,
			workflow_state TEXT NOT NULL,
			completion REAL NOT NULL DEFAULT 0,
			message TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS grades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id TEXT NOT NULL,
			assignment_id TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			posted_grade TEXT NOT NULL,
			progress_id INTEGER NOT NULL REFERENCES progress(id),
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(course_id, assignment_id, user_id)
		);
	`)
	return err
}

// UpsertGrades applies the batch synchronously, so the returned progress is
// already completed.
func (r *SQLiteRepo) UpsertGrades(ctx context.Context, courseID, assignmentID string, grades map[int64]string) (*gr.Progress, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	p := &gr.Progress{
		ContextID:     courseID,
		Tag:           progressTag,
		WorkflowState: "completed",
		Completion:    100,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO progress (context_id, tag, workflow_state, completion, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ContextID, p.Tag, p.WorkflowState, p.Completion, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	// deterministic write order
	ids := make([]int64, 0, len(grades))
	for id := range grades {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO grades (course_id, assignment_id, user_id, posted_grade, progress_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(course_id, assignment_id, user_id)
			DO UPDATE SET posted_grade = excluded.posted_grade, progress_id = excluded.progress_id, updated_at = excluded.updated_at
		`, courseID, assignmentID, id, grades[id], p.ID, now); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLiteRepo) ListGrades(ctx context.Context, courseID, assignmentID string) ([]*gr.Grade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT course_id, assignment_id, user_id, posted_grade, progress_id, updated_at
		FROM grades WHERE course_id = ? AND assignment_id = ? ORDER BY user_id ASC
	`, courseID, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*gr.Grade
	for rows.Next() {
		var g gr.Grade
		if err := rows.Scan(&g.CourseID, &g.AssignmentID, &g.UserID, &g.PostedGrade, &g.ProgressID, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// GetProgress returns nil and a nil error when the progress does not exist.
func (r *SQLiteRepo) GetProgress(ctx context.Context, id int64) (*gr.Progress, error) {
	var p gr.Progress
	var msg sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, context_id, tag, workflow_state, completion, message, created_at, updated_at
		FROM progress WHERE id = ?
	`, id).Scan(&p.ID, &p.ContextID, &p.Tag, &p.WorkflowState, &p.Completion, &msg, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Message = msg.String
	return &p, nil
}
