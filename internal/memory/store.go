// Package memory persists task runs, their execution records and reusable
// solutions in a local SQLite database.
package memory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codefionn/agentwerk/internal/task"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// defaultSolutionRating matches the schema default for solution rows
// recorded without an explicit rating.
const defaultSolutionRating = 5

// Store handles SQLite operations for run history and solution recall.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (and if needed creates) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// WAL lets the control plane read run history while a task is writing.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate ensures the database schema is up to date.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS task_runs (
		id TEXT PRIMARY KEY,
		user_input TEXT NOT NULL,
		task_type TEXT NOT NULL,
		selected_model TEXT,
		status TEXT NOT NULL,
		final_answer TEXT,
		failure_reason TEXT,
		iteration_count INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS execution_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		tool_name TEXT NOT NULL,
		arguments TEXT,
		result TEXT,
		error TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES task_runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS solutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		problem TEXT NOT NULL,
		solution TEXT NOT NULL,
		rating INTEGER NOT NULL DEFAULT 5,
		success_count INTEGER NOT NULL DEFAULT 0,
		category TEXT,
		created_at DATETIME NOT NULL,
		last_used_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_execution_records_run ON execution_records(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_task_runs_started ON task_runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_solutions_problem ON solutions(problem);
	CREATE INDEX IF NOT EXISTS idx_solutions_category ON solutions(category);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun writes run and all its execution records in one transaction.
// Saving the same run ID again replaces the stored state, so the loop can
// persist a run once at every terminal transition without tracking deltas.
// A completed run with a final answer also upserts a solution row, which is
// what SearchSimilar and the memory_search tool recall later.
func (s *Store) SaveRun(run *task.Run) error {
	if run.ID == "" {
		return errors.New("run has no ID")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var finishedAt any
	if !run.FinishedAt.IsZero() {
		finishedAt = run.FinishedAt
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO task_runs
			(id, user_input, task_type, selected_model, status, final_answer, failure_reason, iteration_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.UserInput, string(run.TaskType), run.SelectedModel, string(run.Status),
		run.FinalAnswer, run.FailureReason, run.IterationCount, run.StartedAt, finishedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM execution_records WHERE run_id = ?", run.ID); err != nil {
		return err
	}

	for _, rec := range run.Records {
		arguments, err := json.Marshal(rec.Arguments)
		if err != nil {
			return fmt.Errorf("failed to encode arguments of record %d: %w", rec.SequenceIndex, err)
		}
		_, err = tx.Exec(`
			INSERT INTO execution_records (run_id, seq, tool_name, arguments, result, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, rec.SequenceIndex, rec.ToolName, string(arguments), rec.Result, rec.Error, rec.Timestamp)
		if err != nil {
			return err
		}
	}

	if run.Status == task.StatusCompleted && run.FinalAnswer != "" {
		if err := upsertSolution(tx, run); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// upsertSolution records the run's answer as a reusable solution. A repeat
// of a known problem bumps the existing row's success count instead of
// accumulating duplicates.
func upsertSolution(tx *sql.Tx, run *task.Run) error {
	res, err := tx.Exec(`
		UPDATE solutions
		SET solution = ?, success_count = success_count + 1
		WHERE problem = ? AND category = ?
	`, run.FinalAnswer, run.UserInput, string(run.TaskType))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO solutions (problem, solution, rating, category, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.UserInput, run.FinalAnswer, defaultSolutionRating, string(run.TaskType), time.Now())
	return err
}

// GetRun loads one run with its full execution record log.
func (s *Store) GetRun(id string) (*task.Run, error) {
	run := &task.Run{ID: id}
	var taskType, status string
	var finishedAt *time.Time

	err := s.db.QueryRow(`
		SELECT user_input, task_type, selected_model, status, final_answer, failure_reason, iteration_count, started_at, finished_at
		FROM task_runs WHERE id = ?
	`, id).Scan(&run.UserInput, &taskType, &run.SelectedModel, &status,
		&run.FinalAnswer, &run.FailureReason, &run.IterationCount, &run.StartedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	run.TaskType = task.Type(taskType)
	run.Status = task.Status(status)
	if finishedAt != nil {
		run.FinishedAt = *finishedAt
	}

	rows, err := s.db.Query(`
		SELECT seq, tool_name, arguments, result, error, created_at
		FROM execution_records WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec task.ExecutionRecord
		var arguments sql.NullString
		if err := rows.Scan(&rec.SequenceIndex, &rec.ToolName, &arguments, &rec.Result, &rec.Error, &rec.Timestamp); err != nil {
			return nil, err
		}
		if arguments.Valid && arguments.String != "" && arguments.String != "null" {
			if err := json.Unmarshal([]byte(arguments.String), &rec.Arguments); err != nil {
				return nil, fmt.Errorf("failed to decode arguments of record %d: %w", rec.SequenceIndex, err)
			}
		}
		run.Records = append(run.Records, rec)
	}

	return run, rows.Err()
}

// ListRuns returns run summaries (no execution records), newest first.
// limit <= 0 means no limit.
func (s *Store) ListRuns(limit int) ([]*task.Run, error) {
	query := `
		SELECT id, user_input, task_type, selected_model, status, final_answer, failure_reason, iteration_count, started_at, finished_at
		FROM task_runs ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*task.Run
	for rows.Next() {
		run := &task.Run{}
		var taskType, status string
		var finishedAt *time.Time
		if err := rows.Scan(&run.ID, &run.UserInput, &taskType, &run.SelectedModel, &status,
			&run.FinalAnswer, &run.FailureReason, &run.IterationCount, &run.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.TaskType = task.Type(taskType)
		run.Status = task.Status(status)
		if finishedAt != nil {
			run.FinishedAt = *finishedAt
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// SaveSolution stores a reusable solution and returns its ID.
func (s *Store) SaveSolution(problem, solution, category string, rating int) (int64, error) {
	if rating < 1 || rating > 5 {
		rating = defaultSolutionRating
	}

	result, err := s.db.Exec(`
		INSERT INTO solutions (problem, solution, rating, category, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, problem, solution, rating, category, time.Now())
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// searchStopWords are skipped when deriving keywords from a problem
// statement.
var searchStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// SearchSimilar returns up to limit solutions whose problem statement
// contains every keyword of problem. Results are scored by rating, success
// count, and an exact-phrase bonus, best first.
func (s *Store) SearchSimilar(problem string, limit int) ([]task.Snippet, error) {
	if limit <= 0 {
		limit = 3
	}

	keywords := searchKeywords(problem)
	if len(keywords) == 0 {
		return nil, nil
	}

	conditions := make([]string, len(keywords))
	// The phrase-bonus placeholder comes first in the SQL text, then one
	// placeholder per keyword, then the limit.
	args := make([]any, 0, len(keywords)+2)
	args = append(args, "%"+strings.ToLower(problem)+"%")
	for i, keyword := range keywords {
		conditions[i] = "problem LIKE ?"
		args = append(args, "%"+keyword+"%")
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT problem, solution, category, rating,
		       (rating * 0.4 + success_count * 0.3 +
		        CASE WHEN problem LIKE ? THEN 10 ELSE 0 END) AS score
		FROM solutions
		WHERE %s
		ORDER BY score DESC, rating DESC, success_count DESC
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snippets []task.Snippet
	for rows.Next() {
		var snippet task.Snippet
		var category sql.NullString
		var score float64
		if err := rows.Scan(&snippet.Problem, &snippet.Solution, &category, &snippet.Rating, &score); err != nil {
			return nil, err
		}
		snippet.Category = category.String
		snippets = append(snippets, snippet)
	}

	return snippets, rows.Err()
}

// searchKeywords lowercases problem and drops stop words and short tokens.
// When nothing survives the filter, all tokens are kept so a short request
// like "list files" still matches.
func searchKeywords(problem string) []string {
	fields := strings.Fields(strings.ToLower(problem))

	var keywords []string
	for _, field := range fields {
		if _, stop := searchStopWords[field]; stop || len(field) <= 2 {
			continue
		}
		keywords = append(keywords, field)
	}
	if len(keywords) == 0 {
		keywords = fields
	}
	return keywords
}

// IncrementSuccess bumps the success count of a solution and marks it used.
func (s *Store) IncrementSuccess(id int64) error {
	_, err := s.db.Exec(`
		UPDATE solutions
		SET success_count = success_count + 1, last_used_at = ?
		WHERE id = ?
	`, time.Now(), id)
	return err
}
