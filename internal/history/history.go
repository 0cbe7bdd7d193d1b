// Package history persists a record of every build and debug operation run.
package history

import (
	"database/sql"

	"enginectl/internal/models"

	_ "modernc.org/sqlite"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operation_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation TEXT NOT NULL,
		project_name TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		exit_code INTEGER,
		error TEXT,
		started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_operation_runs_status ON operation_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) CreateRun(run *models.OperationRun) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO operation_runs (operation, project_name, status, started_at)
		 VALUES (?, ?, ?, ?)`,
		run.Operation, run.ProjectName, run.Status, run.StartedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Storage) FinishRun(run *models.OperationRun) error {
	_, err := s.db.Exec(
		`UPDATE operation_runs SET status = ?, exit_code = ?, error = ?, completed_at = ? WHERE id = ?`,
		run.Status, run.ExitCode, run.Error, run.CompletedAt, run.ID,
	)
	return err
}

func (s *Storage) GetRun(id int64) (*models.OperationRun, error) {
	row := s.db.QueryRow(
		`SELECT id, operation, project_name, status, exit_code, error, started_at, completed_at
		 FROM operation_runs WHERE id = ?`, id,
	)
	return scanRun(row)
}

func (s *Storage) ListRuns(limit int) ([]*models.OperationRun, error) {
	rows, err := s.db.Query(
		`SELECT id, operation, project_name, status, exit_code, error, started_at, completed_at
		 FROM operation_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.OperationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.OperationRun, error) {
	var run models.OperationRun
	var projectName, errText sql.NullString
	var exitCode sql.NullInt64
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.Operation, &projectName, &run.Status,
		&exitCode, &errText, &run.StartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if projectName.Valid {
		run.ProjectName = projectName.String
	}
	if errText.Valid {
		run.Error = errText.String
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}
