package store

import (
	"database/sql"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// RenderRecord is one archived render result.
type RenderRecord struct {
	ID        int       `json:"id"`
	PlanID    string    `json:"plan_id"`
	RequestID string    `json:"request_id"`
	StepCount int       `json:"step_count"`
	Steps     string    `json:"steps_jsonl"`
	CreatedAt time.Time `json:"created_at"`
}

// RenderArchive persists rendered sequences. The rendering core never reads
// it; archiving is a serving-layer concern.
type RenderArchive struct {
	DB *sql.DB
}

func NewRenderArchive(dbPath string) (*RenderArchive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	query := `CREATE TABLE IF NOT EXISTS renders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plan_id TEXT,
		request_id TEXT,
		step_count INTEGER,
		steps_jsonl TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(query); err != nil {
		return nil, err
	}

	return &RenderArchive{DB: db}, nil
}

func (a *RenderArchive) Close() error {
	return a.DB.Close()
}

func (a *RenderArchive) SaveRender(planID, requestID string, stepCount int, stepsJSONL string) error {
	query := `INSERT INTO renders (plan_id, request_id, step_count, steps_jsonl) VALUES (?, ?, ?, ?)`
	_, err := a.DB.Exec(query, planID, requestID, stepCount, stepsJSONL)
	return err
}

// RendersForPlan returns up to limit archived renders for a plan, oldest
// first.
func (a *RenderArchive) RendersForPlan(planID string, limit int) ([]RenderRecord, error) {
	query := `SELECT id, plan_id, request_id, step_count, steps_jsonl, created_at
		FROM renders WHERE plan_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := a.DB.Query(query, planID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RenderRecord
	for rows.Next() {
		var r RenderRecord
		var created string
		if err := rows.Scan(&r.ID, &r.PlanID, &r.RequestID, &r.StepCount, &r.Steps, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// PruneOlderThan deletes renders older than the retention window and
// returns how many rows went away.
func (a *RenderArchive) PruneOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format("2006-01-02 15:04:05")
	res, err := a.DB.Exec(`DELETE FROM renders WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
