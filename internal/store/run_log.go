package store

import (
	"database/sql"
	"fmt"
	"time"

	"avaris/internal/model"
)

// RecordRun 写入一次流水线执行及其逐对象结果
func (s *Store) RecordRun(result *model.RunResult, objectsCSV string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var mergeAdded, reconTotal, reconExact, reconFuzzy, reconUnmatched, reconApplied interface{}
	var mergeWatermark interface{}
	if result.Merge != nil {
		mergeAdded = result.Merge.Added
		mergeWatermark = result.Merge.Watermark
	}
	if result.Reconciliation != nil {
		reconTotal = result.Reconciliation.Total
		reconExact = result.Reconciliation.Exact
		reconFuzzy = result.Reconciliation.Fuzzy
		reconUnmatched = result.Reconciliation.Unmatched
		reconApplied = result.Reconciliation.Applied
	}

	_, err = tx.Exec(`
		INSERT INTO runs (
			id, success, objects, started_at, duration_ms, artifact_path,
			merge_added, merge_watermark,
			recon_total, recon_exact, recon_fuzzy, recon_unmatched, recon_applied
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.ID, boolToInt(result.Success), objectsCSV, result.StartedAt,
		result.Duration.Milliseconds(), result.ArtifactPath,
		mergeAdded, mergeWatermark,
		reconTotal, reconExact, reconFuzzy, reconUnmatched, reconApplied)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_objects (
			run_id, object, status, error, rows_total, rows_kept, rows_skipped,
			file_path, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range result.Objects {
		if _, err := stmt.Exec(result.ID, o.Object, string(o.Status), o.Error,
			o.RowsTotal, o.RowsKept, o.RowsSkipped, o.FilePath,
			o.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("failed to insert run object: %w", err)
		}
	}

	return tx.Commit()
}

// RunSummary 执行记录摘要
type RunSummary struct {
	ID           string    `json:"id"`
	Success      bool      `json:"success"`
	Objects      string    `json:"objects"`
	StartedAt    time.Time `json:"startedAt"`
	DurationMS   int64     `json:"durationMs"`
	ArtifactPath string    `json:"artifactPath,omitempty"`
	MergeAdded   *int      `json:"mergeAdded,omitempty"`
}

// ListRuns 按开始时间倒序列出最近的执行记录
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, success, objects, started_at, duration_ms, artifact_path, merge_added
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var success int
		var artifact sql.NullString
		var added sql.NullInt64
		if err := rows.Scan(&r.ID, &success, &r.Objects, &r.StartedAt,
			&r.DurationMS, &artifact, &added); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Success = success != 0
		r.ArtifactPath = artifact.String
		if added.Valid {
			v := int(added.Int64)
			r.MergeAdded = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunDetail 执行记录详情（含逐对象结果）
type RunDetail struct {
	RunSummary
	ObjectResults []ObjectRow `json:"objectResults"`
}

// ObjectRow 单对象审计行
type ObjectRow struct {
	Object      string `json:"object"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	RowsTotal   int    `json:"rowsTotal"`
	RowsKept    int    `json:"rowsKept"`
	RowsSkipped int    `json:"rowsSkipped"`
	FilePath    string `json:"filePath,omitempty"`
	DurationMS  int64  `json:"durationMs"`
}

// GetRun 读取单次执行的完整记录；不存在返回 sql.ErrNoRows
func (s *Store) GetRun(id string) (*RunDetail, error) {
	var d RunDetail
	var success int
	var artifact sql.NullString
	var added sql.NullInt64
	err := s.db.QueryRow(`
		SELECT id, success, objects, started_at, duration_ms, artifact_path, merge_added
		FROM runs WHERE id = ?
	`, id).Scan(&d.ID, &success, &d.Objects, &d.StartedAt, &d.DurationMS, &artifact, &added)
	if err != nil {
		return nil, err
	}
	d.Success = success != 0
	d.ArtifactPath = artifact.String
	if added.Valid {
		v := int(added.Int64)
		d.MergeAdded = &v
	}

	rows, err := s.db.Query(`
		SELECT object, status, error, rows_total, rows_kept, rows_skipped, file_path, duration_ms
		FROM run_objects WHERE run_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run objects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o ObjectRow
		var errMsg, filePath sql.NullString
		if err := rows.Scan(&o.Object, &o.Status, &errMsg, &o.RowsTotal,
			&o.RowsKept, &o.RowsSkipped, &filePath, &o.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan run object: %w", err)
		}
		o.Error = errMsg.String
		o.FilePath = filePath.String
		d.ObjectResults = append(d.ObjectResults, o)
	}
	return &d, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
