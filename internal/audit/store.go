package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/imap-sweep/pkg/types"
)

// Store provides methods for recording and reading sweep runs
type Store struct {
	log    *Log
	logger *logrus.Logger
}

// Run is one recorded sweep run.
type Run struct {
	ID          int64
	Mailbox     string
	Cutoff      time.Time
	DryRun      bool
	StartedAt   time.Time
	FinishedAt  *time.Time
	Total       int
	Processed   int
	Kept        int
	Skipped     int
	Flagged     int
	Failed      int
	CommitError string
}

// NewStore creates a new store instance
func NewStore(log *Log, logger *logrus.Logger) *Store {
	return &Store{
		log:    log,
		logger: logger,
	}
}

// BeginRun records the start of a sweep run and returns its id.
func (s *Store) BeginRun(mailbox string, cutoff time.Time, dryRun bool) (int64, error) {
	result, err := s.log.DB().Exec(
		`INSERT INTO runs (mailbox, cutoff, dry_run) VALUES (?, ?, ?)`,
		mailbox, cutoff, dryRun,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters of a run. The deletion report may be
// nil when no deletion phase ran.
func (s *Store) FinishRun(runID int64, scan *types.ScanResult, report *types.DeletionReport) error {
	flagged, failed := 0, 0
	commitError := ""
	if report != nil {
		flagged = report.Successful
		failed = report.Failed
		if report.CommitErr != nil {
			commitError = report.CommitErr.Error()
		}
	}

	query := `
		UPDATE runs SET
			finished_at = CURRENT_TIMESTAMP,
			total = ?,
			processed = ?,
			kept = ?,
			skipped = ?,
			flagged = ?,
			failed = ?,
			commit_error = ?
		WHERE id = ?
	`
	_, err := s.log.DB().Exec(query,
		scan.Total, scan.Processed, scan.Kept, scan.Skipped,
		flagged, failed, commitError, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordDeletions stores the candidates a run removed.
func (s *Store) RecordDeletions(runID int64, candidates []types.Candidate) error {
	query := `
		INSERT INTO deletions (run_id, uid, sender, subject, date, reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, cand := range candidates {
		var date interface{}
		if !cand.Date.IsZero() {
			date = cand.Date
		}
		if _, err := s.log.DB().Exec(query, runID, cand.ID, cand.SenderFull, cand.Subject, date, cand.Reason); err != nil {
			return fmt.Errorf("failed to record deletion: %w", err)
		}
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	query := `
		SELECT id, mailbox, cutoff, dry_run, started_at, finished_at,
			total, processed, kept, skipped, flagged, failed,
			COALESCE(commit_error, '')
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.log.DB().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finished sql.NullTime
		if err := rows.Scan(
			&run.ID, &run.Mailbox, &run.Cutoff, &run.DryRun,
			&run.StartedAt, &finished,
			&run.Total, &run.Processed, &run.Kept, &run.Skipped,
			&run.Flagged, &run.Failed, &run.CommitError,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Deletions returns the messages removed by one run.
func (s *Store) Deletions(runID int64) ([]types.Candidate, error) {
	query := `
		SELECT uid, COALESCE(sender, ''), COALESCE(subject, ''), date, COALESCE(reason, '')
		FROM deletions
		WHERE run_id = ?
		ORDER BY id
	`
	rows, err := s.log.DB().Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deletions: %w", err)
	}
	defer rows.Close()

	var candidates []types.Candidate
	for rows.Next() {
		var cand types.Candidate
		var date sql.NullTime
		if err := rows.Scan(&cand.ID, &cand.SenderFull, &cand.Subject, &date, &cand.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan deletion: %w", err)
		}
		if date.Valid {
			cand.Date = date.Time
		}
		candidates = append(candidates, cand)
	}
	return candidates, rows.Err()
}
