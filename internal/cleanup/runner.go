package cleanup

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/brandon/imap-sweep/internal/audit"
	"github.com/brandon/imap-sweep/internal/config"
	"github.com/brandon/imap-sweep/internal/email"
	"github.com/brandon/imap-sweep/pkg/types"
)

// ConfirmFunc gates the destructive phase. It receives the scan result so
// the caller can show the candidate sample before asking; only a true
// return proceeds to deletion.
type ConfirmFunc func(*types.ScanResult) bool

// Runner drives one sweep: connect, scan, confirm, delete, close.
type Runner struct {
	cfg     *config.Config
	conn    *email.Manager
	scanner *Scanner
	deleter *Deleter
	store   *audit.Store
	confirm ConfirmFunc
	logger  *logrus.Logger
}

// NewRunner wires the pipeline components together.
func NewRunner(cfg *config.Config, conn *email.Manager, scanner *Scanner, deleter *Deleter, logger *logrus.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		conn:    conn,
		scanner: scanner,
		deleter: deleter,
		logger:  logger,
	}
}

// SetAudit enables recording of runs and performed deletions.
func (r *Runner) SetAudit(store *audit.Store) {
	r.store = store
}

// SetConfirm installs the confirmation gate. Without one, deletion never
// runs outside dry-run reporting.
func (r *Runner) SetConfirm(fn ConfirmFunc) {
	r.confirm = fn
}

// Run performs one sweep. The session is closed on every path, including
// connect failure, cancellation and mid-scan errors. In dry-run mode every
// step runs except the confirmation gate and the deletion itself.
func (r *Runner) Run(ctx context.Context, dryRun bool) (*types.RunSummary, error) {
	defer r.conn.Close()

	if err := r.conn.Connect(); err != nil {
		return nil, err
	}

	runID := r.beginAudit(dryRun)

	result, err := r.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	summary := &types.RunSummary{Scan: result, DryRun: dryRun}

	if dryRun {
		r.logger.WithField("candidates", len(result.Candidates)).Info("Dry run: no messages deleted")
		r.finishAudit(runID, result, nil)
		return summary, nil
	}

	if len(result.Candidates) == 0 {
		r.logger.Info("No messages identified for deletion")
		r.finishAudit(runID, result, nil)
		return summary, nil
	}

	if r.confirm == nil || !r.confirm(result) {
		r.logger.Info("Deletion cancelled")
		r.finishAudit(runID, result, nil)
		return summary, nil
	}

	report := r.deleter.DeleteAll(ctx, result.Candidates)
	summary.Deletion = report

	r.recordDeletions(runID, result.Candidates, report)
	r.finishAudit(runID, result, report)
	return summary, nil
}

func (r *Runner) beginAudit(dryRun bool) int64 {
	if r.store == nil {
		return 0
	}
	runID, err := r.store.BeginRun(r.cfg.Mailbox, r.cfg.CutoffDate, dryRun)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to record run in audit log")
		return 0
	}
	return runID
}

func (r *Runner) finishAudit(runID int64, scan *types.ScanResult, report *types.DeletionReport) {
	if r.store == nil || runID == 0 {
		return
	}
	if err := r.store.FinishRun(runID, scan, report); err != nil {
		r.logger.WithError(err).Warn("Failed to finish run in audit log")
	}
}

func (r *Runner) recordDeletions(runID int64, candidates []types.Candidate, report *types.DeletionReport) {
	if r.store == nil || runID == 0 || report.Successful == 0 {
		return
	}
	if err := r.store.RecordDeletions(runID, candidates); err != nil {
		r.logger.WithError(err).Warn("Failed to record deletions in audit log")
	}
}
