package cleanup

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/brandon/imap-sweep/internal/config"
	"github.com/brandon/imap-sweep/internal/email"
	"github.com/brandon/imap-sweep/pkg/types"
)

// Deleter flags confirmed candidates in sub-batches and commits once with a
// single expunge. Flagging is best effort: per-message failures are counted
// and the remainder proceeds.
type Deleter struct {
	conn      *email.Manager
	batchSize int
	logger    *logrus.Logger
}

// NewDeleter creates a deleter bound to one connection manager.
func NewDeleter(cfg *config.Config, conn *email.Manager, logger *logrus.Logger) *Deleter {
	return &Deleter{
		conn:      conn,
		batchSize: cfg.DeleteBatchSize,
		logger:    logger,
	}
}

// DeleteAll flags every candidate as deleted, then expunges the mailbox. A
// failed expunge is reported in CommitErr and not retried; flagged messages
// stay flagged and are recoverable on the next run. Cancellation stops
// flagging at a sub-batch boundary but the commit still runs so flags
// already set are purged.
func (d *Deleter) DeleteAll(ctx context.Context, candidates []types.Candidate) *types.DeletionReport {
	report := &types.DeletionReport{}
	if len(candidates) == 0 {
		return report
	}

	d.logger.WithField("count", len(candidates)).Info("Flagging messages for deletion")

	for start := 0; start < len(candidates); start += d.batchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+d.batchSize, len(candidates))

		for _, cand := range candidates[start:end] {
			cl, err := d.conn.EnsureLive()
			if err == nil {
				err = cl.MarkDeleted(cand.ID)
			}
			if err != nil {
				report.Failed++
				if report.Failed <= 5 {
					d.logger.WithError(err).WithField("id", cand.ID).Warn("Failed to flag message")
				}
				continue
			}

			report.Successful++
			if report.Successful%100 == 0 {
				d.logger.WithFields(logrus.Fields{
					"flagged": report.Successful,
					"total":   len(candidates),
				}).Info("Flagging progress")
			}
		}
	}

	cl, err := d.conn.EnsureLive()
	if err == nil {
		err = cl.Expunge()
	}
	if err != nil {
		report.CommitErr = err
		d.logger.WithError(err).Warn("Expunge failed; flagged messages remain for the next run")
		return report
	}

	d.logger.WithFields(logrus.Fields{
		"successful": report.Successful,
		"failed":     report.Failed,
	}).Info("Deletion complete")
	return report
}
