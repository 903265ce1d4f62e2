package cleanup

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/imap-sweep/internal/config"
	"github.com/brandon/imap-sweep/internal/email"
	"github.com/brandon/imap-sweep/pkg/types"
)

// ProgressFunc receives one event per completed batch.
type ProgressFunc func(types.Progress)

// Scanner walks the unread set in fixed-size batches, fetching headers only
// and classifying each message against the cutoff date and the ruleset.
type Scanner struct {
	conn           *email.Manager
	rules          *Ruleset
	cutoff         time.Time
	batchSize      int
	messageRetries int
	logger         *logrus.Logger
	progress       ProgressFunc

	// SearchRetry bounds the unread search, with escalating backoff.
	SearchRetry email.RetryPolicy
	// FetchPause is the pause before a per-message retry.
	FetchPause time.Duration
}

// NewScanner creates a scanner bound to one connection manager.
func NewScanner(cfg *config.Config, conn *email.Manager, rules *Ruleset, logger *logrus.Logger) *Scanner {
	return &Scanner{
		conn:           conn,
		rules:          rules,
		cutoff:         cfg.CutoffDate,
		batchSize:      cfg.FetchBatchSize,
		messageRetries: cfg.MessageRetries,
		logger:         logger,
		SearchRetry: email.RetryPolicy{
			Attempts:   cfg.SearchRetries,
			Backoff:    2 * time.Second,
			Escalating: true,
		},
		FetchPause: time.Second,
	}
}

// OnProgress registers the per-batch progress sink.
func (s *Scanner) OnProgress(fn ProgressFunc) {
	s.progress = fn
}

// Scan searches the unread set and classifies every message. Cancellation
// is cooperative: the context is checked at batch and message boundaries,
// so an in-flight header fetch always finishes. A failed unread search is
// reported as "nothing to do", not as an error. Accounting is append-only;
// a stopped scan keeps everything recorded up to that point.
func (s *Scanner) Scan(ctx context.Context) (*types.ScanResult, error) {
	result := &types.ScanResult{}

	ids, err := s.searchUnseen()
	if err != nil {
		s.logger.WithError(err).Warn("Unread search failed after all retries")
		return result, nil
	}

	result.Total = len(ids)
	if len(ids) == 0 {
		s.logger.Info("No unread messages found")
		return result, nil
	}

	batches := partition(ids, s.batchSize)
	s.logger.WithFields(logrus.Fields{
		"unread":  len(ids),
		"batches": len(batches),
		"cutoff":  s.cutoff.Format(config.CutoffLayout),
	}).Info("Scanning unread messages")

	start := time.Now()
	for i, batch := range batches {
		if ctx.Err() != nil {
			result.Stopped = true
			break
		}

		for _, id := range batch {
			if ctx.Err() != nil {
				result.Stopped = true
				break
			}
			s.scanMessage(id, result)
		}

		s.emitProgress(i+1, len(batches), result, start)
		if result.Stopped {
			break
		}
	}

	if result.Stopped {
		s.logger.WithField("processed", result.Processed).Info("Scan stopped early")
	}
	return result, nil
}

// Evaluate applies the date gate, then the ruleset. Messages with an
// unknown date or a date at or after the cutoff are always kept; the
// ruleset is never consulted for them.
func (s *Scanner) Evaluate(summary types.MessageSummary) types.Classification {
	if summary.Date.IsZero() || !summary.Date.Before(s.cutoff) {
		return types.Classification{Action: types.ActionKeep, Reason: ReasonTooRecent}
	}
	return s.rules.Classify(summary.Sender, summary.Subject, summary.SenderFull)
}

func (s *Scanner) scanMessage(id uint32, result *types.ScanResult) {
	raw, err := s.fetchHeader(id)
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Warn("Skipping message")
		result.Skipped++
		return
	}

	summary := ParseHeaders(id, raw)
	cls := s.Evaluate(summary)

	result.Processed++
	if cls.Action == types.ActionDelete {
		result.Candidates = append(result.Candidates, types.Candidate{
			MessageSummary: summary,
			Reason:         cls.Reason,
		})
	} else {
		result.Kept++
	}
}

// fetchHeader fetches one message's header block, with a bounded local
// retry through EnsureLive for dropped connections.
func (s *Scanner) fetchHeader(id uint32) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.messageRetries; attempt++ {
		if attempt > 1 {
			time.Sleep(s.FetchPause)
		}

		cl, err := s.conn.EnsureLive()
		if err != nil {
			lastErr = err
			continue
		}

		raw, err := cl.FetchHeader(id)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Scanner) searchUnseen() ([]uint32, error) {
	var ids []uint32
	err := s.SearchRetry.Do(func() error {
		cl, err := s.conn.EnsureLive()
		if err != nil {
			return err
		}
		ids, err = cl.SearchUnseen()
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Scanner) emitProgress(batch, batches int, result *types.ScanResult, start time.Time) {
	elapsed := time.Since(start)

	rate := 0.0
	if elapsed > 0 {
		rate = float64(result.Processed) / elapsed.Seconds()
	}
	var eta time.Duration
	if rate > 0 {
		eta = time.Duration(float64(result.Total-result.Processed) / rate * float64(time.Second))
	}

	s.logger.WithFields(logrus.Fields{
		"batch":     batch,
		"batches":   batches,
		"processed": result.Processed,
		"total":     result.Total,
		"flagged":   len(result.Candidates),
	}).Info("Batch complete")

	if s.progress != nil {
		s.progress(types.Progress{
			Batch:     batch,
			Batches:   batches,
			Processed: result.Processed,
			Total:     result.Total,
			Elapsed:   elapsed,
			Rate:      rate,
			ETA:       eta,
		})
	}
}

func partition(ids []uint32, size int) [][]uint32 {
	var batches [][]uint32
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}
