package email

import "time"

// RetryPolicy bounds repeated attempts of a failing operation. With
// Escalating set, the pause before attempt n is (n-1)*Backoff; otherwise it
// is a flat Backoff between attempts.
type RetryPolicy struct {
	Attempts   int
	Backoff    time.Duration
	Escalating bool
}

// Do runs fn up to Attempts times, sleeping between attempts. It returns nil
// on the first success, or the last error once attempts are exhausted.
func (p RetryPolicy) Do(fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if attempt > 1 {
			pause := p.Backoff
			if p.Escalating {
				pause = time.Duration(attempt-1) * p.Backoff
			}
			time.Sleep(pause)
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
