package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/brandon/imap-sweep/internal/audit"
	"github.com/brandon/imap-sweep/internal/cleanup"
	"github.com/brandon/imap-sweep/internal/config"
	"github.com/brandon/imap-sweep/internal/email"
	"github.com/brandon/imap-sweep/pkg/types"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
	dryRun      = flag.Bool("dry-run", false, "Analyze only; never delete anything")
	history     = flag.Int("history", 0, "Show the N most recent audit runs and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("imap-sweep version %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	// Set log level
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Open the audit log when configured
	var store *audit.Store
	if cfg.AuditPath != "" {
		auditLog, err := audit.NewLog(cfg.AuditPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open audit log")
		}
		defer auditLog.Close()
		store = audit.NewStore(auditLog, logger)
	}

	if *history > 0 {
		if store == nil {
			logger.Fatal("AUDIT_PATH must be set to show run history")
		}
		if err := printHistory(store, *history); err != nil {
			logger.WithError(err).Fatal("Failed to read run history")
		}
		return
	}

	// Prompt for the password when it is not in the environment
	if cfg.IMAPPassword == "" {
		password, err := promptPassword(cfg.IMAPUsername)
		if err != nil {
			logger.WithError(err).Fatal("Failed to read password")
		}
		cfg.IMAPPassword = password
	}

	logger.WithFields(logrus.Fields{
		"mailbox": cfg.Mailbox,
		"cutoff":  cfg.CutoffDate.Format(config.CutoffLayout),
		"dry_run": *dryRun,
	}).Info("Starting sweep")

	// Set up signal handling for cooperative cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig).Info("Stop requested, finishing current message")
		cancel()
	}()

	conn := email.NewManager(cfg, logger)
	scanner := cleanup.NewScanner(cfg, conn, cleanup.DefaultRuleset(), logger)
	scanner.OnProgress(printProgress)
	deleter := cleanup.NewDeleter(cfg, conn, logger)

	runner := cleanup.NewRunner(cfg, conn, scanner, deleter, logger)
	runner.SetConfirm(confirmDeletion)
	if store != nil {
		runner.SetAudit(store)
	}

	summary, err := runner.Run(ctx, *dryRun)
	if err != nil {
		logger.WithError(err).Error("Sweep failed")
		os.Exit(1)
	}

	printSummary(summary)
}

// promptPassword reads the IMAP password without echoing it.
func promptPassword(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "IMAP password for %s: ", username)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func printProgress(p types.Progress) {
	fmt.Printf("batch %d/%d | processed %d/%d | %.1f msg/s | ETA %s\n",
		p.Batch, p.Batches, p.Processed, p.Total, p.Rate, p.ETA.Round(time.Second))
}

// confirmDeletion shows the candidate sample and requires an explicit
// "yes" before anything is removed.
func confirmDeletion(result *types.ScanResult) bool {
	printCandidates(result.Candidates)

	fmt.Printf("\nProceed with deletion of %d messages? (yes/no): ", len(result.Candidates))
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "yes")
}

func printCandidates(candidates []types.Candidate) {
	const sampleSize = 5

	fmt.Printf("\nMessages identified for deletion:\n")
	for i, cand := range candidates {
		if i == sampleSize {
			fmt.Printf("  ... and %d more\n", len(candidates)-sampleSize)
			break
		}
		fmt.Printf("  %d. %s\n     From: %s\n     Reason: %s\n",
			i+1, truncate(cand.Subject, 60), truncate(cand.SenderFull, 50), cand.Reason)
	}
}

func printSummary(summary *types.RunSummary) {
	scan := summary.Scan

	fmt.Printf("\n")
	if scan.Stopped {
		fmt.Printf("Scan stopped early\n")
	}
	fmt.Printf("Processed: %d/%d | flagged for deletion: %d | kept: %d",
		scan.Processed, scan.Total, len(scan.Candidates), scan.Kept)
	if scan.Skipped > 0 {
		fmt.Printf(" | skipped: %d", scan.Skipped)
	}
	fmt.Printf("\n")

	if summary.DryRun {
		fmt.Printf("Dry run: no messages were deleted\n")
		if len(scan.Candidates) > 0 {
			printCandidates(scan.Candidates)
		}
		return
	}

	if summary.Deletion != nil {
		fmt.Printf("Deleted: %d | failed: %d\n", summary.Deletion.Successful, summary.Deletion.Failed)
		if summary.Deletion.CommitErr != nil {
			fmt.Printf("Warning: expunge failed (%v); flagged messages remain and will be purged next run\n",
				summary.Deletion.CommitErr)
		}
	}
}

func printHistory(store *audit.Store, limit int) error {
	runs, err := store.RecentRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	for _, run := range runs {
		mode := "delete"
		if run.DryRun {
			mode = "dry-run"
		}
		fmt.Printf("#%d %s %s [%s] processed %d/%d, flagged %d, kept %d",
			run.ID, run.StartedAt.Format(time.RFC3339), run.Mailbox, mode,
			run.Processed, run.Total, run.Flagged, run.Kept)
		if run.CommitError != "" {
			fmt.Printf(" (expunge failed: %s)", run.CommitError)
		}
		fmt.Println()
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
