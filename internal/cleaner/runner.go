package cleaner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"popsweep/internal/config"
)

// FailureKind classifies where in the per-account exchange a failure
// happened.
type FailureKind string

const (
	// KindConnect covers dial and TLS failures.
	KindConnect FailureKind = "connect"
	// KindAuth covers USER/PASS rejection and missing passwords.
	KindAuth FailureKind = "auth"
	// KindProtocol covers STAT/DELE failures mid-session.
	KindProtocol FailureKind = "protocol"
	// KindCommit means QUIT failed after deletes were marked; the server may
	// or may not have removed the messages.
	KindCommit FailureKind = "commit"
)

// AccountError is a per-account failure tagged with the exchange step it
// occurred at.
type AccountError struct {
	Kind FailureKind
	Err  error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AccountError) Unwrap() error { return e.Err }

// Result is the outcome for a single account.
type Result struct {
	Email   string
	Skipped bool
	Success bool
	Deleted int
	Err     *AccountError
}

// Summary aggregates a full run. Skipped accounts are excluded from both
// Attempted and Succeeded.
type Summary struct {
	Attempted    int
	Succeeded    int
	Skipped      int
	TotalDeleted int
	Results      []Result
}

// Failed reports how many attempted accounts did not succeed.
func (s Summary) Failed() int { return s.Attempted - s.Succeeded }

// Runner purges all messages from every enabled account, one account at a
// time. A failure on one account never aborts the rest of the batch.
type Runner struct {
	dial   DialFunc
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// New builds a Runner, failing if a dialer or logger is missing.
func New(opts ...Option) (*Runner, error) {
	var r Runner
	for _, opt := range opts {
		opt(&r)
	}

	if r.dial == nil {
		return nil, errors.New("requires dialer")
	}
	if r.logger == nil {
		return nil, errors.New("requires logger")
	}

	return &r, nil
}

// WithDialer sets the session dialer.
func WithDialer(dial DialFunc) Option {
	return func(r *Runner) {
		r.dial = dial
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// Run processes every account in list order and returns the aggregate
// summary. Disabled accounts are logged as skipped. The context is checked
// between accounts; an in-flight session is not cancellable.
func (r *Runner) Run(ctx context.Context, accounts []config.Account) Summary {
	summary := Summary{}

	enabled := 0
	for _, account := range accounts {
		if account.Enabled {
			enabled++
		}
	}
	// Zero enabled accounts is a warning, not an early exit: disabled
	// accounts still get their skip log lines and the summary below.
	if enabled == 0 {
		r.logger.WarnContext(ctx, "no enabled accounts configured")
	} else {
		r.logger.InfoContext(ctx, "starting cleanup",
			slog.Int("accounts", len(accounts)),
			slog.Int("enabled", enabled))
	}

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			r.logger.ErrorContext(ctx, "cleanup aborted", slog.Any("error", err))
			break
		}

		if !account.Enabled {
			r.logger.InfoContext(ctx, "skipping disabled account",
				slog.String("email", account.Email))
			summary.Skipped++
			summary.Results = append(summary.Results, Result{Email: account.Email, Skipped: true})
			continue
		}

		summary.Attempted++
		deleted, err := r.cleanAccount(ctx, account)
		result := Result{Email: account.Email, Deleted: deleted}
		if err != nil {
			result.Err = err
			if err.Kind == KindCommit {
				r.logger.ErrorContext(ctx, "session close failed after marking deletes; deletions may not have been committed",
					slog.String("email", account.Email),
					slog.Any("error", err.Err))
			} else {
				r.logger.ErrorContext(ctx, "account cleanup failed",
					slog.String("email", account.Email),
					slog.String("kind", string(err.Kind)),
					slog.Any("error", err.Err))
			}
		} else {
			result.Success = true
			summary.Succeeded++
			summary.TotalDeleted += deleted
		}
		summary.Results = append(summary.Results, result)
	}

	r.logger.InfoContext(ctx, "cleanup completed",
		slog.Int("attempted", summary.Attempted),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("total_deleted", summary.TotalDeleted))

	return summary
}

// cleanAccount runs the fixed exchange for one account: connect,
// authenticate, count, mark every message deleted, quit. Deleted counts only
// become part of the aggregate once the quit commits them.
func (r *Runner) cleanAccount(ctx context.Context, account config.Account) (int, *AccountError) {
	r.logger.InfoContext(ctx, "processing account", slog.String("email", account.Email))

	password := account.ResolvePassword()
	if password == "" {
		return 0, &AccountError{Kind: KindAuth, Err: errors.New("no password configured")}
	}

	session, err := r.dial(account.Server, account.Port)
	if err != nil {
		return 0, &AccountError{Kind: KindConnect, Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = session.Quit()
		}
	}()

	if err := session.Login(account.Email, password); err != nil {
		return 0, &AccountError{Kind: KindAuth, Err: err}
	}

	count, err := session.Count()
	if err != nil {
		return 0, &AccountError{Kind: KindProtocol, Err: errors.Wrap(err, "listing messages")}
	}
	r.logger.InfoContext(ctx, "found messages",
		slog.String("email", account.Email),
		slog.Int("count", count))

	if count == 0 {
		r.logger.InfoContext(ctx, "no messages to delete", slog.String("email", account.Email))
	}
	for i := 1; i <= count; i++ {
		if err := session.Delete(i); err != nil {
			return 0, &AccountError{Kind: KindProtocol, Err: errors.Wrapf(err, "deleting message %d", i)}
		}
	}

	committed = true
	if err := session.Quit(); err != nil {
		return 0, &AccountError{Kind: KindCommit, Err: err}
	}

	if count > 0 {
		r.logger.InfoContext(ctx, "deleted messages",
			slog.String("email", account.Email),
			slog.Int("count", count))
	}
	return count, nil
}
