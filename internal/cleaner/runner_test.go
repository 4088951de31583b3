package cleaner

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"popsweep/internal/cleaner/mocks"
	"popsweep/internal/config"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func newRunner(t *testing.T, buf *bytes.Buffer, dial DialFunc) *Runner {
	t.Helper()
	runner, err := New(WithLogger(testLogger(buf)), WithDialer(dial))
	require.NoError(t, err)
	return runner
}

func enabledAccount(email string) config.Account {
	return config.Account{
		Email:    email,
		Password: "pw",
		Server:   "pop.example.com",
		Port:     995,
		Enabled:  true,
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(WithLogger(testLogger(&bytes.Buffer{})))
	require.Error(t, err)

	_, err = New(WithDialer(func(string, int) (Session, error) { return nil, nil }))
	require.Error(t, err)
}

func TestRunNoEnabledAccounts(t *testing.T) {
	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) {
		t.Fatal("dial must not be called with no enabled accounts")
		return nil, nil
	})

	summary := runner.Run(context.Background(), []config.Account{
		{Email: "a@example.com", Server: "pop.example.com", Password: "pw"},
	})

	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Contains(t, buf.String(), "no enabled accounts configured")
}

func TestRunAllDisabledStillLogsAndCountsSkips(t *testing.T) {
	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) {
		t.Fatal("dial must not be called with no enabled accounts")
		return nil, nil
	})

	disabledA := enabledAccount("a@example.com")
	disabledA.Enabled = false
	disabledB := enabledAccount("b@example.com")
	disabledB.Enabled = false
	summary := runner.Run(context.Background(), []config.Account{disabledA, disabledB})

	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 2, summary.Skipped)
	require.Len(t, summary.Results, 2)
	assert.True(t, summary.Results[0].Skipped)
	assert.True(t, summary.Results[1].Skipped)
	assert.Contains(t, buf.String(), "no enabled accounts configured")
	assert.Contains(t, buf.String(), "skipping disabled account")
	assert.Contains(t, buf.String(), "cleanup completed")
}

func TestRunSkipsDisabledAccounts(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)
	session.EXPECT().Login("b@example.com", "pw").Return(nil)
	session.EXPECT().Count().Return(0, nil)
	session.EXPECT().Quit().Return(nil)

	var buf bytes.Buffer
	dials := 0
	runner := newRunner(t, &buf, func(host string, port int) (Session, error) {
		dials++
		return session, nil
	})

	disabled := enabledAccount("a@example.com")
	disabled.Enabled = false
	summary := runner.Run(context.Background(), []config.Account{
		disabled,
		enabledAccount("b@example.com"),
	})

	assert.Equal(t, 1, dials)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Results, 2)
	assert.True(t, summary.Results[0].Skipped)
	assert.Contains(t, buf.String(), "skipping disabled account")
}

func TestRunEmptyMailboxIsSuccessWithoutDeletes(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)
	gomock.InOrder(
		session.EXPECT().Login("a@example.com", "pw").Return(nil),
		session.EXPECT().Count().Return(0, nil),
		session.EXPECT().Quit().Return(nil),
	)

	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) { return session, nil })

	summary := runner.Run(context.Background(), []config.Account{enabledAccount("a@example.com")})

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.TotalDeleted)
	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].Success)
	assert.Equal(t, 0, summary.Results[0].Deleted)
	assert.Contains(t, buf.String(), "no messages to delete")
}

func TestRunDeletesEveryMessageInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)
	gomock.InOrder(
		session.EXPECT().Login("a@example.com", "pw").Return(nil),
		session.EXPECT().Count().Return(3, nil),
		session.EXPECT().Delete(1).Return(nil),
		session.EXPECT().Delete(2).Return(nil),
		session.EXPECT().Delete(3).Return(nil),
		session.EXPECT().Quit().Return(nil),
	)

	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) { return session, nil })

	summary := runner.Run(context.Background(), []config.Account{enabledAccount("a@example.com")})

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 3, summary.TotalDeleted)
}

func TestRunAuthFailureDoesNotAbortBatch(t *testing.T) {
	ctrl := gomock.NewController(t)

	failing := mocks.NewMockSession(ctrl)
	gomock.InOrder(
		failing.EXPECT().Login("a@example.com", "pw").Return(errors.New("invalid credentials")),
		failing.EXPECT().Quit().Return(nil),
	)

	succeeding := mocks.NewMockSession(ctrl)
	gomock.InOrder(
		succeeding.EXPECT().Login("b@example.com", "pw").Return(nil),
		succeeding.EXPECT().Count().Return(5, nil),
		succeeding.EXPECT().Delete(gomock.Any()).Return(nil).Times(5),
		succeeding.EXPECT().Quit().Return(nil),
	)

	sessions := []Session{failing, succeeding}
	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) {
		next := sessions[0]
		sessions = sessions[1:]
		return next, nil
	})

	summary := runner.Run(context.Background(), []config.Account{
		enabledAccount("a@example.com"),
		enabledAccount("b@example.com"),
	})

	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 5, summary.TotalDeleted)
	require.Len(t, summary.Results, 2)
	require.NotNil(t, summary.Results[0].Err)
	assert.Equal(t, KindAuth, summary.Results[0].Err.Kind)
	assert.Contains(t, buf.String(), "account cleanup failed")
}

func TestRunConnectFailure(t *testing.T) {
	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) {
		return nil, errors.New("connection refused")
	})

	summary := runner.Run(context.Background(), []config.Account{enabledAccount("a@example.com")})

	assert.Equal(t, 0, summary.Succeeded)
	require.Len(t, summary.Results, 1)
	require.NotNil(t, summary.Results[0].Err)
	assert.Equal(t, KindConnect, summary.Results[0].Err.Kind)
}

func TestRunCommitFailureExcludedFromTotals(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)
	gomock.InOrder(
		session.EXPECT().Login("a@example.com", "pw").Return(nil),
		session.EXPECT().Count().Return(4, nil),
		session.EXPECT().Delete(gomock.Any()).Return(nil).Times(4),
		session.EXPECT().Quit().Return(errors.New("connection reset")),
	)

	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) { return session, nil })

	summary := runner.Run(context.Background(), []config.Account{enabledAccount("a@example.com")})

	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 0, summary.TotalDeleted)
	require.Len(t, summary.Results, 1)
	require.NotNil(t, summary.Results[0].Err)
	assert.Equal(t, KindCommit, summary.Results[0].Err.Kind)
	assert.Contains(t, buf.String(), "deletions may not have been committed")
}

func TestRunProtocolFailureMidDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)
	gomock.InOrder(
		session.EXPECT().Login("a@example.com", "pw").Return(nil),
		session.EXPECT().Count().Return(2, nil),
		session.EXPECT().Delete(1).Return(errors.New("server error")),
		session.EXPECT().Quit().Return(nil),
	)

	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) { return session, nil })

	summary := runner.Run(context.Background(), []config.Account{enabledAccount("a@example.com")})

	assert.Equal(t, 0, summary.Succeeded)
	require.Len(t, summary.Results, 1)
	require.NotNil(t, summary.Results[0].Err)
	assert.Equal(t, KindProtocol, summary.Results[0].Err.Kind)
}

func TestRunMissingPasswordIsAuthFailureWithoutDialing(t *testing.T) {
	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) {
		t.Fatal("dial must not be called without a password")
		return nil, nil
	})

	account := enabledAccount("a@example.com")
	account.Password = ""
	summary := runner.Run(context.Background(), []config.Account{account})

	assert.Equal(t, 0, summary.Succeeded)
	require.Len(t, summary.Results, 1)
	require.NotNil(t, summary.Results[0].Err)
	assert.Equal(t, KindAuth, summary.Results[0].Err.Kind)
	assert.Contains(t, summary.Results[0].Err.Error(), "no password configured")
}

func TestRunResolvesPasswordFromEnvironment(t *testing.T) {
	t.Setenv("MAIL_PASS_A_EXAMPLE_COM", "env-secret")

	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)
	gomock.InOrder(
		session.EXPECT().Login("a@example.com", "env-secret").Return(nil),
		session.EXPECT().Count().Return(0, nil),
		session.EXPECT().Quit().Return(nil),
	)

	var buf bytes.Buffer
	runner := newRunner(t, &buf, func(string, int) (Session, error) { return session, nil })

	account := enabledAccount("a@example.com")
	account.Password = ""
	summary := runner.Run(context.Background(), []config.Account{account})

	assert.Equal(t, 1, summary.Succeeded)
}
