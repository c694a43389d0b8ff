package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pages-cd/internal/adapter/notification"
	"pages-cd/internal/core/outcome"
	"pages-cd/internal/pkg/config"
	"pages-cd/pkg/constants"
	pkgErrors "pages-cd/pkg/errors"
)

type recordingNotifier struct {
	mu       sync.Mutex
	failures []string
	runIDs   []string
	err      error
}

func (n *recordingNotifier) Send(context.Context, *notification.NotificationMessage) error {
	return n.err
}

func (n *recordingNotifier) SendJobFailure(_ context.Context, job, runID string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, job)
	n.runIDs = append(n.runIDs, runID)
	return n.err
}

func testJobsConfig() *config.JobsConfig {
	return &config.JobsConfig{
		NightlyBuilds:         "0 0 5 * * *",
		TimeoutBuilds:         "0 */15 * * * *",
		ArchiveBuildLogs:      "0 0 4 * * *",
		VerifyRepositories:    "0 0 3 * * *",
		RevokeInactiveMembers: "0 0 2 * * *",
	}
}

func TestTriggerFailureNotifies(t *testing.T) {
	svc := &fakeKeyedService{results: []outcome.Keyed[int64, int64]{keyed[int64](3, because)}}
	notifier := &recordingNotifier{err: errors.New("webhook down")}
	core, logs := observer.New(zapcore.InfoLevel)

	s := NewScheduler(newJobs(JobServices{Timeout: svc}), testJobsConfig(), notifier, zap.New(core))

	err := s.Trigger(context.Background(), constants.JobTimeoutStaleBuilds)
	assert.EqualError(t, err, "1 build tasks could not be canceled:\n3: because")

	require.Equal(t, []string{constants.JobTimeoutStaleBuilds}, notifier.failures)
	_, parseErr := uuid.Parse(notifier.runIDs[0])
	assert.NoError(t, parseErr)

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 1)
	assert.Equal(t, constants.JobTimeoutStaleBuilds, errorLogs[0].ContextMap()["job"])
	assert.Equal(t, notifier.runIDs[0], errorLogs[0].ContextMap()["run_id"])
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestTriggerSuccess(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewScheduler(newJobs(JobServices{Verifier: &fakeKeyedService{}}), testJobsConfig(), notifier, zap.NewNop())

	assert.NoError(t, s.Trigger(context.Background(), constants.JobVerifyRepositories))
	assert.Empty(t, notifier.failures)
}

func TestTriggerUnknownJob(t *testing.T) {
	s := NewScheduler(newJobs(JobServices{}), testJobsConfig(), &recordingNotifier{}, zap.NewNop())

	assert.ErrorIs(t, s.Trigger(context.Background(), "drop_tables"), pkgErrors.ErrUnknownJob)
}

func TestStartRegistersJobs(t *testing.T) {
	cfg := testJobsConfig()
	cfg.RevokeInactiveMembers = ""
	s := NewScheduler(newJobs(JobServices{}), cfg, &recordingNotifier{}, zap.NewNop())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cronSchedules, 4)
	assert.NotContains(t, s.cronSchedules, constants.JobRevokeInactiveMembership)
	assert.Len(t, s.cron.Entries(), 4)
}

func TestStartInvalidCron(t *testing.T) {
	cfg := testJobsConfig()
	cfg.NightlyBuilds = "every night"
	s := NewScheduler(newJobs(JobServices{}), cfg, &recordingNotifier{}, zap.NewNop())

	assert.Error(t, s.Start())
}
