package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"enginectl/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStorage(t)

	run := &models.OperationRun{
		Operation:   models.OpBuild,
		ProjectName: "Game",
		Status:      models.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}

	id, err := s.CreateRun(run)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))
	run.ID = id

	got, err := s.GetRun(id)
	require.NoError(t, err)
	require.Equal(t, models.OpBuild, got.Operation)
	require.Equal(t, "Game", got.ProjectName)
	require.Equal(t, models.RunStatusRunning, got.Status)
	require.Nil(t, got.ExitCode)
	require.Nil(t, got.CompletedAt)
}

func TestFinishRun(t *testing.T) {
	s := newTestStorage(t)

	run := &models.OperationRun{
		Operation: models.OpRegenerate,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	id, err := s.CreateRun(run)
	require.NoError(t, err)
	run.ID = id

	now := time.Now().UTC()
	code := 1
	run.Status = models.RunStatusFailed
	run.ExitCode = &code
	run.Error = "build script failed"
	run.CompletedAt = &now
	require.NoError(t, s.FinishRun(run))

	got, err := s.GetRun(id)
	require.NoError(t, err)
	require.Equal(t, models.RunStatusFailed, got.Status)
	require.NotNil(t, got.ExitCode)
	require.Equal(t, 1, *got.ExitCode)
	require.Equal(t, "build script failed", got.Error)
	require.NotNil(t, got.CompletedAt)
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	s := newTestStorage(t)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_, err := s.CreateRun(&models.OperationRun{
			Operation: models.OpClean,
			Status:    models.RunStatusSucceeded,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	require.True(t, runs[1].StartedAt.After(runs[2].StartedAt))
}
