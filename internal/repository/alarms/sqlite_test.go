package alarms

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/dronpoint-adapter/internal/domain/alarm"
)

func openTemp(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultDatabaseFilename)

	repo, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo, path
}

// TestSQLiteRepository_Empty verifies List on a fresh database returns an empty slice.
func TestSQLiteRepository_Empty(t *testing.T) {
	t.Parallel()

	repo, _ := openTemp(t)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

// TestSQLiteRepository_AddList stores notifications and lists them oldest first.
func TestSQLiteRepository_AddList(t *testing.T) {
	t.Parallel()

	repo, _ := openTemp(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	later := domain.NewNotification(16, 10.5, 20.25, base.Add(time.Minute))
	earlier := domain.NewNotification(2, 55.5, 37.25, base)

	require.NoError(t, repo.Add(ctx, later))
	require.NoError(t, repo.Add(ctx, earlier))
	require.Error(t, repo.Add(ctx, nil))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []*domain.Notification{earlier, later}, got)
}

// TestSQLiteRepository_Reopen keeps notifications across restarts.
func TestSQLiteRepository_Reopen(t *testing.T) {
	t.Parallel()

	repo, path := openTemp(t)
	n := domain.NewNotification(1, 1, 2, time.Now().UTC())
	require.NoError(t, repo.Add(context.Background(), n))
	require.NoError(t, repo.Close())

	reopened, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, n.ID, got[0].ID)
	require.True(t, n.ReceivedAt.Equal(got[0].ReceivedAt))
}
