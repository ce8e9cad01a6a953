package workspace_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ai-artist-backend/internal/database"
	"ai-artist-backend/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*workspace.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workspace.db")
	s, err := workspace.Open(context.Background(), database.SQLite, path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestAdd_NormalizesBareBase64(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	c, err := s.Add(ctx, workspace.KindImage, "QUJD")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,QUJD", c.Payload)
	assert.Equal(t, "image/png", c.MimeType)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "data:image/png;base64,QUJD", list[0].Payload)
}

func TestAdd_KeepsDataURI(t *testing.T) {
	s, _ := openStore(t)
	c, err := s.Add(context.Background(), workspace.KindImage, "data:image/jpeg;base64,QUJD")
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,QUJD", c.Payload)
	assert.Equal(t, "image/jpeg", c.MimeType)
}

func TestAdd_RejectsBadInput(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, workspace.KindVideo, "QUJD")
	assert.ErrorIs(t, err, workspace.ErrInvalidPayload)

	_, err = s.Add(ctx, "gif", "QUJD")
	assert.ErrorIs(t, err, workspace.ErrInvalidKind)

	_, err = s.Add(ctx, workspace.KindImage, "  ")
	assert.ErrorIs(t, err, workspace.ErrInvalidPayload)

	_, err = s.Add(ctx, workspace.KindImage, "not base64 at all!!")
	assert.ErrorIs(t, err, workspace.ErrInvalidPayload)

	_, err = s.Add(ctx, workspace.KindVideo, "data:video/mp4;base64,%%%")
	assert.ErrorIs(t, err, workspace.ErrInvalidPayload)

	_, err = s.Add(ctx, workspace.KindImage, "data:image/png;base64,")
	assert.ErrorIs(t, err, workspace.ErrInvalidPayload)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddBlob_VideoBecomesDataURI(t *testing.T) {
	s, _ := openStore(t)
	c, err := s.AddBlob(context.Background(), workspace.KindVideo, []byte("movie"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "data:video/mp4;base64,bW92aWU=", c.Payload)
	assert.Equal(t, workspace.KindVideo, c.Kind)
}

func TestList_NewestFirst(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	empty, err := s.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	var ids []int64
	for _, p := range []string{"QQ==", "Qg==", "Qw=="} {
		c, err := s.Add(ctx, workspace.KindImage, p)
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt))
	}
}

func TestList_OrderSurvivesFrozenClock(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return frozen })

	first, err := s.Add(ctx, workspace.KindImage, "QQ==")
	require.NoError(t, err)
	second, err := s.Add(ctx, workspace.KindImage, "Qg==")
	require.NoError(t, err)

	assert.True(t, second.CreatedAt.After(first.CreatedAt))
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestDelete_MissingIsNoop(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	c, err := s.Add(ctx, workspace.KindImage, "QQ==")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, 9999))
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, c.ID))
	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClear_DoesNotReuseIDs(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	var maxID int64
	for _, p := range []string{"QQ==", "Qg=="} {
		c, err := s.Add(ctx, workspace.KindImage, p)
		require.NoError(t, err)
		maxID = c.ID
	}

	require.NoError(t, s.Clear(ctx))
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	c, err := s.Add(ctx, workspace.KindImage, "Qw==")
	require.NoError(t, err)
	assert.Greater(t, c.ID, maxID)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workspace.db")

	s, err := workspace.Open(ctx, database.SQLite, path, nil)
	require.NoError(t, err)
	first, err := s.Add(ctx, workspace.KindImage, "QQ==")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = workspace.Open(ctx, database.SQLite, path, nil)
	require.NoError(t, err)
	defer s.Close()

	second, err := s.Add(ctx, workspace.KindImage, "Qg==")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestAdd_ConcurrentIDsUnique(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[int64]bool{}
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := s.Add(ctx, workspace.KindImage, "QQ==")
			if assert.NoError(t, err) {
				mu.Lock()
				ids[c.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 10)
}

func TestStorageError_OnClosedStore(t *testing.T) {
	s, _ := openStore(t)
	require.NoError(t, s.Close())

	_, err := s.List(context.Background())
	require.Error(t, err)
	var se *workspace.StorageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "list creations", se.Op)
}
