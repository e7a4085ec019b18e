package database

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/example/dpx/internal/errors"
	"github.com/example/dpx/pkg/models"
)

func TestParticipantCreateAndGet(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	repo := NewParticipantRepository()

	p := createParticipant(t, 1001)
	assert.NotZero(t, p.ID)

	got, err := repo.GetByTelegramID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Ada", got.FirstName)
	assert.True(t, got.CreatedAt.Equal(p.CreatedAt))

	byID, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), byID.TelegramID)
}

func TestParticipantNotFound(t *testing.T) {
	setupDB(t)

	_, err := NewParticipantRepository().GetByTelegramID(context.Background(), 42)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestParticipantGetOrCreate(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	repo := NewParticipantRepository()

	first, err := repo.GetOrCreate(ctx, &models.Participant{TelegramID: 7, ChatID: 70, Username: "old"})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := repo.GetOrCreate(ctx, &models.Participant{TelegramID: 7, ChatID: 71, Username: "new", IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(71), got.ChatID)
	assert.Equal(t, "new", got.Username)
	assert.True(t, got.IsAdmin)
}

func TestParticipantGetOrCreateConcurrent(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	repo := NewParticipantRepository()

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := repo.GetOrCreate(ctx, &models.Participant{TelegramID: 9, ChatID: 90})
			errs[i] = err
			if err == nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.NotZero(t, ids[0])
}

func TestParticipantDisplayName(t *testing.T) {
	assert.Equal(t, "Ada", models.Participant{FirstName: "Ada", Username: "ada"}.DisplayName())
	assert.Equal(t, "@ada", models.Participant{Username: "ada"}.DisplayName())
	assert.Equal(t, "participant", models.Participant{}.DisplayName())
}
