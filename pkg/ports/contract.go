package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecordStoreContract runs a suite of tests to verify that a RecordStore
// implementation adheres to the interface contract.
func RunRecordStoreContract(t *testing.T, store RecordStore) {
	ctx := context.Background()
	id := "contract-test-run-" + time.Now().Format("20060102150405")

	newRecord := func(id string) *domain.RunRecord {
		return &domain.RunRecord{
			ID:         id,
			Experiment: "contract",
			Start:      "experiment",
			Status:     domain.RunStatusRunning,
			StartedAt:  time.Now().UTC().Truncate(time.Second),
			Globals:    map[string]string{"subject_nr": "3"},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		rec := newRecord(id)
		require.NoError(t, store.Save(ctx, rec), "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, rec.Start, loaded.Start)
		assert.Equal(t, rec.Status, loaded.Status)
		assert.Equal(t, "3", loaded.Globals["subject_nr"])
		assert.True(t, rec.StartedAt.Equal(loaded.StartedAt))
	})

	t.Run("Save Replaces", func(t *testing.T) {
		rec := newRecord(id)
		rec.Status = domain.RunStatusCompleted
		rec.TeardownErrors = []string{"close sound: boom"}
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusCompleted, loaded.Status)
		assert.Equal(t, []string{"close sound: boom"}, loaded.TeardownErrors)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newRecord(id)))
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound, "Load after Delete should return ErrRecordNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		_ = store.Save(ctx, newRecord(id1))
		_ = store.Save(ctx, newRecord(id2))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
