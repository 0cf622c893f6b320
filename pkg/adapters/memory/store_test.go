package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/sesame/pkg/adapters/memory"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.RecordStore = (*memory.Store)(nil)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunRecordStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	rec := &domain.RunRecord{ID: "r1", Globals: map[string]string{"subject_nr": "1"}}
	require.NoError(t, store.Save(ctx, rec))
	rec.Globals["subject_nr"] = "2"

	loaded, err := store.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "1", loaded.Globals["subject_nr"])

	loaded.Globals["subject_nr"] = "3"
	again, _ := store.Load(ctx, "r1")
	assert.Equal(t, "1", again.Globals["subject_nr"])
}
