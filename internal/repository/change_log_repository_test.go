package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeLogAppendAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewChangeLogRepository(db)
	ctx := context.Background()

	for i, action := range []string{entity.ActionCreated, entity.ActionUpdated, entity.ActionDeleted} {
		require.NoError(t, repo.Append(ctx, &entity.ChangeLog{
			Action:      action,
			EntityType:  entity.EntityTypeComponent,
			EntityID:    "c1",
			ProductID:   "p1",
			Changes:     entity.JSONB{"quantity": float64(i)},
			PerformedBy: "u1",
			Timestamp:   t0.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Append(ctx, &entity.ChangeLog{
		Action: entity.ActionCreated, EntityType: entity.EntityTypeProduct, EntityID: "p2", ProductID: "p2",
	}))

	items, total, err := repo.ListByProduct(ctx, "p1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.Equal(t, entity.ActionDeleted, items[0].Action)
	assert.Equal(t, float64(2), items[0].Changes["quantity"])

	items, total, err = repo.ListByEntity(ctx, entity.EntityTypeProduct, "p2", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.False(t, items[0].Timestamp.IsZero())
}

func TestScenarioSaveAndApply(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewScenarioRepository(db)
	ctx := context.Background()

	s := &entity.Scenario{ProductID: "p1", Name: "green energy", EnergyMix: "renewable", EOLStrategy: "recycling", BaselineTotal: 10, ProjectedTotal: 5.4}
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.MarkApplied(ctx, s.ID, t0))

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Applied)
	require.NotNil(t, got.AppliedAt)

	items, err := repo.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	assert.ErrorIs(t, repo.MarkApplied(ctx, "missing", t0), ErrNotFound)
}
