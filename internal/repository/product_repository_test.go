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

func TestProductCRUD(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := &entity.Product{Code: "P-100", Name: "Aluminium Bracket", QuantityAmount: 1, Unit: "piece", SystemBoundary: "cradle_to_gate", CreatedBy: "u1"}
	require.NoError(t, repo.Create(ctx, p))
	assert.Len(t, p.ID, 32)

	got, err := repo.FindByCode(ctx, "P-100")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	now := time.Now().UTC()
	require.NoError(t, repo.UpdateFields(ctx, p.ID, map[string]interface{}{
		"total_co2e_kg":        12.5,
		"status":               entity.ProductStatusCompleted,
		"last_calculated_date": now,
	}))
	got, err = repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, got.TotalCo2eKg, 1e-9)
	assert.Equal(t, entity.ProductStatusCompleted, got.Status)
	require.NotNil(t, got.LastCalculatedDate)

	assert.ErrorIs(t, repo.UpdateFields(ctx, "missing", map[string]interface{}{"status": "completed"}), ErrNotFound)
}

func TestProductDeleteCascadesComponents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	testutil.SeedProduct(t, db, "p1", "P-001", "cradle_to_gate")
	testutil.SeedComponent(t, db, "p1", "a", "", "production", 1, 1, t0)

	require.NoError(t, repo.Delete(ctx, "p1"))
	_, err := repo.FindByID(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := NewComponentRepository(db).CountByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.Delete(ctx, "p1"), ErrNotFound)
}

func TestProductListFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	testutil.SeedProduct(t, db, "p1", "BRK-001", "cradle_to_gate")
	testutil.SeedProduct(t, db, "p2", "BRK-002", "cradle_to_grave")
	testutil.SeedProduct(t, db, "p3", "CAS-001", "gate_to_gate")

	items, total, err := repo.List(ctx, 1, 10, map[string]interface{}{"keyword": "brk"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	items, total, err = repo.List(ctx, 2, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 1)
}
