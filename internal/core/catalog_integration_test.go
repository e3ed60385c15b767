package core_test

import (
	"context"
	"errors"
	"testing"

	"parstock/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ItemLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	catalog := core.NewCatalogService(pool)
	vendors := core.NewVendorService(pool)
	ctx := context.Background()

	v, err := vendors.CreateVendor(ctx, core.VendorInput{Name: "Linen Supply Co", Email: "orders@linen.test"})
	require.NoError(t, err)

	cost := d("12.00")
	item, err := catalog.CreateItem(ctx, core.ItemInput{
		Name: "Pillow Case", ShortCode: "PLW", UnitOfMeasure: "ea", DefaultVendorID: &v.ID, Cost: &cost, LeadTimeDays: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "PLW", item.ShortCode)

	found, err := catalog.LookupItem(ctx, "PLW")
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)

	_, err = catalog.CreateItem(ctx, core.ItemInput{Name: "Duplicate", ShortCode: "PLW", UnitOfMeasure: "ea"})
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "duplicate short code: %v", err)

	require.NoError(t, catalog.DeactivateItem(ctx, item.ID))
	items, err := catalog.ListItems(ctx, core.ItemFilter{Search: "Pillow"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCatalog_LocationPaths(t *testing.T) {
	pool := setupTestDB(t)
	catalog := core.NewCatalogService(pool)
	ctx := context.Background()

	parent := storeroomID
	cart, err := catalog.CreateLocation(ctx, core.LocationInput{Name: "Cart A", Type: core.LocationCart, ParentLocationID: &parent})
	require.NoError(t, err)

	got, err := catalog.GetLocation(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main Storeroom > Cart A", got.Path)
}

func TestUsers_AuthenticateAndGrants(t *testing.T) {
	pool := setupTestDB(t)
	users := core.NewUserService(pool)
	ctx := context.Background()

	u, err := users.Create(ctx, core.UserInput{Username: "clerk", Password: "s3cret-pass", Role: core.RoleSupervisor})
	require.NoError(t, err)

	_, err = users.Authenticate(ctx, "clerk", "wrong")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)

	authed, err := users.Authenticate(ctx, "clerk", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, authed.ID)

	grant := core.Capability{Module: core.ModuleReports, Action: core.ActionView}
	require.NoError(t, users.SetGrants(ctx, u.ID, []core.Capability{grant}, adminID))

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []core.Capability{grant}, got.Grants)

	require.NoError(t, users.Deactivate(ctx, u.ID))
	_, err = users.Authenticate(ctx, "clerk", "s3cret-pass")
	assert.Error(t, err)
}
