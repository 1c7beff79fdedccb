package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairradar/internal/dashboard/models"
	id "repairradar/pkg/domain"
)

func noopFetcher(context.Context, id.TenantID) (models.ModuleMetrics, error) {
	return models.ModuleMetrics{}, nil
}

func TestRegisterAndResolve(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{Key: "assets", DisplayName: "Assets", Fetch: noopFetcher}))

	d, ok := r.Resolve("assets")
	require.True(t, ok)
	assert.Equal(t, "Assets", d.DisplayName)

	_, ok = r.Resolve("parts")
	assert.False(t, ok)
}

func TestRegisterDuplicateKey(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{Key: "assets", Fetch: noopFetcher}))

	err := r.Register(Descriptor{Key: "assets", Fetch: noopFetcher})
	require.Error(t, err)

	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, Key("assets"), dup.Key)
}

func TestRegisterRejectsInvalidDescriptors(t *testing.T) {
	r := New()
	assert.Error(t, r.Register(Descriptor{Key: "", Fetch: noopFetcher}))
	assert.Error(t, r.Register(Descriptor{Key: "assets"}))
}

func TestKeysPreserveRegistrationOrder(t *testing.T) {
	r := New()
	for _, k := range []Key{"assets", "work-orders", "vendors"} {
		require.NoError(t, r.Register(Descriptor{Key: k, Fetch: noopFetcher}))
	}

	assert.Equal(t, []Key{"assets", "work-orders", "vendors"}, r.Keys())
	// Stable across calls
	assert.Equal(t, r.Keys(), r.Keys())
}

func TestKeysReturnsCopy(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{Key: "assets", Fetch: noopFetcher}))

	keys := r.Keys()
	keys[0] = "mutated"
	assert.Equal(t, []Key{"assets"}, r.Keys())
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := New()
	r.MustRegister(Descriptor{Key: "assets", Fetch: noopFetcher})
	assert.Panics(t, func() {
		r.MustRegister(Descriptor{Key: "assets", Fetch: noopFetcher})
	})
}
