package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-exchange/internal/models"
)

func TestConditionLookup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	tests := []struct {
		input string
		want  string
	}{
		{"NM", "NM"},
		{"nm", "NM"},
		{"Near Mint", "NM"},
		{"  vg+ ", "VG+"},
		{"M", "Mint"},
		{"fair", "Poor"},
		{"Unknown", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tier, err := env.conditions.Lookup(ctx, tt.input)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, tier)
				return
			}
			require.NotNil(t, tier)
			assert.Equal(t, tt.want, tier.Name)
		})
	}
}

func TestConditionLookupCaches(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	tier, err := env.conditions.Lookup(ctx, "Mint")
	require.NoError(t, err)
	require.NotNil(t, tier)

	// The cached tier survives a change underneath until purged
	require.NoError(t, env.db.Model(&models.ConditionTier{}).Where("id = ?", tier.ID).Update("media_adjustment", 2.0).Error)
	cached, err := env.conditions.Lookup(ctx, "mint")
	require.NoError(t, err)
	assert.Equal(t, 1.15, cached.MediaAdjustment)

	env.conditions.Purge()
	fresh, err := env.conditions.Lookup(ctx, "Mint")
	require.NoError(t, err)
	assert.Equal(t, 2.0, fresh.MediaAdjustment)
}

func TestValidateConditions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	assert.NoError(t, env.conditions.ValidateConditions(ctx, "NM", "VG+"))

	err := env.conditions.ValidateConditions(ctx, "NM", "Sealed")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCondition))
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "condition_sleeve", ve.Field)
}

func TestListConditions(t *testing.T) {
	env := newTestEnv(t)
	tiers, err := env.conditions.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tiers, 7)
	assert.Equal(t, "Mint", tiers[0].Name)
	assert.Equal(t, "Poor", tiers[6].Name)
}
