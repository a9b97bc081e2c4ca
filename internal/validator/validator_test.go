package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thresholdsInput struct {
	Slug              string `json:"slug" validate:"omitempty,slug"`
	Color             string `json:"qrColor" validate:"omitempty,hexcolor"`
	StoreThreshold    *int   `json:"storeThreshold" validate:"omitnil,store-threshold"`
	RedirectThreshold *int   `json:"redirectThreshold" validate:"omitnil,redirect-threshold"`
}

func intPtr(n int) *int { return &n }

func TestValidate_CustomRules(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(thresholdsInput{
		Slug:              "acme-corp",
		Color:             "#ff0000",
		StoreThreshold:    intPtr(0),
		RedirectThreshold: intPtr(6),
	}))
	assert.NoError(t, v.Validate(thresholdsInput{}), "unset overrides are valid")

	err := v.Validate(thresholdsInput{
		Slug:              "Acme Corp",
		StoreThreshold:    intPtr(6),
		RedirectThreshold: intPtr(0),
	})
	require.Error(t, err)

	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Contains(t, vErr.Errors, "slug")
	assert.Equal(t, "Must be between 0 and 5", vErr.Errors["storeThreshold"])
	assert.Equal(t, "Must be between 1 and 6", vErr.Errors["redirectThreshold"])
}

func TestValidate_SlugShapes(t *testing.T) {
	v := New()
	for slug, valid := range map[string]bool{
		"test-client":  true,
		"client-1700":  true,
		"a":            true,
		"-leading":     false,
		"double--dash": false,
		"UPPER":        false,
		"under_score":  false,
	} {
		err := v.Validate(thresholdsInput{Slug: slug})
		assert.Equal(t, valid, err == nil, slug)
	}
}
