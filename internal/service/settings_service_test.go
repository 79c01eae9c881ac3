package service

import (
	"context"
	"testing"

	"bookkeeping/internal/database"
	"bookkeeping/internal/model"
	"bookkeeping/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingEncoding_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		value interface{}
		raw   string
	}{
		{"string", model.SettingString, "zh-TW", "zh-TW"},
		{"integer number", model.SettingNumber, 5.0, "5"},
		{"fraction", model.SettingNumber, 0.125, "0.125"},
		{"boolean", model.SettingBoolean, true, "true"},
		{"json list", model.SettingJSON, []interface{}{"a", "b"}, `["a","b"]`},
		{"json object", model.SettingJSON, map[string]interface{}{"k": 1.0}, `{"k":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeSetting(tt.typ, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, raw)

			back, err := DecodeSetting(tt.typ, raw)
			require.NoError(t, err)
			assert.Equal(t, tt.value, back)
		})
	}

	_, err := EncodeSetting(model.SettingNumber, "five")
	assert.Error(t, err)
	_, err = EncodeSetting(model.SettingBoolean, "yes")
	assert.Error(t, err)
	_, err = DecodeSetting("blob", "x")
	assert.Error(t, err)
}

func TestSettingsService_SetAndGet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	v, err := h.settings.Set(ctx, "budget.warning_threshold", SetSettingRequest{Value: 75.0})
	require.NoError(t, err)
	assert.Equal(t, model.SettingNumber, v.Type, "existing type is kept")
	assert.Equal(t, 75.0, v.Value)
	assert.NotEmpty(t, v.Description, "existing description is kept")

	got, err := h.settings.Get(ctx, "budget.warning_threshold")
	require.NoError(t, err)
	assert.Equal(t, 75.0, got.Value)

	_, err = h.settings.Set(ctx, "budget.warning_threshold", SetSettingRequest{Value: "high"})
	assertKind(t, err, apperror.KindValidation)

	fresh, err := h.settings.Set(ctx, "ui.compact", SetSettingRequest{Value: true})
	require.NoError(t, err)
	assert.Equal(t, model.SettingBoolean, fresh.Type)

	_, err = h.settings.Get(ctx, "missing.key")
	assertKind(t, err, apperror.KindNotFound)
}

func TestSettingsService_ImportRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	before, err := h.settings.List(ctx)
	require.NoError(t, err)

	_, err = h.settings.Import(ctx, ImportSettingsRequest{
		Replace: true,
		Settings: []SettingInput{
			{Key: "a.valid", Value: "x"},
			{Key: "b.invalid", Value: "not a number", Type: model.SettingNumber},
		},
	})
	assertKind(t, err, apperror.KindValidation)

	after, err := h.settings.List(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "failed import leaves settings untouched")

	_, err = h.settings.Import(ctx, ImportSettingsRequest{Settings: []SettingInput{{Key: "dup", Value: "1"}, {Key: "dup", Value: "2"}}})
	assertKind(t, err, apperror.KindValidation)
}

func TestSettingsService_ExportImportReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.settings.Set(ctx, "app.language", SetSettingRequest{Value: "en"})
	require.NoError(t, err)

	exp, err := h.settings.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", exp.Version)

	inputs := make([]SettingInput, 0, len(exp.Settings))
	for _, s := range exp.Settings {
		desc := s.Description
		inputs = append(inputs, SettingInput{Key: s.Key, Value: s.Value, Type: s.Type, Description: &desc})
	}
	n, err := h.settings.Import(ctx, ImportSettingsRequest{Settings: inputs, Replace: true})
	require.NoError(t, err)
	assert.Equal(t, len(exp.Settings), n)

	lang, err := h.settings.Get(ctx, "app.language")
	require.NoError(t, err)
	assert.Equal(t, "en", lang.Value)

	reset, err := h.settings.Reset(ctx)
	require.NoError(t, err)
	assert.Len(t, reset, len(database.DefaultSettings()))
	lang, err = h.settings.Get(ctx, "app.language")
	require.NoError(t, err)
	assert.Equal(t, "zh-TW", lang.Value)
}

func TestSettingsService_Company(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.settings.Company(ctx, "u1")
	assertKind(t, err, apperror.KindNotFound)

	c, err := h.settings.UpsertCompany(ctx, "u1", CompanyRequest{CompanyName: "X", TaxID: "12345678"})
	require.NoError(t, err)
	assert.Equal(t, "X", c.CompanyName)

	c, err = h.settings.UpsertCompany(ctx, "u1", CompanyRequest{CompanyName: "Y"})
	require.NoError(t, err)
	assert.Equal(t, "Y", c.CompanyName)

	got, err := h.settings.Company(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Y", got.CompanyName)
}
