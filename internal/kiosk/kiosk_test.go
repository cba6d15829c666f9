package kiosk

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"norel-backend/internal/models"
	"norel-backend/internal/share"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope() *share.Envelope {
	return &share.Envelope{
		ProfileID: "p1",
		Fields: map[string]string{
			"firstName":             "Jane",
			"middleName":            "Q",
			"lastName":              "Doe",
			"email":                 "jane@x.com",
			"phone":                 "+91 98765 43210",
			"addressLine1":          "12 MG Road",
			"city":                  "Pune",
			"postalCode":            "411001",
			"employer":              "Acme",
			"emergencyContactName":  "John Doe",
			"emergencyContactPhone": "+91 91234 56789",
		},
	}
}

func mustTemplate(t *testing.T, id string) models.FormTemplate {
	t.Helper()
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	tpl, err := catalog.Get(id)
	require.NoError(t, err)
	return tpl
}

func TestDefaultCatalog(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	ids := []string{}
	for _, tpl := range catalog.List() {
		ids = append(ids, tpl.ID)
		assert.NotEmpty(t, tpl.Fields)
	}
	assert.Equal(t, []string{"bank_account", "medical_registration", "government_service"}, ids)

	_, err = catalog.Get("passport")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestCatalogIsImmutable(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	tpl, err := catalog.Get("bank_account")
	require.NoError(t, err)
	tpl.Fields[0].Label = "changed"

	again, err := catalog.Get("bank_account")
	require.NoError(t, err)
	assert.Equal(t, "Full Name", again.Fields[0].Label)
}

func TestParseCatalogValidation(t *testing.T) {
	tests := map[string]string{
		"empty":           "templates: []",
		"missing id":      "templates:\n  - name: X\n    fields: []",
		"duplicate":       "templates:\n  - id: a\n  - id: a",
		"duplicate field": "templates:\n  - id: a\n    fields:\n      - {id: f, label: F}\n      - {id: f, label: G}",
		"field no label":  "templates:\n  - id: a\n    fields:\n      - {id: f}",
		"bad yaml":        "templates: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	doc := "templates:\n  - id: library_card\n    fields:\n      - {id: fullName, label: Name, required: true}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	tpl, err := catalog.Get("library_card")
	require.NoError(t, err)
	assert.Equal(t, "library_card", tpl.Name)
	assert.Equal(t, "text", tpl.Fields[0].Type)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFillBankAccount(t *testing.T) {
	form := Fill(testEnvelope(), mustTemplate(t, "bank_account"))
	values := form.Values()

	assert.Equal(t, "Jane Q Doe", values["fullName"])
	assert.Equal(t, "+91 98765 43210", values["mobile"])
	assert.Equal(t, "12 MG Road", values["address"])
	assert.Equal(t, "411001", values["pincode"])
	assert.Equal(t, "Acme", values["employerName"])
	assert.Empty(t, values["accountType"])
	assert.Empty(t, values["nomineeName"])
	assert.Len(t, form.Fields, len(mustTemplate(t, "bank_account").Fields))

	for _, f := range form.Fields {
		assert.Equal(t, f.Value != "", f.AutoFilled, f.ID)
	}
}

func TestFillNeverUsesFieldsOutsideAllowList(t *testing.T) {
	env := testEnvelope()
	env.Fields["bloodGroup"] = "O+"

	values := Fill(env, mustTemplate(t, "medical_registration")).Values()
	assert.Empty(t, values["bloodGroup"])
	assert.Equal(t, "Jane", values["firstName"])
	assert.Equal(t, "John Doe", values["emergencyContactName"])
}

func TestFillIsIdempotent(t *testing.T) {
	env := testEnvelope()
	tpl := mustTemplate(t, "government_service")

	first := Fill(env, tpl)
	second := Fill(env, tpl)
	assert.Equal(t, first, second)

	// Filling the output's values again changes nothing
	third := Fill(&share.Envelope{Fields: env.Fields}, tpl)
	assert.Equal(t, first.Values(), third.Values())
}

func TestFillWithNoMatchesIsBlank(t *testing.T) {
	tpl := models.FormTemplate{
		ID:   "survey",
		Name: "Survey",
		Fields: []models.TemplateField{
			{ID: "favouriteColour", Label: "Favourite colour", Type: "text", Required: true},
			{ID: "rating", Label: "Rating", Type: "number"},
		},
	}

	form := Fill(testEnvelope(), tpl)
	require.Len(t, form.Fields, 2)
	for _, f := range form.Fields {
		assert.Empty(t, f.Value)
		assert.False(t, f.AutoFilled)
	}
	assert.Equal(t, []string{"favouriteColour"}, form.Missing())

	blank := Fill(nil, mustTemplate(t, "bank_account"))
	for _, f := range blank.Fields {
		assert.Empty(t, f.Value)
	}
}

func TestApplyOverrides(t *testing.T) {
	form := Fill(testEnvelope(), mustTemplate(t, "bank_account"))

	edited, err := ApplyOverrides(form, map[string]string{
		"accountType": "Savings",
		"fullName":    "Jane Doe",
	})
	require.NoError(t, err)

	values := edited.Values()
	assert.Equal(t, "Savings", values["accountType"])
	assert.Equal(t, "Jane Doe", values["fullName"])
	assert.Equal(t, "Jane Q Doe", form.Values()["fullName"], "original untouched")

	for _, f := range edited.Fields {
		if f.ID == "fullName" {
			assert.False(t, f.AutoFilled)
		}
	}

	_, err = ApplyOverrides(form, map[string]string{"unknown": "x"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestExport(t *testing.T) {
	form := Fill(testEnvelope(), mustTemplate(t, "bank_account"))
	doc := string(Export(form, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	assert.True(t, strings.HasPrefix(doc, "Bank Account Opening\n===================="))
	assert.Contains(t, doc, "Full Name *: Jane Q Doe\n")
	assert.Contains(t, doc, "Nominee Name: \n")
	assert.Contains(t, doc, "Generated 2026-01-02T03:04:05Z")
}
