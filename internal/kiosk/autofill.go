package kiosk

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"norel-backend/internal/models"
	"norel-backend/internal/share"
)

var ErrUnknownField = errors.New("field is not part of the template")

// fieldSources maps template field ids that differ from envelope keys onto
// the envelope key holding the same information. Template ids equal to an
// allow-listed key map to themselves.
var fieldSources = map[string]string{
	"mobile":            "phone",
	"mobileNumber":      "phone",
	"phoneNumber":       "phone",
	"contactNumber":     "phone",
	"emailAddress":      "email",
	"dob":               "dateOfBirth",
	"address":           "addressLine1",
	"street":            "addressLine1",
	"district":          "city",
	"town":              "city",
	"province":          "state",
	"pincode":           "postalCode",
	"zip":               "postalCode",
	"zipCode":           "postalCode",
	"employerName":      "employer",
	"company":           "employer",
	"jobTitle":          "occupation",
	"preferredLanguage": "language",
	"emergencyContact":  "emergencyContactName",
}

// nameFields are filled with the joined name parts
var nameFields = map[string]bool{
	"fullName":      true,
	"name":          true,
	"applicantName": true,
	"patientName":   true,
}

// FilledField is a template field with its current value
type FilledField struct {
	models.TemplateField
	Value      string `json:"value"`
	AutoFilled bool   `json:"autoFilled"`
}

// FilledForm is a template rendered with values, in template order
type FilledForm struct {
	TemplateID   string        `json:"templateId"`
	TemplateName string        `json:"templateName"`
	Fields       []FilledField `json:"fields"`
}

// Fill maps env onto tpl. Every template field appears in the result;
// fields without a source stay empty. env may be nil, which yields a blank
// form. The result depends only on its inputs.
func Fill(env *share.Envelope, tpl models.FormTemplate) *FilledForm {
	form := &FilledForm{
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		Fields:       make([]FilledField, len(tpl.Fields)),
	}

	var values map[string]string
	if env != nil {
		values = env.Fields
	}

	for i, f := range tpl.Fields {
		v := lookup(values, f.ID)
		form.Fields[i] = FilledField{TemplateField: f, Value: v, AutoFilled: v != ""}
	}
	return form
}

func lookup(values map[string]string, fieldID string) string {
	if len(values) == 0 {
		return ""
	}
	if nameFields[fieldID] {
		return joinName(values)
	}
	if key, ok := fieldSources[fieldID]; ok {
		return values[key]
	}
	if share.Allowed(fieldID) {
		return values[fieldID]
	}
	return ""
}

func joinName(values map[string]string) string {
	parts := make([]string, 0, 3)
	for _, key := range []string{"firstName", "middleName", "lastName"} {
		if v := strings.TrimSpace(values[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// ApplyOverrides returns a copy of form with operator edits applied.
// Overriding a field clears its AutoFilled flag.
func ApplyOverrides(form *FilledForm, overrides map[string]string) (*FilledForm, error) {
	out := &FilledForm{
		TemplateID:   form.TemplateID,
		TemplateName: form.TemplateName,
		Fields:       append([]FilledField(nil), form.Fields...),
	}

	index := make(map[string]int, len(out.Fields))
	for i, f := range out.Fields {
		index[f.ID] = i
	}

	for id, v := range overrides {
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, id)
		}
		if out.Fields[i].Value != v {
			out.Fields[i].Value = v
			out.Fields[i].AutoFilled = false
		}
	}
	return out, nil
}

// Values returns the field id to value mapping of form
func (f *FilledForm) Values() map[string]string {
	out := make(map[string]string, len(f.Fields))
	for _, field := range f.Fields {
		out[field.ID] = field.Value
	}
	return out
}

// Missing lists the ids of required fields that are still empty
func (f *FilledForm) Missing() []string {
	var missing []string
	for _, field := range f.Fields {
		if field.Required && strings.TrimSpace(field.Value) == "" {
			missing = append(missing, field.ID)
		}
	}
	return missing
}

// Export renders form as a flat text document
func Export(form *FilledForm, generatedAt time.Time) []byte {
	var b strings.Builder
	b.WriteString(form.TemplateName)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(form.TemplateName)))
	b.WriteString("\n\n")

	for _, f := range form.Fields {
		label := f.Label
		if f.Required {
			label += " *"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, f.Value)
	}

	fmt.Fprintf(&b, "\nGenerated %s\n", generatedAt.UTC().Format(time.RFC3339))
	return []byte(b.String())
}
