package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"norel-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	maxDescriptionLen  = 4000
	maxDocumentTextLen = 20000
)

// Orchestrator runs the three AI flows on top of a Completer. Failures are
// returned to the caller as is; nothing is retried.
type Orchestrator struct {
	completer   Completer
	temperature float32
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(completer Completer, temperature float32, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		completer:   completer,
		temperature: temperature,
		validate:    validator.New(),
		logger:      logger,
	}
}

// GenerateForm turns a free-text description into a form definition
func (o *Orchestrator) GenerateForm(ctx context.Context, description string) (*models.GeneratedForm, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("description is required")
	}
	description = truncate(description, maxDescriptionLen)

	raw, err := o.complete(ctx, "generate_form", generateFormPrompt(description))
	if err != nil {
		return nil, err
	}

	var form models.GeneratedForm
	if err := decodeStrict(raw, &form); err != nil {
		o.logger.Warn("Form generator returned unparseable output", zap.Error(err))
		return nil, err
	}
	if err := o.validate.Struct(&form); err != nil {
		o.logger.Warn("Form generator output failed validation", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	seen := make(map[string]bool, len(form.Fields))
	for _, f := range form.Fields {
		if seen[f.ID] {
			return nil, fmt.Errorf("%w: duplicate field id %q", ErrInvalidResponse, f.ID)
		}
		seen[f.ID] = true
	}
	return &form, nil
}

// ExtractProfile reads OCR text of an identity document and returns the
// profile attributes found in it, keyed by profile JSON name. Keys that are
// not profile attributes are dropped.
func (o *Orchestrator) ExtractProfile(ctx context.Context, documentText string) (map[string]string, error) {
	documentText = strings.TrimSpace(documentText)
	if documentText == "" {
		return nil, fmt.Errorf("document text is required")
	}
	documentText = truncate(documentText, maxDocumentTextLen)

	raw, err := o.complete(ctx, "extract_profile", extractProfilePrompt(documentText))
	if err != nil {
		return nil, err
	}

	values, err := stringMap(raw)
	if err != nil {
		o.logger.Warn("Document extractor returned unparseable output", zap.Error(err))
		return nil, err
	}

	known := (&models.Profile{}).Fields()
	out := make(map[string]string, len(values))
	for key, v := range values {
		if _, ok := known[key]; !ok || v == "" {
			continue
		}
		out[key] = v
	}
	if email, ok := out["email"]; ok && o.validate.Var(email, "email") != nil {
		delete(out, "email")
	}
	return out, nil
}

// AutoFill asks the model to fill form from profile data. The result only
// contains ids of fields in form; choice fields only keep listed options.
func (o *Orchestrator) AutoFill(ctx context.Context, form *models.GeneratedForm, profile map[string]string) (map[string]string, error) {
	if form == nil || len(form.Fields) == 0 {
		return nil, fmt.Errorf("form has no fields")
	}

	prompt, err := autoFillPrompt(form, profile)
	if err != nil {
		return nil, err
	}

	raw, err := o.complete(ctx, "autofill", prompt)
	if err != nil {
		return nil, err
	}

	values, err := stringMap(raw)
	if err != nil {
		o.logger.Warn("Auto-fill returned unparseable output", zap.Error(err))
		return nil, err
	}

	out := make(map[string]string, len(form.Fields))
	for _, f := range form.Fields {
		v, ok := values[f.ID]
		if !ok || v == "" {
			continue
		}
		if len(f.Options) > 0 && !contains(f.Options, v) {
			continue
		}
		if f.Type == "email" && o.validate.Var(v, "email") != nil {
			continue
		}
		out[f.ID] = v
	}
	return out, nil
}

func (o *Orchestrator) complete(ctx context.Context, flow, prompt string) (string, error) {
	raw, err := o.completer.Complete(ctx, CompletionRequest{
		Prompt:      prompt,
		Temperature: o.temperature,
		JSONOutput:  true,
	})
	if err != nil {
		o.logger.Error("Completion failed", zap.String("flow", flow), zap.Error(err))
		return "", err
	}
	return raw, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func generateFormPrompt(description string) string {
	return `You design data-collection forms. Create a form for the following request.

Request:
` + description + `

Answer with a single JSON object and nothing else, in this shape:
{"title": string, "description": string, "fields": [{"id": string, "type": string, "label": string, "required": boolean, "placeholder": string, "options": [string]}]}

Rules:
- "type" is one of text, email, tel, number, date, select, textarea, checkbox, radio.
- "options" is required for select and radio fields and omitted otherwise.
- "id" is camelCase and unique within the form.
- Use between 1 and 100 fields.`
}

func extractProfilePrompt(documentText string) string {
	keys := make([]string, 0, 32)
	for key := range (&models.Profile{}).Fields() {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return `Extract personal details from the text of an identity document.

Document text:
` + documentText + `

Answer with a single flat JSON object and nothing else. Use only these keys, and omit any key whose value is not present in the text:
` + strings.Join(keys, ", ") + `

Dates use the format YYYY-MM-DD. All values are strings.`
}

func autoFillPrompt(form *models.GeneratedForm, profile map[string]string) (string, error) {
	formJSON, err := json.Marshal(form.Fields)
	if err != nil {
		return "", fmt.Errorf("failed to serialize form: %w", err)
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("failed to serialize profile: %w", err)
	}

	return `Fill in a form using a person's profile.

Form fields:
` + string(formJSON) + `

Profile:
` + string(profileJSON) + `

Answer with a single flat JSON object and nothing else, mapping field id to value. Omit fields the profile cannot answer. For select and radio fields use one of the listed options exactly.`, nil
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
