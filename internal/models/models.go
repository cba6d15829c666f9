package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User is an account that owns profiles and forms
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never exposed in JSON
	Banned       bool      `json:"banned"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is a user's identity profile. Only the fields named in the share
// allow-list ever leave the system through a share token.
type Profile struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"userId"`

	Category string `json:"category"`
	Language string `json:"language"`

	FirstName   string `json:"firstName" validate:"required,max=100"`
	MiddleName  string `json:"middleName" validate:"max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender" validate:"max=32"`

	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"max=32"`

	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode" validate:"max=16"`
	Country      string `json:"country"`

	Occupation string `json:"occupation"`
	Employer   string `json:"employer"`

	EmergencyContactName     string `json:"emergencyContactName"`
	EmergencyContactPhone    string `json:"emergencyContactPhone"`
	EmergencyContactRelation string `json:"emergencyContactRelation"`

	// Financial
	BankName          string `json:"bankName"`
	BankAccountNumber string `json:"bankAccountNumber"`
	BankRoutingCode   string `json:"bankRoutingCode"`
	TaxID             string `json:"taxId"`
	AnnualIncome      string `json:"annualIncome"`

	// Medical
	BloodGroup        string `json:"bloodGroup"`
	Allergies         string `json:"allergies"`
	MedicalConditions string `json:"medicalConditions"`
	Medications       string `json:"medications"`

	// Legal
	NationalID     string `json:"nationalId"`
	PassportNumber string `json:"passportNumber"`
	DriverLicense  string `json:"driverLicense"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fields returns every profile attribute keyed by its JSON name, skipping
// identifiers and timestamps. Empty values are included.
func (p *Profile) Fields() map[string]string {
	return map[string]string{
		"category":                 p.Category,
		"language":                 p.Language,
		"firstName":                p.FirstName,
		"middleName":               p.MiddleName,
		"lastName":                 p.LastName,
		"dateOfBirth":              p.DateOfBirth,
		"gender":                   p.Gender,
		"email":                    p.Email,
		"phone":                    p.Phone,
		"addressLine1":             p.AddressLine1,
		"addressLine2":             p.AddressLine2,
		"city":                     p.City,
		"state":                    p.State,
		"postalCode":               p.PostalCode,
		"country":                  p.Country,
		"occupation":               p.Occupation,
		"employer":                 p.Employer,
		"emergencyContactName":     p.EmergencyContactName,
		"emergencyContactPhone":    p.EmergencyContactPhone,
		"emergencyContactRelation": p.EmergencyContactRelation,
		"bankName":                 p.BankName,
		"bankAccountNumber":        p.BankAccountNumber,
		"bankRoutingCode":          p.BankRoutingCode,
		"taxId":                    p.TaxID,
		"annualIncome":             p.AnnualIncome,
		"bloodGroup":               p.BloodGroup,
		"allergies":                p.Allergies,
		"medicalConditions":        p.MedicalConditions,
		"medications":              p.Medications,
		"nationalId":               p.NationalID,
		"passportNumber":           p.PassportNumber,
		"driverLicense":            p.DriverLicense,
	}
}

// Form is a user-owned form definition built in the form builder or
// produced by the AI generator. Definition is stored as an opaque blob.
type Form struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"userId"`
	Title      string          `json:"title"`
	Definition json.RawMessage `json:"definition"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ShareRecord is one entry of a profile's share history. The token itself
// is never stored.
type ShareRecord struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profileId"`
	Channel   string    `json:"channel"` // "qr" or "nfc"
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TemplateField is one field of a kiosk form template
type TemplateField struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required" yaml:"required"`
}

// FormTemplate is a static institutional form type used by the kiosk
type FormTemplate struct {
	ID     string          `json:"id" yaml:"id"`
	Name   string          `json:"name" yaml:"name"`
	Fields []TemplateField `json:"fields" yaml:"fields"`
}

// GeneratedField is one field of a GeneratedForm
type GeneratedField struct {
	ID          string   `json:"id" validate:"required,max=64"`
	Type        string   `json:"type" validate:"required,oneof=text email tel number date select textarea checkbox radio"`
	Label       string   `json:"label" validate:"required,max=200"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty" validate:"max=200"`
	Options     []string `json:"options,omitempty" validate:"required_if=Type select,required_if=Type radio,dive,required"`
}

// GeneratedForm is a form definition produced by the AI generator or
// saved from the form builder.
type GeneratedForm struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description,omitempty" validate:"max=1000"`
	Fields      []GeneratedField `json:"fields" validate:"required,min=1,max=100,dive"`
}
