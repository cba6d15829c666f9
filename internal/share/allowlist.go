package share

import "norel-backend/internal/models"

// AllowList is the one place that decides which profile attributes may leave
// the system inside a share token. Financial, medical and legal identifiers
// are never listed here.
var AllowList = []string{
	"firstName",
	"middleName",
	"lastName",
	"email",
	"phone",
	"dateOfBirth",
	"gender",
	"addressLine1",
	"addressLine2",
	"city",
	"state",
	"postalCode",
	"country",
	"occupation",
	"employer",
	"emergencyContactName",
	"emergencyContactPhone",
	"emergencyContactRelation",
	"category",
	"language",
}

var allowed = func() map[string]bool {
	m := make(map[string]bool, len(AllowList))
	for _, key := range AllowList {
		m[key] = true
	}
	return m
}()

// Allowed reports whether key is in the allow-list
func Allowed(key string) bool {
	return allowed[key]
}

// Snapshot copies the allow-listed, non-empty attributes of p
func Snapshot(p *models.Profile) map[string]string {
	all := p.Fields()
	out := make(map[string]string, len(AllowList))
	for _, key := range AllowList {
		if v := all[key]; v != "" {
			out[key] = v
		}
	}
	return out
}
