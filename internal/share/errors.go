package share

import "errors"

// Kind names a decode failure for API clients
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMalformedEncoding):
		return "malformed_encoding"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	default:
		return "invalid"
	}
}

// Message returns the text a kiosk shows for a decode failure
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpired):
		return "This code has expired. Ask the profile owner to share a fresh code."
	case errors.Is(err, ErrMalformedEncoding), errors.Is(err, ErrMalformedPayload), errors.Is(err, ErrSchemaViolation):
		return "This is not a valid NOREL profile code. Please scan it again."
	default:
		return "The code could not be read."
	}
}
