// Package share encodes profile snapshots into self-contained, time-bounded
// tokens for QR codes and NFC tags, and validates tokens scanned at a kiosk.
//
// A token is standard base64 over a JSON document:
//
//	{"v":1,"profileId":"…","nonce":"…","issuedAt":<ms>,"expiresAt":<ms>,"fields":{…}}
//
// Decoding needs no server lookup. A token stays valid until issuedAt+TTL
// and can be decoded any number of times unless the caller tracks nonces.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"norel-backend/internal/models"

	"github.com/google/uuid"
)

const (
	// DefaultTTL is how long a token stays valid after it is issued
	DefaultTTL = 24 * time.Hour
	// DefaultClockSkew is how far in the future issuedAt may be
	DefaultClockSkew = 2 * time.Minute
	// DefaultMaxURLBytes keeps share URLs scannable as medium-ECC QR codes
	DefaultMaxURLBytes = 2048

	payloadVersion = 1
	kioskPath      = "/kiosk"
	dataParam      = "data"

	// maxTimestamp is the largest integer a JSON number carries exactly
	maxTimestamp = 1<<53 - 1
)

var (
	ErrMalformedEncoding = errors.New("malformed encoding")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrSchemaViolation   = errors.New("schema violation")
	ErrExpired           = errors.New("share code expired")
	// ErrPayloadTooLarge is returned by Encode when the share URL would not
	// fit the configured transport capacity.
	ErrPayloadTooLarge = errors.New("share payload too large")
)

// Envelope is the validated content of a share token
type Envelope struct {
	ProfileID string            `json:"profileId"`
	Nonce     string            `json:"nonce,omitempty"`
	IssuedAt  time.Time         `json:"issuedAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Fields    map[string]string `json:"fields"`
}

// Token is the result of Encode
type Token struct {
	Value     string    `json:"token"`
	URL       string    `json:"url"`
	Nonce     string    `json:"-"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type wirePayload struct {
	Version   int               `json:"v"`
	ProfileID string            `json:"profileId"`
	Nonce     string            `json:"nonce,omitempty"`
	IssuedAt  int64             `json:"issuedAt"`
	ExpiresAt int64             `json:"expiresAt"`
	Fields    map[string]string `json:"fields"`
}

// Codec encodes and decodes share tokens
type Codec struct {
	origin      string
	ttl         time.Duration
	skew        time.Duration
	maxURLBytes int
	now         func() time.Time
}

// Option configures a Codec
type Option func(*Codec)

// WithTTL sets the validity window
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) { c.ttl = ttl }
}

// WithClockSkew sets how far in the future issuedAt may lie
func WithClockSkew(skew time.Duration) Option {
	return func(c *Codec) { c.skew = skew }
}

// WithMaxURLBytes caps the length of the share URL. Zero disables the cap.
func WithMaxURLBytes(n int) Option {
	return func(c *Codec) { c.maxURLBytes = n }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec creates a codec whose share URLs point at origin
func NewCodec(origin string, opts ...Option) *Codec {
	c := &Codec{
		origin:      strings.TrimRight(origin, "/"),
		ttl:         DefaultTTL,
		skew:        DefaultClockSkew,
		maxURLBytes: DefaultMaxURLBytes,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the validity window
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode snapshots the allow-listed fields of p into a token
func (c *Codec) Encode(p *models.Profile) (*Token, error) {
	if p == nil || p.ID == uuid.Nil {
		return nil, fmt.Errorf("profile without id cannot be shared")
	}

	issued := c.now().UnixMilli()
	payload := wirePayload{
		Version:   payloadVersion,
		ProfileID: p.ID.String(),
		Nonce:     uuid.NewString(),
		IssuedAt:  issued,
		ExpiresAt: issued + c.ttl.Milliseconds(),
		Fields:    Snapshot(p),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize share payload: %w", err)
	}

	value := base64.StdEncoding.EncodeToString(raw)
	link := c.URL(value)
	if c.maxURLBytes > 0 && len(link) > c.maxURLBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, len(link), c.maxURLBytes)
	}

	return &Token{
		Value:     value,
		URL:       link,
		Nonce:     payload.Nonce,
		IssuedAt:  time.UnixMilli(payload.IssuedAt),
		ExpiresAt: time.UnixMilli(payload.ExpiresAt),
	}, nil
}

// URL builds the kiosk link carrying token
func (c *Codec) URL(token string) string {
	q := url.Values{dataParam: {token}}
	return c.origin + kioskPath + "?" + q.Encode()
}

// Decode validates token and returns its envelope. token may be the bare
// token or a full kiosk URL. Every failure wraps one of ErrMalformedEncoding,
// ErrMalformedPayload, ErrSchemaViolation or ErrExpired.
func (c *Codec) Decode(token string) (*Envelope, error) {
	raw, err := decodeBase64(extractToken(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}

	doc, err := parseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	env, err := validate(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	// Tokens without expiresAt are bounded by issuedAt+TTL alone
	if env.ExpiresAt.IsZero() {
		env.ExpiresAt = env.IssuedAt.Add(c.ttl)
	}

	if err := c.checkFreshness(env); err != nil {
		return nil, err
	}
	return env, nil
}

// Remaining reports how long env stays valid from now
func (c *Codec) Remaining(env *Envelope) time.Duration {
	deadline := env.IssuedAt.Add(c.ttl)
	if env.ExpiresAt.Before(deadline) {
		deadline = env.ExpiresAt
	}
	return deadline.Sub(c.now())
}

func (c *Codec) checkFreshness(env *Envelope) error {
	now := c.now()
	if env.IssuedAt.After(now.Add(c.skew)) {
		return fmt.Errorf("%w: issued %s in the future", ErrExpired, env.IssuedAt.UTC().Format(time.RFC3339))
	}
	if now.After(env.IssuedAt.Add(c.ttl)) {
		return fmt.Errorf("%w: issued at %s", ErrExpired, env.IssuedAt.UTC().Format(time.RFC3339))
	}
	if now.After(env.ExpiresAt) {
		return fmt.Errorf("%w: past embedded expiry", ErrExpired)
	}
	return nil
}

// extractToken accepts a bare token or a URL with a data parameter
func extractToken(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "?") {
		if u, err := url.Parse(s); err == nil {
			if v := u.Query().Get(dataParam); v != "" {
				s = v
			}
		}
	}
	// Some scanners hand over an unescaped query string where '+' became ' '
	return strings.ReplaceAll(s, " ", "+")
}

func decodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty token")
	}

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func parseJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after payload")
	}
	return doc, nil
}

func validate(doc any) (*Envelope, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, errors.New("payload is not an object")
	}

	if v, present := obj["v"]; present {
		n, err := integer(v)
		if err != nil || n != payloadVersion {
			return nil, fmt.Errorf("unsupported version %v", v)
		}
	}

	profileID, ok := obj["profileId"].(string)
	if !ok || profileID == "" {
		return nil, errors.New("profileId must be a non-empty string")
	}

	issuedMs, err := requiredInteger(obj, "issuedAt")
	if err != nil {
		return nil, err
	}
	if issuedMs <= 0 {
		return nil, errors.New("issuedAt must be positive")
	}

	env := &Envelope{
		ProfileID: profileID,
		IssuedAt:  time.UnixMilli(issuedMs),
		Fields:    map[string]string{},
	}

	if v, present := obj["expiresAt"]; present {
		expiresMs, err := integer(v)
		if err != nil {
			return nil, fmt.Errorf("expiresAt: %v", err)
		}
		env.ExpiresAt = time.UnixMilli(expiresMs)
	}

	if v, present := obj["nonce"]; present {
		nonce, ok := v.(string)
		if !ok {
			return nil, errors.New("nonce must be a string")
		}
		env.Nonce = nonce
	}

	fields, ok := obj["fields"].(map[string]any)
	if !ok {
		return nil, errors.New("fields must be an object")
	}
	for key, v := range fields {
		var value string
		switch tv := v.(type) {
		case string:
			value = tv
		case json.Number:
			value = tv.String()
		default:
			return nil, fmt.Errorf("field %q must be a string or number", key)
		}
		// Keys outside the allow-list are dropped, never surfaced
		if Allowed(key) {
			env.Fields[key] = value
		}
	}

	return env, nil
}

func requiredInteger(obj map[string]any, key string) (int64, error) {
	v, present := obj[key]
	if !present {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := integer(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	return n, nil
}

func integer(v any) (int64, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, errors.New("must be a number")
	}
	n, err := num.Int64()
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if n > maxTimestamp || n < -maxTimestamp {
		return 0, errors.New("out of range")
	}
	return n, nil
}
