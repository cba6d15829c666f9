package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"norel-backend/internal/ai"
	"norel-backend/internal/auth"
	"norel-backend/internal/kiosk"
	"norel-backend/internal/repository"
	"norel-backend/internal/service"
	"norel-backend/internal/share"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testOrigin = "https://norel.example"

type stubCompleter struct {
	answer string
	err    error
}

func (s *stubCompleter) Complete(context.Context, ai.CompletionRequest) (string, error) {
	return s.answer, s.err
}

type testServer struct {
	handler   http.Handler
	store     *repository.InMemoryStore
	completer *stubCompleter
	codec     *share.Codec
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithNonces(t, nil)
}

// newTestServerWithNonces enables single-use share codes when nonces is set
func newTestServerWithNonces(t *testing.T, nonces repository.NonceStore) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewInMemoryStore()
	tokens, err := auth.NewTokenService("test-secret")
	require.NoError(t, err)
	catalog, err := kiosk.DefaultCatalog()
	require.NoError(t, err)

	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	completer := &stubCompleter{}
	orch := ai.NewOrchestrator(completer, 0.2, logger)
	codec := share.NewCodec(testOrigin)

	profiles := service.NewProfileService(store, logger)
	h := NewHandler(Dependencies{
		Users:          service.NewUserService(store, tokens, logger),
		Profiles:       profiles,
		Shares:         service.NewShareService(profiles, store, codec, nonces, nonces != nil, logger),
		Forms:          service.NewFormService(store, profiles, orch, logger),
		Documents:      service.NewDocumentService(nil, orch),
		Admin:          service.NewAdminService(store, tokens, string(adminHash), logger),
		Tokens:         tokens,
		UserStore:      store,
		Catalog:        catalog,
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	return &testServer{handler: h.Routes(), store: store, completer: completer, codec: codec}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/users/register", map[string]string{"email": email, "password": "password123"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/users/login", map[string]string{"email": email, "password": "password123"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func (s *testServer) createProfile(t *testing.T, token string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/profiles", map[string]string{
		"firstName":    "Asha",
		"lastName":     "Rao",
		"email":        "asha@example.com",
		"phone":        "+91 98765 43210",
		"addressLine1": "12 MG Road",
		"city":         "Bengaluru",
		"postalCode":   "560001",
		"taxId":        "ABCDE1234F",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	e, ok := body["error"].(map[string]interface{})
	require.True(t, ok, rec.Body.String())
	return e["message"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/users/register", map[string]string{"email": "bad", "password": "password123"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/users/register", map[string]string{"email": "a@example.com", "password": "short"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.login(t, "a@example.com")
	rec = s.do(t, http.MethodPost, "/v1/users/register", map[string]string{"email": "A@example.com", "password": "password123"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/users/login", map[string]string{"email": "a@example.com", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", errorMessage(t, rec))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/profiles", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/profiles", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileCRUDAndShare(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "owner@example.com")
	id := s.createProfile(t, token)

	rec := s.do(t, http.MethodGet, "/v1/profiles/"+id, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Asha", decodeBody(t, rec)["firstName"])

	other := s.login(t, "other@example.com")
	rec = s.do(t, http.MethodGet, "/v1/profiles/"+id, nil, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/profiles/not-a-uuid", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/profiles", map[string]string{"firstName": "X", "email": "asha@example.com"}, other)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/profiles/"+id+"/share", map[string]string{"channel": "nfc"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	shared := decodeBody(t, rec)
	link := shared["url"].(string)
	assert.True(t, strings.HasPrefix(link, testOrigin+"/kiosk?data="))

	rec = s.do(t, http.MethodGet, "/v1/profiles/"+id+"/share/qr?size=256", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Share-Expires-At"))

	rec = s.do(t, http.MethodGet, "/v1/profiles/"+id+"/shares", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "qr", history[0]["channel"])

	rec = s.do(t, http.MethodPut, "/v1/profiles/"+id, map[string]string{"firstName": "Asha", "email": "asha@example.com", "city": "Mysuru"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mysuru", decodeBody(t, rec)["city"])

	rec = s.do(t, http.MethodDelete, "/v1/profiles/"+id, nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/profiles/"+id, nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKioskScan(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "owner@example.com")
	id := s.createProfile(t, token)

	rec := s.do(t, http.MethodGet, "/kiosk", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":false}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/profiles/"+id+"/share", nil, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	link := decodeBody(t, rec)["url"].(string)

	rec = s.do(t, http.MethodGet, strings.TrimPrefix(link, testOrigin), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, id, body["profileId"])
	fields := body["fields"].(map[string]interface{})
	assert.Equal(t, "Asha", fields["firstName"])
	assert.NotContains(t, fields, "taxId")

	rec = s.do(t, http.MethodGet, "/kiosk?data=%25%25%25", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeBody(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "malformed_encoding", e["kind"])
}

func TestKioskScanExpired(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "owner@example.com")
	id := s.createProfile(t, token)

	profile, err := s.store.GetProfileByID(context.Background(), mustUUID(t, id))
	require.NoError(t, err)

	old := share.NewCodec(testOrigin, share.WithClock(func() time.Time { return time.Now().Add(-25 * time.Hour) }))
	stale, err := old.Encode(profile)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, strings.TrimPrefix(stale.URL, testOrigin), nil, "")
	assert.Equal(t, http.StatusGone, rec.Code)
	e := decodeBody(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "expired", e["kind"])
	assert.Equal(t, share.Message(share.ErrExpired), e["message"])
}

type failingNonceStore struct{}

func (failingNonceStore) Consume(context.Context, string, time.Duration) error {
	return errors.New("dial tcp 10.0.0.7:6379: connection refused")
}

func (failingNonceStore) Close() error { return nil }

func TestKioskScanSingleUse(t *testing.T) {
	nonces := repository.NewMemoryNonceStore(time.Minute)
	defer nonces.Close()
	s := newTestServerWithNonces(t, nonces)
	token := s.login(t, "owner@example.com")
	id := s.createProfile(t, token)

	rec := s.do(t, http.MethodPost, "/v1/profiles/"+id+"/share", nil, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	path := strings.TrimPrefix(decodeBody(t, rec)["url"].(string), testOrigin)

	rec = s.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	e := decodeBody(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "consumed", e["kind"])
}

func TestKioskScanNonceStoreFailure(t *testing.T) {
	s := newTestServerWithNonces(t, failingNonceStore{})
	token := s.login(t, "owner@example.com")
	id := s.createProfile(t, token)

	rec := s.do(t, http.MethodPost, "/v1/profiles/"+id+"/share", nil, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	shared := decodeBody(t, rec)

	rec = s.do(t, http.MethodGet, strings.TrimPrefix(shared["url"].(string), testOrigin), nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", errorMessage(t, rec))
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = s.do(t, http.MethodPost, "/v1/kiosk/fill", map[string]string{
		"templateId": "bank_account",
		"token":      shared["token"].(string),
	}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestKioskFillAndExport(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "owner@example.com")
	id := s.createProfile(t, token)

	rec := s.do(t, http.MethodGet, "/v1/kiosk/templates", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var templates []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &templates))
	assert.Len(t, templates, 3)

	rec = s.do(t, http.MethodPost, "/v1/profiles/"+id+"/share", nil, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	shareToken := decodeBody(t, rec)["token"].(string)

	rec = s.do(t, http.MethodPost, "/v1/kiosk/fill", map[string]interface{}{
		"templateId": "bank_account",
		"token":      shareToken,
		"overrides":  map[string]string{"accountType": "Savings"},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var filled struct {
		TemplateID string `json:"templateId"`
		Fields     []struct {
			ID         string `json:"id"`
			Value      string `json:"value"`
			AutoFilled bool   `json:"autoFilled"`
		} `json:"fields"`
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filled))
	values := map[string]string{}
	for _, f := range filled.Fields {
		values[f.ID] = f.Value
	}
	assert.Equal(t, "Asha Rao", values["fullName"])
	assert.Equal(t, "560001", values["pincode"])
	assert.Equal(t, "Savings", values["accountType"])
	assert.Contains(t, filled.Missing, "dateOfBirth")

	rec = s.do(t, http.MethodPost, "/v1/kiosk/fill", map[string]interface{}{
		"templateId": "bank_account",
		"fields":     map[string]string{"city": "Pune", "taxId": "LEAK"},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "LEAK")

	rec = s.do(t, http.MethodPost, "/v1/kiosk/fill", map[string]interface{}{"templateId": "passport"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/kiosk/fill", map[string]interface{}{
		"templateId": "bank_account",
		"overrides":  map[string]string{"nope": "x"},
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/kiosk/export", map[string]interface{}{
		"templateId": "medical_registration",
		"token":      shareToken,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "medical_registration-")
	assert.Contains(t, rec.Body.String(), "First Name *: Asha\n")
}

func TestFormsAI(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "owner@example.com")
	profileID := s.createProfile(t, token)

	s.completer.answer = "```json\n" + `{"title":"Gym","fields":[{"id":"name","type":"text","label":"Name","required":true}]}` + "\n```"
	rec := s.do(t, http.MethodPost, "/v1/forms/generate", map[string]interface{}{"description": "gym signup", "save": true}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	formID := decodeBody(t, rec)["id"].(string)

	rec = s.do(t, http.MethodGet, "/v1/forms", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var forms []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forms))
	assert.Len(t, forms, 1)

	s.completer.answer = `{"name":"Asha Rao"}`
	rec = s.do(t, http.MethodPost, "/v1/forms/"+formID+"/autofill", map[string]string{"profileId": profileID}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"values":{"name":"Asha Rao"}}`, rec.Body.String())

	s.completer.answer = "I cannot help with that."
	rec = s.do(t, http.MethodPost, "/v1/forms/generate", map[string]interface{}{"description": "gym signup"}, token)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	s.completer.err = ai.ErrUpstream
	rec = s.do(t, http.MethodPost, "/v1/documents/extract", map[string]string{"text": "ID CARD"}, token)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	s.completer.err = nil

	s.completer.answer = `{"firstName":"Asha","nationalId":"1234"}`
	rec = s.do(t, http.MethodPost, "/v1/documents/extract", map[string]string{"text": "ID CARD"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"fields":{"firstName":"Asha","nationalId":"1234"}}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/documents/upload-url", nil, token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/forms/"+formID, nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func adminCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == adminCookieName {
			return c
		}
	}
	t.Fatal("admin cookie not set")
	return nil
}

func TestAdminSession(t *testing.T) {
	s := newTestServer(t)
	userToken := s.login(t, "user@example.com")
	s.createProfile(t, userToken)

	rec := s.do(t, http.MethodGet, "/admin/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/login", map[string]string{"password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/login", map[string]string{"password": "admin-pass"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := adminCookieFrom(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 86400, cookie.MaxAge)

	adminDo := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.AddCookie(&http.Cookie{Name: adminCookieName, Value: cookie.Value})
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec = adminDo(http.MethodGet, "/admin/users")
	require.Equal(t, http.StatusOK, rec.Code)
	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.NotContains(t, users[0], "passwordHash")
	userID := users[0]["id"].(string)

	rec = adminDo(http.MethodPost, "/admin/users/"+userID+"/ban")
	require.Equal(t, http.StatusOK, rec.Code)

	// Existing tokens of a banned user stop working
	rec = s.do(t, http.MethodGet, "/v1/profiles", nil, userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = adminDo(http.MethodGet, "/admin/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":1,"bannedUsers":1,"profiles":1}`, rec.Body.String())

	rec = adminDo(http.MethodPost, "/admin/users/"+userID+"/unban")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/profiles", nil, userToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = adminDo(http.MethodGet, "/admin/profiles")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A user token is not an admin session
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.AddCookie(&http.Cookie{Name: adminCookieName, Value: userToken})
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, adminCookieFrom(t, rec).MaxAge)
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
