package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/easelhouse/paintsip-backend/api/middleware"
	"github.com/easelhouse/paintsip-backend/internal/auth"
	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/internal/canvases"
	"github.com/easelhouse/paintsip-backend/internal/events"
	"github.com/easelhouse/paintsip-backend/internal/media"
	"github.com/easelhouse/paintsip-backend/internal/payouts"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func asHost(req *http.Request, hostID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), hostID.String()))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

type stubAuth struct {
	login   auth.LoginRequest
	refresh [2]string
}

func (s *stubAuth) Register(_ context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "access"}, nil
}

func (s *stubAuth) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.login = req
	return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubAuth) Refresh(_ context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	s.refresh = [2]string{accessToken, refreshToken}
	return &auth.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (s *stubAuth) Logout(context.Context, string) error { return nil }

func TestAuthLoginAndValidation(t *testing.T) {
	svc := &stubAuth{}
	handler := AuthLogin(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"host@example.com","password":"secret1"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "host@example.com", svc.login.Email)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email must be a valid email", decodeError(t, rec).Error.Message)
}

func TestAuthRegisterReturnsCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	body := `{"name":"Ada","email":"ada@example.com","password":"secret1"}`
	AuthRegister(&stubAuth{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthRefreshUsesBearerToken(t *testing.T) {
	svc := &stubAuth{}
	handler := AuthRefresh(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"refresh_token":"r1"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"refresh_token":"r1"}`))
	req.Header.Set("Authorization", "Bearer expired-access")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]string{"expired-access", "r1"}, svc.refresh)
}

type stubPayouts struct {
	mode enums.AccountSessionMode
}

func (s *stubPayouts) GetAccountStatus(context.Context, uuid.UUID) (*payouts.AccountStatus, error) {
	return &payouts.AccountStatus{OnboardingStatus: enums.OnboardingStatusNotStarted}, nil
}

func (s *stubPayouts) CreateAccountSession(_ context.Context, _ uuid.UUID, mode enums.AccountSessionMode) (string, error) {
	s.mode = mode
	return "acs_secret", nil
}

func (s *stubPayouts) EnsureConnectedAccount(context.Context, uuid.UUID) (string, error) {
	return "acct_1", nil
}

func (s *stubPayouts) SyncAccount(context.Context, *stripe.Account, *outbox.ActorRef) error {
	return nil
}

func (s *stubPayouts) Disconnect(context.Context, string) error { return nil }

func (s *stubPayouts) RefreshStale(context.Context, time.Time, int) (int, error) { return 0, nil }

func TestAccountSessionModeDefaults(t *testing.T) {
	host := uuid.New()
	cases := map[string]enums.AccountSessionMode{
		``:                   enums.AccountSessionModeOnboarding,
		`{}`:                 enums.AccountSessionModeOnboarding,
		`{"mode":"bogus"}`:   enums.AccountSessionModeOnboarding,
		`not json`:           enums.AccountSessionModeOnboarding,
		`{"mode":"payouts"}`: enums.AccountSessionModePayouts,
	}
	for body, want := range cases {
		svc := &stubPayouts{}
		rec := httptest.NewRecorder()
		AccountSession(svc, nil).ServeHTTP(rec, asHost(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), host))
		assert.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, want, svc.mode, body)
		assert.Contains(t, rec.Body.String(), `"client_secret":"acs_secret"`)
	}
}

func TestAccountStatusRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	AccountStatus(&stubPayouts{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubEvents struct {
	events.Service
	update events.UpdateEventInput
	id     uuid.UUID
}

func (s *stubEvents) Update(_ context.Context, _ uuid.UUID, eventID uuid.UUID, input events.UpdateEventInput) (*events.EventDTO, error) {
	s.id = eventID
	s.update = input
	return &events.EventDTO{ID: eventID}, nil
}

func TestEventUpdateIgnoresUnknownKeys(t *testing.T) {
	svc := &stubEvents{}
	eventID := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"description":"Bring a friend","host_id":"someone-else"}`))
	req = withURLParam(asHost(req, uuid.New()), "eventId", eventID.String())

	rec := httptest.NewRecorder()
	EventUpdate(svc, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, eventID, svc.id)
	require.NotNil(t, svc.update.Description)
	assert.Equal(t, "Bring a friend", *svc.update.Description)
}

func TestEventUpdateBadID(t *testing.T) {
	req := withURLParam(asHost(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`)), uuid.New()), "eventId", "not-a-uuid")
	rec := httptest.NewRecorder()
	EventUpdate(&stubEvents{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found", decodeError(t, rec).Error.Message)
}

type stubCanvases struct {
	canvases.Service
	imported canvases.ImportRequest
}

func (s *stubCanvases) Import(_ context.Context, req canvases.ImportRequest) (int, error) {
	s.imported = req
	return len(req.Canvases), nil
}

func TestCanvasesImport(t *testing.T) {
	svc := &stubCanvases{}
	rec := httptest.NewRecorder()
	CanvasesImport(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"canvases":[{"name":"Koi","image_url":"https://cdn.test/koi.jpg"}]}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = httptest.NewRecorder()
	CanvasesImport(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"canvases":"oops"`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, canvases.MsgInvalidImport, decodeError(t, rec).Error.Message)
}

type stubMedia struct {
	input media.UploadInput
	body  []byte
}

func (s *stubMedia) Upload(_ context.Context, input media.UploadInput) (*media.UploadOutput, error) {
	s.input = input
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(input.Body)
	s.body = buf.Bytes()
	return &media.UploadOutput{URL: "https://cdn.test/canvas.png", Key: "canvas.png"}, nil
}

func (s *stubMedia) MaxBytes() int64 { return 1 << 20 }

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMediaUpload(t *testing.T) {
	host := uuid.New()
	svc := &stubMedia{}
	rec := httptest.NewRecorder()
	MediaUpload(svc, nil).ServeHTTP(rec, asHost(multipartRequest(t, "file", "sunset.png", []byte("png-bytes")), host))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, host, svc.input.UserID)
	assert.Equal(t, "sunset.png", svc.input.FileName)
	assert.Equal(t, []byte("png-bytes"), svc.body)

	rec = httptest.NewRecorder()
	MediaUpload(svc, nil).ServeHTTP(rec, asHost(multipartRequest(t, "image", "sunset.png", []byte("x")), host))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file provided", decodeError(t, rec).Error.Message)

	rec = httptest.NewRecorder()
	MediaUpload(svc, nil).ServeHTTP(rec, asHost(multipartRequest(t, "file", "big.png", make([]byte, 2<<20)), host))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File too large. Maximum size is 1MB.", decodeError(t, rec).Error.Message)
}

type stubBookings struct {
	query bookings.ListQuery
}

func (s *stubBookings) ListForHost(_ context.Context, _ uuid.UUID, q bookings.ListQuery) ([]bookings.HostBookingDTO, error) {
	s.query = q
	return []bookings.HostBookingDTO{}, nil
}

func TestHostBookingsQuery(t *testing.T) {
	host := uuid.New()
	svc := &stubBookings{}

	rec := httptest.NewRecorder()
	HostBookings(svc, nil).ServeHTTP(rec, asHost(httptest.NewRequest(http.MethodGet, "/?status=paid&limit=10", nil), host))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bookings.ListQuery{Status: "paid", Limit: 10}, svc.query)

	rec = httptest.NewRecorder()
	HostBookings(svc, nil).ServeHTTP(rec, asHost(httptest.NewRequest(http.MethodGet, "/", nil), host))
	assert.Equal(t, bookings.DefaultListLimit, svc.query.Limit)

	rec = httptest.NewRecorder()
	HostBookings(svc, nil).ServeHTTP(rec, asHost(httptest.NewRequest(http.MethodGet, "/?limit=500", nil), host))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
