package contact

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/concordtech/contact-api/config/router"
	"github.com/concordtech/contact-api/internal/auth"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/models"
	"github.com/concordtech/contact-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestRouter(t *testing.T, backend storage.Backend, gate *auth.Gate, perMinute int) *router.RouterService {
	t.Helper()

	logger := log.NewLoggerWithJSONOutput()
	rs := router.CreateRouterService(logger, nil, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
	rs.MountController(NewContactController(backend, gate, logger, perMinute))
	return rs
}

func doJSON(rs *router.RouterService, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

const validPayload = `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","message":"Hi"}`

func TestSubmitContact_Success(t *testing.T) {
	backend := storage.NewMemoryBackend()
	rs := newTestRouter(t, backend, nil, 5)

	w := doJSON(rs, http.MethodPost, "/api/contact", validPayload)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": true, "message": MsgThankYou}, decodeBody(t, w))
	assert.Equal(t, 1, backend.Len())
}

func TestSubmitContact_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{"malformed json", `{"firstName":`, MsgInvalidBody},
		{"empty body", ``, MsgInvalidBody},
		{"wrong field type", `{"firstName":1,"lastName":"L","email":"a@b.com","message":"m"}`, MsgInvalidBody},
		{"missing message", `{"firstName":"A","lastName":"B","email":"a@b.com"}`, MsgAllFieldsRequired},
		{"empty message", `{"firstName":"A","lastName":"B","email":"a@b.com","message":""}`, MsgAllFieldsRequired},
		{"invalid email", `{"firstName":"A","lastName":"B","email":"not-an-email","message":"hi"}`, MsgInvalidEmail},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := storage.NewMemoryBackend()
			rs := newTestRouter(t, backend, nil, 100)

			w := doJSON(rs, http.MethodPost, "/api/contact", tc.payload)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, map[string]any{"error": tc.want}, decodeBody(t, w))
			assert.Equal(t, 0, backend.Len())
		})
	}
}

func TestSubmitContact_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockBackend := NewMockBackend(ctrl)
	mockBackend.EXPECT().Name().Return("redis").AnyTimes()
	mockBackend.EXPECT().Save(gomock.Any(), gomock.Any()).Return(storage.ErrUnavailable)

	rs := newTestRouter(t, mockBackend, nil, 5)

	w := doJSON(rs, http.MethodPost, "/api/contact", validPayload)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"error": MsgStoreFailed}, decodeBody(t, w))
	assert.NotContains(t, w.Body.String(), "unavailable")
}

func TestSubmitContact_RateLimited(t *testing.T) {
	rs := newTestRouter(t, storage.NewMemoryBackend(), nil, 2)

	assert.Equal(t, http.StatusOK, doJSON(rs, http.MethodPost, "/api/contact", validPayload).Code)
	assert.Equal(t, http.StatusOK, doJSON(rs, http.MethodPost, "/api/contact", validPayload).Code)

	w := doJSON(rs, http.MethodPost, "/api/contact", validPayload)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Listing is not charged against the submission limiter.
	assert.Equal(t, http.StatusOK, doJSON(rs, http.MethodGet, "/api/contact", "").Code)
}

func TestListContact(t *testing.T) {
	backend := storage.NewMemoryBackend()
	rs := newTestRouter(t, backend, nil, 5)

	require.NoError(t, backend.Save(t.Context(), &models.Submission{ID: "1", Timestamp: "2024-01-01T00:00:00.000Z"}))
	require.NoError(t, backend.Save(t.Context(), &models.Submission{ID: "2", Timestamp: "2024-02-01T00:00:00.000Z"}))

	t.Run("contact list", func(t *testing.T) {
		w := doJSON(rs, http.MethodGet, "/api/contact", "")

		require.Equal(t, http.StatusOK, w.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Submissions, 2)
		assert.Equal(t, "2", resp.Submissions[0].ID)
		assert.Equal(t, "1", resp.Submissions[1].ID)
	})

	t.Run("submissions with count", func(t *testing.T) {
		w := doJSON(rs, http.MethodGet, "/api/submissions", "")

		require.Equal(t, http.StatusOK, w.Code)

		var resp SubmissionsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
		assert.Len(t, resp.Submissions, 2)
	})
}

func TestListContact_EmptyIsAnArray(t *testing.T) {
	rs := newTestRouter(t, storage.NewMemoryBackend(), nil, 5)

	w := doJSON(rs, http.MethodGet, "/api/contact", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"submissions":[]}`, w.Body.String())
}

func TestListContact_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockBackend := NewMockBackend(ctrl)
	mockBackend.EXPECT().Name().Return("file").AnyTimes()
	mockBackend.EXPECT().List(gomock.Any()).Return(nil, storage.ErrCorrupt).Times(2)

	rs := newTestRouter(t, mockBackend, nil, 5)

	for _, path := range []string{"/api/contact", "/api/submissions"} {
		w := doJSON(rs, http.MethodGet, path, "")

		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.Equal(t, map[string]any{"error": MsgFetchFailed}, decodeBody(t, w), path)
	}
}

func TestListContact_RequiresAdminWhenGateEnabled(t *testing.T) {
	gate, err := auth.NewGate(auth.Config{
		Users:       map[string]string{"admin": "s3cret"},
		TokenSecret: []byte("test-secret-test-secret-test-secret"),
		TokenTTL:    time.Hour,
	})
	require.NoError(t, err)

	rs := newTestRouter(t, storage.NewMemoryBackend(), gate, 5)

	w := doJSON(rs, http.MethodGet, "/api/contact", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, map[string]any{"error": "Authorization required"}, decodeBody(t, w))

	w = doJSON(rs, http.MethodGet, "/api/submissions", "", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login, err := gate.Login(t.Context(), "admin", "s3cret")
	require.NoError(t, err)

	w = doJSON(rs, http.MethodGet, "/api/contact", "", "Authorization", "Bearer "+login.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Submitting stays public.
	assert.Equal(t, http.StatusOK, doJSON(rs, http.MethodPost, "/api/contact", validPayload).Code)
}
