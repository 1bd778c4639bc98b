package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leafscan/backend/internal/middleware"
	"github.com/leafscan/backend/internal/types"
)

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGetTreatment(t *testing.T) {
	gemini := new(MockGeminiService)
	router, _ := newTestRouter(new(MockDetectionService), gemini, 1<<20)
	gemini.On("TreatmentRecommendation", mock.Anything, "Tomato_Late_blight").Return("## Treatment").Once()

	w := serve(router, postJSON("/api/get_treatment", `{"disease":" Tomato_Late_blight "}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"treatment":"## Treatment"}`, w.Body.String())
	gemini.AssertExpectations(t)
}

func TestGetTreatment_RequiresDisease(t *testing.T) {
	gemini := new(MockGeminiService)
	router, _ := newTestRouter(new(MockDetectionService), gemini, 1<<20)

	for name, body := range map[string]string{
		"missing field": `{}`,
		"blank":         `{"disease":"  "}`,
		"invalid json":  `{"disease":`,
	} {
		t.Run(name, func(t *testing.T) {
			w := serve(router, postJSON("/api/get_treatment", body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Disease name is required"}`, w.Body.String())
		})
	}
	gemini.AssertNotCalled(t, "TreatmentRecommendation", mock.Anything, mock.Anything)
}

func TestChat_RequiresMessage(t *testing.T) {
	gemini := new(MockGeminiService)
	router, _ := newTestRouter(new(MockDetectionService), gemini, 1<<20)

	for name, body := range map[string]string{
		"missing field": `{"session_id":"abc"}`,
		"empty":         `{"message":""}`,
		"whitespace":    `{"message":" \t\n "}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := serve(router, postJSON("/api/chat", body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Message is required"}`, w.Body.String())
		})
	}
	gemini.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
}

func TestChat_BodySessionWins(t *testing.T) {
	gemini := new(MockGeminiService)
	router, sessions := newTestRouter(new(MockDetectionService), gemini, 1<<20)
	gemini.On("Chat", mock.Anything, "from-body", "hello").Return("hi there")

	token, err := sessions.Issue("from-cookie")
	require.NoError(t, err)
	req := postJSON("/api/chat", `{"message":"hello","session_id":"from-body"}`)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"hi there","session_id":"from-body"}`, w.Body.String())
	gemini.AssertExpectations(t)
}

func TestChat_CookieSessionRoundTrip(t *testing.T) {
	gemini := new(MockGeminiService)
	router, sessions := newTestRouter(new(MockDetectionService), gemini, 1<<20)
	gemini.On("Chat", mock.Anything, mock.Anything, mock.Anything).Return("ok")

	w := serve(router, postJSON("/api/chat", `{"message":"first"}`))
	require.Equal(t, http.StatusOK, w.Code)
	var first types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.NotEmpty(t, first.SessionID)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	id, err := sessions.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, id)

	req := postJSON("/api/chat", `{"message":"second"}`)
	req.AddCookie(cookies[0])
	w = serve(router, req)
	require.Equal(t, http.StatusOK, w.Code)
	var second types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.SessionID, second.SessionID)

	gemini.AssertCalled(t, "Chat", mock.Anything, first.SessionID, "second")
}

func TestChat_IgnoresForgedCookie(t *testing.T) {
	gemini := new(MockGeminiService)
	router, _ := newTestRouter(new(MockDetectionService), gemini, 1<<20)
	gemini.On("Chat", mock.Anything, mock.Anything, "hello").Return("ok")

	forged := middleware.NewSessionManager("other-secret", time.Hour, false)
	token, err := forged.Issue("stolen")
	require.NoError(t, err)

	req := postJSON("/api/chat", `{"message":"hello"}`)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, "stolen", resp.SessionID)
}

func TestClassifyAI(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		confidence float64
		catalog    string
	}{
		{"maps onto catalog", "Tomato Late Blight", 0.95, "Tomato_Late_blight"},
		{"free text", "Something odd", 0.95, ""},
		{"missing key", "API key missing", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gemini := new(MockGeminiService)
			router, _ := newTestRouter(new(MockDetectionService), gemini, 1<<20)
			data := []byte("jpeg bytes")
			gemini.On("ClassifyImage", mock.Anything, data, "image/jpeg").Return(tt.label, tt.confidence)

			body, contentType := multipartBody(t, "file", "leaf.jpg", "image/jpeg", data)
			req := httptest.NewRequest(http.MethodPost, "/api/classify/ai", body)
			req.Header.Set("Content-Type", contentType)
			w := serve(router, req)

			require.Equal(t, http.StatusOK, w.Code)
			var resp types.ClassifyResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.label, resp.Prediction)
			assert.InDelta(t, tt.confidence, resp.Confidence, 1e-9)
			assert.Equal(t, tt.catalog, resp.CatalogLabel)
		})
	}
}

func TestClassifyAI_RequiresFile(t *testing.T) {
	router, _ := newTestRouter(new(MockDetectionService), new(MockGeminiService), 1<<20)
	w := serve(router, postJSON("/api/classify/ai", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No file part"}`, w.Body.String())
}
