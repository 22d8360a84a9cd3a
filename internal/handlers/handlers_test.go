package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silicoshield/internal/analysis"
	"silicoshield/internal/auth"
	"silicoshield/internal/geo"
	"silicoshield/internal/middleware"
	"silicoshield/internal/prediction"
	"silicoshield/internal/store"
)

const (
	testSecret  = "test-secret"
	predictBase = "http://predict.test"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := store.NewManager(time.Minute)
	predictor := prediction.NewClient(predictBase, "", time.Second)
	orch := analysis.New(predictor)
	gate := auth.NewGate(testSecret, 0)
	authClient := auth.NewClient(predictBase, time.Second)
	resolver := geo.NewResolver(time.Second, time.Minute)

	r := gin.New()
	sessionStore := cookie.NewStore([]byte("test-session-secret"))
	r.Use(sessions.Sessions("silicoshield", sessionStore))

	public := r.Group("/api")
	{
		public.GET("/health", Health(predictor))
		public.POST("/auth/gate", Gate(gate))
		public.POST("/auth/login", Login(authClient))
		public.POST("/auth/logout", Logout(manager))
		public.GET("/auth/session", Session())
	}

	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/images", Upload(manager))
		protected.GET("/images", List(manager))
		protected.GET("/images/:id/preview", Preview(manager))
		protected.DELETE("/images/:id", Remove(manager))
		protected.POST("/analyze", Analyze(orch, manager))
		protected.GET("/overview", Overview(manager))
		protected.GET("/hospitals", Hospitals(resolver))
		protected.POST("/view", Navigate(manager))
	}

	return r
}

// testClient carries the session cookie across requests, like a browser
// within one browsing session.
type testClient struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func newTestClient(t *testing.T, r *gin.Engine) *testClient {
	return &testClient{t: t, router: r, cookies: make(map[string]*http.Cookie)}
}

func (c *testClient) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *testClient) doJSON(method, path string, payload interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(c.t, err)
	return c.do(method, path, bytes.NewReader(body), "application/json")
}

func (c *testClient) authenticate() {
	c.t.Helper()
	w := c.doJSON(http.MethodPost, "/api/auth/gate", gin.H{"password": testSecret})
	require.Equal(c.t, http.StatusOK, w.Code)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range files {
		part, err := writer.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
}

func TestGate_WrongPassword(t *testing.T) {
	c := newTestClient(t, newTestRouter(t))

	w := c.doJSON(http.MethodPost, "/api/auth/gate", gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Incorrect password", decode(t, w)["error"])

	// Session stays unauthenticated: protected routes are still blocked.
	w = c.do(http.MethodGet, "/api/images", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodGet, "/api/auth/session", nil, "")
	assert.Equal(t, false, decode(t, w)["authenticated"])
}

func TestGate_CorrectPasswordPersistsSession(t *testing.T) {
	c := newTestClient(t, newTestRouter(t))
	c.authenticate()

	w := c.do(http.MethodGet, "/api/auth/session", nil, "")
	assert.Equal(t, true, decode(t, w)["authenticated"])

	w = c.do(http.MethodGet, "/api/images", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout_ClearsSession(t *testing.T) {
	c := newTestClient(t, newTestRouter(t))
	c.authenticate()

	w := c.do(http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/api/images", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpload_FiltersNonImages(t *testing.T) {
	c := newTestClient(t, newTestRouter(t))
	c.authenticate()

	body, ct := multipartBody(t, map[string][]byte{
		"scan1.png": pngBytes(),
		"scan2.png": pngBytes(),
		"notes.txt": []byte("definitely not an image"),
	})
	w := c.do(http.MethodPost, "/api/images", body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, float64(2), resp["accepted"])
	assert.Equal(t, float64(1), resp["skipped"])
	assert.Equal(t, "results", resp["view"])
}

func TestRemove_UnknownIdIsNoOp(t *testing.T) {
	c := newTestClient(t, newTestRouter(t))
	c.authenticate()

	body, ct := multipartBody(t, map[string][]byte{"scan.png": pngBytes()})
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/images", body, ct).Code)

	w := c.do(http.MethodDelete, "/api/images/does-not-exist", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, c.do(http.MethodGet, "/api/images", nil, ""))
	assert.Len(t, resp["images"], 1)
}

func TestHospitals_SortedAndDegradesWithoutLocation(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	// Both IP services down: personalization degrades, never errors.
	httpmock.RegisterResponder(http.MethodGet, "http://ip-api.com/json/",
		httpmock.NewStringResponder(http.StatusInternalServerError, ``))
	httpmock.RegisterResponder(http.MethodGet, "https://ipapi.co/json/",
		httpmock.NewStringResponder(http.StatusInternalServerError, ``))

	c := newTestClient(t, newTestRouter(t))
	c.authenticate()

	w := c.do(http.MethodGet, "/api/hospitals", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Nil(t, resp["location"])
	list, ok := resp["hospitals"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, list)

	prev := -1.0
	for _, item := range list {
		h := item.(map[string]interface{})
		d := h["distance"].(float64)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestEndToEnd_UploadAnalyzeComplete(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodPost, predictBase+"/api/predict",
		httpmock.NewStringResponder(http.StatusOK,
			`{"success": true, "results": [{"hasSilicosis": true, "confidence": 91, "severity": "severe", "findings": ["nodular opacities"], "recommendations": ["consult pulmonologist"]}]}`))

	c := newTestClient(t, newTestRouter(t))
	c.authenticate()

	// Upload 2 valid images + 1 non-image.
	body, ct := multipartBody(t, map[string][]byte{
		"scan1.png": pngBytes(),
		"scan2.png": pngBytes(),
		"notes.txt": []byte("not an image"),
	})
	w := c.do(http.MethodPost, "/api/images", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(2), decode(t, w)["accepted"])
	require.Equal(t, "results", decode(t, w)["view"])

	// Analyze: both complete sequentially.
	w = c.do(http.MethodPost, "/api/analyze", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode(t, w)
	assert.Equal(t, float64(2), report["processed"])
	assert.Equal(t, float64(2), report["completed"])
	assert.Equal(t, 2, httpmock.GetTotalCallCount())

	// All images completed with results attached.
	resp := decode(t, c.do(http.MethodGet, "/api/images", nil, ""))
	images := resp["images"].([]interface{})
	require.Len(t, images, 2)
	for _, item := range images {
		img := item.(map[string]interface{})
		assert.Equal(t, "completed", img["status"])
		require.NotNil(t, img["result"])
	}
	assert.Equal(t, float64(2), resp["completed_count"])

	// Overview aggregates the completed analyses.
	overview := decode(t, c.do(http.MethodGet, "/api/overview", nil, ""))
	assert.Equal(t, float64(2), overview["total_analyzed"])
	assert.Equal(t, float64(2), overview["positive_count"])
	assert.Equal(t, float64(91), overview["avg_confidence"])
	assert.Equal(t, float64(2), overview["severe_cases"])

	// Remove one image.
	first := images[0].(map[string]interface{})
	w = c.do(http.MethodDelete, "/api/images/"+first["id"].(string), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, c.do(http.MethodGet, "/api/images", nil, ""))
	assert.Len(t, resp["images"], 1)
}

func TestAnalyze_FailureNamesFileAndReverts(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodPost, predictBase+"/api/predict",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error": "model crashed"}`))

	c := newTestClient(t, newTestRouter(t))
	c.authenticate()

	body, ct := multipartBody(t, map[string][]byte{"scan.png": pngBytes()})
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/images", body, ct).Code)

	w := c.do(http.MethodPost, "/api/analyze", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	report := decode(t, w)
	assert.Equal(t, float64(0), report["completed"])
	failures := report["failures"].([]interface{})
	require.Len(t, failures, 1)
	assert.Equal(t, "scan.png", failures[0].(map[string]interface{})["filename"])

	// The image is pending again, eligible for a re-trigger.
	resp := decode(t, c.do(http.MethodGet, "/api/images", nil, ""))
	img := resp["images"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "pending", img["status"])
	assert.Nil(t, img["result"])
}

func TestAnalyze_NoPendingImages(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	c := newTestClient(t, newTestRouter(t))
	c.authenticate()

	w := c.do(http.MethodPost, "/api/analyze", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["processed"])
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestNavigate(t *testing.T) {
	c := newTestClient(t, newTestRouter(t))
	c.authenticate()

	w := c.doJSON(http.MethodPost, "/api/view", gin.H{"view": "results"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "results", decode(t, w)["view"])

	w = c.doJSON(http.MethodPost, "/api/view", gin.H{"view": "home"})
	assert.Equal(t, "home", decode(t, w)["view"])
}
