package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adprint/internal/http/handlers"
	"adprint/internal/providers/genai"
	"adprint/internal/quota"
	"adprint/internal/studio"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n0000")

type harness struct {
	server  *httptest.Server
	client  *http.Client
	studio  *studio.Studio
	tracker *quota.Tracker
}

func newHarness(t *testing.T, used int) *harness {
	t.Helper()
	logger := zerolog.Nop()
	tracker := quota.NewTracker(context.Background(), quota.NewMemoryStore(used), quota.DefaultCeiling, logger)
	st := studio.New(studio.Options{
		Generator: genai.NewSynthetic(logger),
		Quota:     tracker,
		Logger:    logger,
	})
	app, err := handlers.NewApp(st, "synthetic", logger)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(app, logger, false))
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h := &harness{server: srv, client: &http.Client{Jar: jar}, studio: st, tracker: tracker}
	t.Cleanup(func() {
		st.Wait()
		h.client.CloseIdleConnections()
		srv.Close()
	})
	return h
}

func (h *harness) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) session(t *testing.T) map[string]any {
	t.Helper()
	resp := h.do(t, http.MethodGet, "/api/session", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func creationForm(t *testing.T, fields url.Values, withImage bool) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	if withImage {
		fw, err := mw.CreateFormFile("product_image", "product.png")
		require.NoError(t, err)
		_, err = fw.Write(pngMagic)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func lumaFields() url.Values {
	return url.Values{
		"brand_name":        {"Luma"},
		"brand_features":    {"Hand-poured soy candles"},
		"audience_age":      {"20-35"},
		"audience_location": {"Both"},
		"generation_mode":   {"2"},
		"aspect_ratios":     {"1:1", "16:9"},
	}
}

func TestStudioFlowEndToEnd(t *testing.T) {
	h := newHarness(t, 0)

	resp := h.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Start Creating Free")

	resp = h.do(t, http.MethodPost, "/start", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readBody(t, resp)
	assert.Contains(t, page, "studio-form")
	assert.Contains(t, page, "5 free creations left")

	body, ct := creationForm(t, lumaFields(), true)
	resp = h.do(t, http.MethodPost, "/ads", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.studio.Wait()
	sess := h.session(t)
	assert.Equal(t, "results", sess["state"])
	assert.EqualValues(t, 4, sess["remaining"])
	ads, ok := sess["ads"].([]any)
	require.True(t, ok)
	require.Len(t, ads, 4)
	assert.Equal(t, 1, h.tracker.Count())

	resp = h.do(t, http.MethodGet, "/ads/0/image", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	disposition, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.True(t, strings.HasSuffix(params["filename"], ".png"))
	assert.NotContains(t, params["filename"], " ")

	resp = h.do(t, http.MethodGet, "/ads/0/image?inline=1", nil, "")
	disposition, _, err = mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "inline", disposition)

	resp = h.do(t, http.MethodGet, "/ads/9/image", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/ads/archive.zip", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	archive, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 4)

	resp = h.do(t, http.MethodPost, "/create-more", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = readBody(t, resp)
	assert.Contains(t, page, "studio-form")
	assert.Contains(t, page, `value="Luma"`)
	assert.Equal(t, "creating", h.session(t)["state"])
}

func TestSubmitValidationKeepsForm(t *testing.T) {
	h := newHarness(t, 0)
	h.do(t, http.MethodPost, "/start", nil, "")

	fields := lumaFields()
	fields.Set("brand_name", "  ")
	body, ct := creationForm(t, fields, false)
	resp := h.do(t, http.MethodPost, "/ads", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	page := readBody(t, resp)
	assert.Contains(t, page, "product image")
	assert.Contains(t, page, "brand name")
	assert.Contains(t, page, "Hand-poured soy candles")

	assert.Equal(t, "creating", h.session(t)["state"])
	assert.Equal(t, 0, h.tracker.Count())
}

func TestSubmitReusesDraftImage(t *testing.T) {
	h := newHarness(t, 0)
	h.do(t, http.MethodPost, "/start", nil, "")

	fields := lumaFields()
	fields.Del("brand_features")
	body, ct := creationForm(t, fields, true)
	resp := h.do(t, http.MethodPost, "/ads", body, ct)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body, ct = creationForm(t, lumaFields(), false)
	resp = h.do(t, http.MethodPost, "/ads", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h.studio.Wait()
	assert.Equal(t, "results", h.session(t)["state"])
}

func TestSubmitOutsideCreatingConflicts(t *testing.T) {
	h := newHarness(t, 0)
	body, ct := creationForm(t, lumaFields(), true)
	resp := h.do(t, http.MethodPost, "/ads", body, ct)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "landing", h.session(t)["state"])
}

func TestExhaustedQuotaOpensSignup(t *testing.T) {
	h := newHarness(t, quota.DefaultCeiling)

	resp := h.do(t, http.MethodPost, "/start", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readBody(t, resp)
	assert.Contains(t, page, "Join adPrintHQ")
	assert.NotContains(t, page, `id="signup" hidden`)

	sess := h.session(t)
	assert.Equal(t, "landing", sess["state"])
	assert.Equal(t, true, sess["signup_open"])
	assert.EqualValues(t, 0, sess["remaining"])
}

func TestSignupToggleForScripts(t *testing.T) {
	h := newHarness(t, 0)

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/signup/open", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, true, h.session(t)["signup_open"])

	resp = h.do(t, http.MethodPost, "/signup/close", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, h.session(t)["signup_open"])
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, 0)

	resp := h.do(t, http.MethodGet, "/v1/healthz", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "synthetic", health["generator"])

	resp = h.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "adprint_")
}

func TestUnreadableUploadNamesAcceptedFormats(t *testing.T) {
	h := newHarness(t, 0)
	h.do(t, http.MethodPost, "/start", nil, "")

	resp := h.do(t, http.MethodPost, "/ads", strings.NewReader("not a multipart body"), "multipart/form-data; boundary=xyz")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "PNG, JPEG or WebP")
	assert.Equal(t, "creating", h.session(t)["state"])
}
