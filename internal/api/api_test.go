package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/labddb/resistorlens/internal/buildinfo"
	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/datastore"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/observability"
	"github.com/labddb/resistorlens/internal/reading"
	"github.com/labddb/resistorlens/internal/scanner"
	"github.com/labddb/resistorlens/internal/testutil"
	"github.com/labddb/resistorlens/internal/vision"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

var visionResult = reading.Result{
	Bands:          []string{"Yellow", "Violet", "Red"},
	ResistanceOhms: 4700,
	FormattedValue: "4.7k",
	Confidence:     88,
}

type testEnv struct {
	server   *Server
	metrics  *observability.Metrics
	settings *conf.Settings
}

func newTestEnv(t *testing.T, analyzer vision.Analyzer, mutate ...func(*conf.Settings)) *testEnv {
	t.Helper()
	settings := &conf.Settings{}
	settings.WebServer.BodyLimit = "1M"
	settings.WebServer.Listen = "127.0.0.1:0"
	for _, fn := range mutate {
		fn(settings)
	}

	quiet := logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	m, err := observability.NewMetrics()
	require.NoError(t, err)

	hist := history.NewService(datastore.NewMemoryStore(0), history.WithLogger(quiet))
	svc := scanner.New(analyzer, hist,
		scanner.WithMetrics(m.Scanner, m.Datastore),
		scanner.WithLogger(quiet))

	srv := NewServer(settings, svc,
		WithLogger(quiet),
		WithMetrics(m),
		WithBuildInfo(buildinfo.NewContext("1.0.0", "2026-01-01")),
		WithVisionReady(analyzer != nil))
	return &testEnv{server: srv, metrics: m, settings: settings}
}

func staticAnalyzer(result reading.Result, err error) vision.Analyzer {
	return vision.AnalyzerFunc(func(context.Context, vision.Image) (reading.Result, error) {
		return result, err
	})
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.server.Echo().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return e.do(t, method, target, r, "application/json")
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, staticAnalyzer(visionResult, nil))

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.Equal(t, "configured", body["vision"])
	assert.Equal(t, "connected", body["database_status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestListColors(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/colors", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	colors := decodeBody[[]ColorResponse](t, rec)
	require.Len(t, colors, 12)

	assert.Equal(t, "black", colors[0].Name)
	require.NotNil(t, colors[0].Digit)
	assert.Equal(t, 0, *colors[0].Digit)

	gold := colors[10]
	assert.Equal(t, "Gold", gold.DisplayName)
	assert.Nil(t, gold.Digit)
	assert.InDelta(t, 0.1, gold.Multiplier, 1e-9)
	assert.Equal(t, "5%", gold.Tolerance)
}

func TestDecodeRecordsReading(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/v1/decode", `{"bands":["brown","black","red","gold"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[map[string]any](t, rec)
	result := body["result"].(map[string]any)
	assert.Equal(t, "1k", result["formatted_value"])
	assert.Equal(t, true, result["is_manual"])
	assert.InDelta(t, 100, result["confidence"], 0)
	assert.Equal(t, "1kΩ", body["display_value"])
	assert.Equal(t, string(history.SourceBands), body["source"])
	assert.InDelta(t, 1, body["usage"], 0)

	rec = env.do(t, http.MethodGet, "/api/v1/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]history.Entry](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/v1/usage", nil, "")
	assert.JSONEq(t, `{"usage":1}`, rec.Body.String())
}

func TestDecodeErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"gold digit band", `{"bands":["gold","black","red"]}`, http.StatusBadRequest},
		{"unknown color", `{"bands":["brown","black","pink"]}`, http.StatusBadRequest},
		{"too few bands", `{"bands":["brown","black"]}`, http.StatusBadRequest},
		{"malformed body", `{"bands":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/api/v1/decode", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			resp := decodeBody[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
			assert.NotEmpty(t, resp.CorrelationID)
		})
	}

	rec := env.do(t, http.MethodGet, "/api/v1/history", nil, "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestScanInputs(t *testing.T) {
	var got vision.Image
	analyzer := vision.AnalyzerFunc(func(_ context.Context, img vision.Image) (reading.Result, error) {
		got = img
		return visionResult, nil
	})
	env := newTestEnv(t, analyzer)

	t.Run("raw body", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/scan?source=camera", strings.NewReader("png-bytes"), "image/png")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "camera", body["source"])
		assert.Equal(t, "High Precision", body["quality"])
		assert.Equal(t, "image/png", got.MIMEType)
		assert.Equal(t, []byte("png-bytes"), got.Data)
	})

	t.Run("multipart", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="r.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		rec := env.do(t, http.MethodPost, "/api/v1/scan", &buf, w.FormDataContentType())
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "upload", decodeBody[map[string]any](t, rec)["source"])
		assert.Equal(t, "image/jpeg", got.MIMEType)
	})

	t.Run("data url", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/api/v1/scan", `{"image":"data:image/webp;base64,d2VicA=="}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "image/webp", got.MIMEType)
		assert.Equal(t, []byte("webp"), got.Data)
	})

	t.Run("invalid source", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/scan?source=fax", strings.NewReader("x"), "image/png")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty image", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/scan", strings.NewReader(""), "image/png")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, vision.MessageInvalidImage, decodeBody[ErrorResponse](t, rec).Message)
	})
}

func TestScanErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{vision.ErrNoResult, http.StatusUnprocessableEntity},
		{vision.ErrQuotaExceeded, http.StatusTooManyRequests},
		{vision.ErrNotConfigured, http.StatusServiceUnavailable},
		{vision.ErrAnalysisFailed, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			env := newTestEnv(t, staticAnalyzer(reading.Result{}, tt.err))
			rec := env.do(t, http.MethodPost, "/api/v1/scan", strings.NewReader("img"), "image/jpeg")
			require.Equal(t, tt.code, rec.Code)
			assert.Equal(t, vision.UserMessage(tt.err), decodeBody[ErrorResponse](t, rec).Message)

			rec = env.do(t, http.MethodGet, "/api/v1/usage", nil, "")
			assert.JSONEq(t, `{"usage":0}`, rec.Body.String())
		})
	}
}

func TestScanWithoutAnalyzer(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/scan", strings.NewReader("img"), "image/jpeg")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, vision.MessageNotConfigured, decodeBody[ErrorResponse](t, rec).Message)
}

func TestManualFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/manual", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody[ManualResponse](t, rec)
	assert.Equal(t, "1k", state.Result.FormattedValue)
	assert.Len(t, state.Options["band1"], 10)
	assert.Len(t, state.Options["multiplier"], 12)

	rec = env.doJSON(t, http.MethodPut, "/api/v1/manual", `{"slot":2,"color":"orange"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state = decodeBody[ManualResponse](t, rec)
	assert.Equal(t, "10k", state.Result.FormattedValue)
	assert.Equal(t, "Brown", state.Result.Bands[0])

	rec = env.doJSON(t, http.MethodPut, "/api/v1/manual", `{"slot":"band1","color":"gold"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.doJSON(t, http.MethodPut, "/api/v1/manual", `{"slot":7,"color":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/manual/activate", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	state = decodeBody[ManualResponse](t, rec)
	require.NotNil(t, state.Usage)
	assert.Equal(t, int64(1), *state.Usage)

	rec = env.do(t, http.MethodGet, "/api/v1/history", nil, "")
	assert.JSONEq(t, `[]`, rec.Body.String(), "edits are not recorded")

	rec = env.do(t, http.MethodPost, "/api/v1/manual/save", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Manual Input", saved["quality"])

	rec = env.do(t, http.MethodPost, "/api/v1/manual/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1k", decodeBody[ManualResponse](t, rec).Result.FormattedValue)
}

func TestClearHistoryKeepsUsage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.doJSON(t, http.MethodPost, "/api/v1/decode", `{"bands":["red","red","red"]}`)

	rec := env.do(t, http.MethodDelete, "/api/v1/history", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/history", nil, "")
	assert.JSONEq(t, `[]`, rec.Body.String())
	rec = env.do(t, http.MethodGet, "/api/v1/usage", nil, "")
	assert.JSONEq(t, `{"usage":1}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.doJSON(t, http.MethodPost, "/api/v1/decode", `{"bands":["brown","black","red"]}`)
	env.doJSON(t, http.MethodPost, "/api/v1/decode", `{"bands":["gold","black","red"]}`)

	rec := env.do(t, http.MethodGet, "/api/v1/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `resistorlens_http_requests_total{method="POST",path="/api/v1/decode",status_code="200"} 1`)
	assert.Contains(t, body, `resistorlens_http_requests_total{method="POST",path="/api/v1/decode",status_code="400"} 1`)
	assert.Contains(t, body, "resistorlens_readings_total")
}

func TestMetricsNotMountedWithDedicatedListener(t *testing.T) {
	env := newTestEnv(t, nil, func(s *conf.Settings) { s.Telemetry.Enabled = true })
	rec := env.do(t, http.MethodGet, "/api/v1/metrics", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).CorrelationID)
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t, staticAnalyzer(visionResult, nil), func(s *conf.Settings) { s.WebServer.BodyLimit = "1K" })
	rec := env.do(t, http.MethodPost, "/api/v1/scan", bytes.NewReader(make([]byte, 4096)), "image/png")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestEchoLogsThroughModuleLogger(t *testing.T) {
	var buf bytes.Buffer
	settings := &conf.Settings{}
	settings.WebServer.BodyLimit = "1M"
	hist := history.NewService(datastore.NewMemoryStore(0))
	srv := NewServer(settings, scanner.New(nil, hist),
		WithLogger(logger.NewSlogLogger(&buf, logger.LogLevelInfo, nil).Module("api")))

	require.IsType(t, &logger.EchoLoggerAdapter{}, srv.Echo().Logger)
	srv.Echo().Logger.Warnf("shutdown took %s", "2s")
	assert.Contains(t, buf.String(), `"msg":"shutdown took 2s"`)
	assert.Contains(t, buf.String(), `"module":"api.echo"`)
}

func TestServerRunAndShutdown(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.server.Run(ctx) }()

	require.Eventually(t, func() bool { return env.server.Echo().ListenerAddr() != nil }, 5*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + env.server.Echo().ListenerAddr().String() + "/api/v1/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, testutil.Receive(t, done, ShutdownTimeout, "server did not shut down"))
}
