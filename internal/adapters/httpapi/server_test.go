package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/factory"
	"github.com/mikey/phishing-detector/internal/whitelist"

	"github.com/mikey/phishing-detector/internal/adapters/httpapi"
)

func newTestServer(t *testing.T) *httpapi.Server {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.NewFromViper(config.NewEmptyViper())
	f := factory.NewAnalyzerFactory(cfg, logger)

	analyzers, err := f.CreateAnalyzers()
	require.NoError(t, err)

	service := core.NewAnalysisService(
		analyzers,
		f.CreateScorer(),
		nil,
		whitelist.NewChecker(nil, logger),
		logger,
		false,
		0,
		5*time.Second,
	)
	return httpapi.NewServer(service, logger, "127.0.0.1:0", 1024*1024)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()

	s.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHandleAnalyzeJSON(t *testing.T) {
	s := newTestServer(t)

	email := core.ParsedEmail{
		SenderName:    "PayPal Security",
		SenderAddress: "support@paypa1-security.tk",
		Subject:       "Verify your account",
		BodyText:      "Your account has been suspended. Verify your password immediately.",
		URLs:          []string{"http://paypa1-security.tk/login"},
		Attachments:   []core.Attachment{},
	}
	body, err := json.Marshal(email)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.HandleAnalyzeJSON(rec, httptest.NewRequest(http.MethodPost, "/v1/analyze/json", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var report core.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.GreaterOrEqual(t, report.TotalScore, 50.0)
	assert.NotEmpty(t, report.Recommendations)
}

func TestHandleAnalyzeJSONInvalidStructure(t *testing.T) {
	s := newTestServer(t)

	// URLs missing entirely: the engine refuses to guess
	rec := httptest.NewRecorder()
	s.HandleAnalyzeJSON(rec, httptest.NewRequest(http.MethodPost, "/v1/analyze/json",
		strings.NewReader(`{"sender_address":"a@b.c"}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleAnalyzeJSONBadPayload(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.HandleAnalyzeJSON(rec, httptest.NewRequest(http.MethodPost, "/v1/analyze/json",
		strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalyzeRaw(t *testing.T) {
	s := newTestServer(t)

	raw := "From: Alice <alice@example.com>\r\n" +
		"Subject: Hello\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Just checking in.\r\n"

	rec := httptest.NewRecorder()
	s.HandleAnalyzeRaw(rec, httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(raw)))

	require.Equal(t, http.StatusOK, rec.Code)

	var report core.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, core.ThreatSafe, report.ThreatLevel)
}
