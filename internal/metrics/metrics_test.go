package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Webhook("call_start", OutcomeOK)
	m.Notification("call", OutcomeError)
	m.Archive(OutcomeOK)
	m.ProxyFetch(OutcomeRejected)
	m.CallEvent("created")
}

func TestCountersIncrement(t *testing.T) {
	m := New()
	m.Webhook("recording", OutcomeIgnored)
	m.Webhook("recording", OutcomeIgnored)
	m.Notification("voicemail", OutcomeOK)

	body := scrape(t, m)
	assert.Contains(t, body, `calldesk_webhooks_total{outcome="ignored",route="recording"} 2`)
	assert.Contains(t, body, `calldesk_notifications_total{kind="voicemail",outcome="ok"} 1`)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Archive(OutcomeError)

	assert.True(t, strings.Contains(scrape(t, m), `calldesk_voicemail_archives_total{outcome="error"} 1`))
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
