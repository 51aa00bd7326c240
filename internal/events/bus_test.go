package events

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"call-desk/internal/calls"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_FanOut(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())

	a, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	ch := calls.Change{Kind: calls.ChangeCreated, CallID: "c1", Status: calls.StatusOpen}
	require.NoError(t, bus.Publish(context.Background(), ch))

	assert.Equal(t, ch, <-a)
	assert.Equal(t, ch, <-b)

	cancel()
	require.Eventually(t, func() bool { return bus.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-a
	assert.False(t, open)
}

func TestStreamHandler_WritesCallEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	bus := NewMemoryBus()

	r := gin.New()
	r.GET("/calls/events", StreamHandler(bus, time.Minute))
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/calls/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	want := calls.Change{Kind: calls.ChangeVoicemail, CallID: "c9", Status: calls.StatusOpen}
	require.NoError(t, bus.Publish(context.Background(), want))

	sc := bufio.NewScanner(resp.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
		if data != "" {
			break
		}
	}
	assert.Equal(t, "call", event)

	var got calls.Change
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, want.CallID, got.CallID)
	assert.Equal(t, want.Kind, got.Kind)
}
