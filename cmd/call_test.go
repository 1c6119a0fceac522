package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/correlation"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/fallback"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/funnel"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/reqclient"
)

var bakeryInput = fallback.BusinessInput{
	BusinessType:     "retail",
	PrimaryChallenge: "Need funding for my bakery",
	PreferredTone:    "professional",
	DesiredOutcome:   "secure funding",
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newCallService(t *testing.T, status int, body string) (*funnel.Service, func() []string) {
	t.Helper()
	var (
		mu  sync.Mutex
		ids []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get(correlation.HeaderName))
		mu.Unlock()
		if status != http.StatusOK {
			http.Error(w, "down", status)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := reqclient.New(reqclient.Config{BaseURL: srv.URL, Timeout: time.Second}, reqclient.WithSleep(noSleep))
	return funnel.New(client, nil), func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), ids...)
	}
}

func TestRunCall_PrintsRemoteResult(t *testing.T) {
	svc, ids := newCallService(t, http.StatusOK, `{"valid":true,"feedback":"Strong input","trustScore":88}`)

	var out bytes.Buffer
	err := runCall(context.Background(), svc, funnel.OpValidateInput,
		`{"businessType":"retail","primaryChallenge":"Need funding for my bakery"}`, "cli-corr-1", &out)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, false, got["fallback"])
	assert.Equal(t, "cli-corr-1", got["correlation_id"])
	assert.Equal(t, float64(88), got["data"].(map[string]any)["trustScore"])
	assert.Equal(t, []string{"cli-corr-1"}, ids())
}

func TestRunCall_FallsBack(t *testing.T) {
	svc, ids := newCallService(t, http.StatusBadGateway, "")

	var out bytes.Buffer
	require.NoError(t, runCall(context.Background(), svc, funnel.OpGenerateSparks, "", "", &out))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, true, got["fallback"])
	assert.Equal(t, funnel.FallbackNotice, got["notice"])

	sent := ids()
	require.Len(t, sent, 3)
	assert.Equal(t, got["correlation_id"], sent[0])
	assert.Equal(t, sent[0], sent[2])
}

func TestRunCall_Errors(t *testing.T) {
	svc, ids := newCallService(t, http.StatusOK, `{}`)

	var out bytes.Buffer
	err := runCall(context.Background(), svc, "summon-unicorn", "", "", &out)
	assert.ErrorContains(t, err, "unknown operation")

	err = runCall(context.Background(), svc, funnel.OpValidateInput, `{"businessType":`, "", &out)
	var de *funnel.DecodeError
	assert.ErrorAs(t, err, &de)

	assert.Empty(t, out.String())
	assert.Empty(t, ids())
}
