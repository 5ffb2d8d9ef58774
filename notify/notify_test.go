package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_PostsCompletionEvent(t *testing.T) {
	var received completionEvent
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL)
	err := n.NotifyPlanCompleted(context.Background(), "site-1", "inst-1", "plan-1")
	require.NoError(t, err)

	assert.Equal(t, "plan.completed", received.Event)
	assert.Equal(t, "site-1", received.SiteID)
	assert.Equal(t, "inst-1", received.InstanceID)
	assert.Equal(t, "plan-1", received.PlanID)
	assert.NotEmpty(t, received.OccurredAt)
}

func TestWebhookNotifier_NonSuccessStatusIsAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL)
	err := n.NotifyPlanCompleted(context.Background(), "s", "i", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNoOpNotifier(t *testing.T) {
	assert.NoError(t, NoOpNotifier{}.NotifyPlanCompleted(context.Background(), "s", "i", "p"))
}
