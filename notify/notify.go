// Package notify delivers plan-completion events to the downstream workflow
// service. Delivery is best-effort: the engine persists completion first and
// never rolls it back when notification fails.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/growforge/planmesh/logging"
)

// CompletionNotifier is invoked exactly once per plan, on the transition into
// the completed state.
type CompletionNotifier interface {
	NotifyPlanCompleted(ctx context.Context, siteID, instanceID, planID string) error
}

// NoOpNotifier discards completion events.
type NoOpNotifier struct{}

// NotifyPlanCompleted implements CompletionNotifier.
func (NoOpNotifier) NotifyPlanCompleted(context.Context, string, string, string) error { return nil }

// WebhookNotifierOptions configures the webhook notifier.
type WebhookNotifierOptions struct {
	// Timeout bounds one delivery attempt.
	Timeout time.Duration
	Logger  logging.Logger
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// WebhookNotifier posts completion events as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger logging.Logger
}

// NewWebhookNotifier constructs a webhook notifier for the given endpoint.
func NewWebhookNotifier(url string, optFns ...func(o *WebhookNotifierOptions)) *WebhookNotifier {
	opts := WebhookNotifierOptions{
		Timeout: 15 * time.Second,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &WebhookNotifier{url: url, client: client, logger: opts.Logger}
}

type completionEvent struct {
	Event      string `json:"event"`
	SiteID     string `json:"site_id"`
	InstanceID string `json:"instance_id"`
	PlanID     string `json:"plan_id"`
	OccurredAt string `json:"occurred_at"`
}

// NotifyPlanCompleted implements CompletionNotifier.
func (n *WebhookNotifier) NotifyPlanCompleted(ctx context.Context, siteID, instanceID, planID string) error {
	body, err := json.Marshal(completionEvent{
		Event:      "plan.completed",
		SiteID:     siteID,
		InstanceID: instanceID,
		PlanID:     planID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode completion event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver completion event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("completion endpoint returned %s", resp.Status)
	}

	n.logger.Debug("notify.plan_completed", "plan_id", planID, "instance_id", instanceID)
	return nil
}
