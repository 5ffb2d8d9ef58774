// Package browser implements the remote-instance provider: it connects to a
// provider-side Chrome instance over the DevTools protocol and exposes the
// UI-automation tool bindings the action executor drives.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/tool"
)

// Handle is a live connection to one remote instance. A handle is bound to a
// single invocation; Close releases the connection but never the underlying
// browser, which stays alive across the plan chain.
type Handle interface {
	// Probe verifies the connection answers a trivial evaluation. Used by
	// the tool-binding validator before any step work starts.
	Probe(ctx context.Context) error

	// Tools returns the UI-automation tool bindings for this handle.
	Tools() []tool.Tool

	// RestoreSession installs a serialized cookie jar into the browser,
	// re-establishing an authenticated state without a fresh login.
	RestoreSession(ctx context.Context, session core.AuthSession) error

	// Close releases the DevTools connection.
	Close()
}

// Provider connects to remote instances by their provider-side reference.
type Provider interface {
	Connect(ctx context.Context, ref string) (Handle, error)
}

// ChromeProviderOptions configures the chromedp-backed provider.
type ChromeProviderOptions struct {
	// ActionTimeout bounds each individual browser action.
	ActionTimeout time.Duration
	// ContentLimit truncates read_page output beyond this many bytes.
	ContentLimit int
}

// ChromeProvider connects to remote Chrome instances via their DevTools
// websocket URL (the instance's provider reference).
type ChromeProvider struct {
	opts ChromeProviderOptions
}

// NewChromeProvider constructs a provider with sensible defaults.
func NewChromeProvider(optFns ...func(o *ChromeProviderOptions)) *ChromeProvider {
	opts := ChromeProviderOptions{
		ActionTimeout: 60 * time.Second,
		ContentLimit:  50000,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ChromeProvider{opts: opts}
}

// Connect implements Provider. The ref must be a DevTools websocket URL.
func (p *ChromeProvider) Connect(ctx context.Context, ref string) (Handle, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty provider reference")
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, ref)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	h := &chromeHandle{
		ctx:  browserCtx,
		opts: p.opts,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}
	return h, nil
}

// chromeHandle is the chromedp-backed Handle implementation.
type chromeHandle struct {
	ctx    context.Context
	opts   ChromeProviderOptions
	cancel context.CancelFunc
}

// Probe implements Handle.
func (h *chromeHandle) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	var state string
	if err := chromedp.Run(probeCtx, chromedp.Evaluate("document.readyState", &state)); err != nil {
		return fmt.Errorf("instance probe failed: %w", err)
	}
	return nil
}

// Close implements Handle.
func (h *chromeHandle) Close() { h.cancel() }

// run executes one browser action under the per-action timeout.
func (h *chromeHandle) run(actions ...chromedp.Action) error {
	actionCtx, cancel := context.WithTimeout(h.ctx, h.opts.ActionTimeout)
	defer cancel()
	return chromedp.Run(actionCtx, actions...)
}
