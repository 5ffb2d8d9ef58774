// Package planmesh provides a high-level façade over the plan execution
// engine and its collaborators (datastore, browser provider, action executor,
// completion notifier). Most applications interact with this package by:
//  1. Creating a Planmesh via New() (optionally overriding the default
//     in-memory store and no-op notifier)
//  2. Calling ExecuteStep once per invocation to advance the active plan
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments supply the SQLite store, a real model
// adapter, and the webhook notifier.
package planmesh

import (
	"context"

	"github.com/growforge/planmesh/browser"
	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/engine"
	"github.com/growforge/planmesh/executor"
	"github.com/growforge/planmesh/logging"
	"github.com/growforge/planmesh/notify"
	"github.com/growforge/planmesh/store/memory"
)

// Options configures the Planmesh instance.
type Options struct {
	// Store (defaults to the in-memory implementation if not provided)
	Store core.Store

	// Provider connects to remote browser instances (defaults to the
	// chromedp provider).
	Provider browser.Provider

	// Notifier receives plan-completion events (defaults to no-op).
	Notifier notify.CompletionNotifier

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Engine tuning, applied on top of the engine defaults.
	EngineOptions []func(o *engine.Options)
}

// Planmesh is the high-level façade aggregating the engine and its services.
type Planmesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new Planmesh instance over the given action executor. Any
// unset service is initialized with a local default.
func New(exec executor.Executor, optFns ...func(o *Options)) *Planmesh {
	opts := Options{
		Store:    memory.NewStore(),
		Provider: browser.NewChromeProvider(),
		Notifier: notify.NoOpNotifier{},
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	engOpts := append([]func(o *engine.Options){func(o *engine.Options) {
		o.Logger = opts.Logger
	}}, opts.EngineOptions...)

	return &Planmesh{
		opts:   opts,
		engine: engine.New(opts.Store, opts.Provider, exec, opts.Notifier, engOpts...),
	}
}

// ExecuteStep advances exactly one step of a plan on the named instance.
func (p *Planmesh) ExecuteStep(ctx context.Context, req engine.Request) (*engine.Response, error) {
	return p.engine.ExecuteStep(ctx, req)
}

// Engine exposes the underlying engine for HTTP wiring.
func (p *Planmesh) Engine() *engine.Engine { return p.engine }

// Store exposes the configured datastore.
func (p *Planmesh) Store() core.Store { return p.opts.Store }
