package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/growforge/planmesh/core"
)

// DomainDetector computes which session domains a plan's current step needs.
// It is pluggable so the keyword scan can later be replaced by a structured
// required-capabilities field on the plan without touching the control flow.
type DomainDetector interface {
	RequiredDomains(plan *core.Plan, step *core.Step) []string
}

// KeywordDetector maps platform keywords found in plan/step text to session
// domains. Matching is case-insensitive substring search.
type KeywordDetector struct {
	keywords map[string][]string
}

// NewKeywordDetector builds a detector preloaded with the platforms the
// automation targets most often.
func NewKeywordDetector() *KeywordDetector {
	return &KeywordDetector{keywords: map[string][]string{
		"linkedin.com":  {"linkedin"},
		"x.com":         {"twitter", "x.com", "tweet"},
		"facebook.com":  {"facebook"},
		"instagram.com": {"instagram"},
		"youtube.com":   {"youtube"},
		"reddit.com":    {"reddit"},
		"medium.com":    {"medium"},
	}}
}

// AddDomain registers extra keywords for a domain.
func (d *KeywordDetector) AddDomain(domain string, keywords ...string) {
	d.keywords[domain] = append(d.keywords[domain], keywords...)
}

// RequiredDomains implements DomainDetector.
func (d *KeywordDetector) RequiredDomains(plan *core.Plan, step *core.Step) []string {
	text := strings.ToLower(plan.Title + " " + plan.Description)
	if step != nil {
		text += " " + strings.ToLower(step.Title+" "+step.Description)
	}

	var out []string
	for domain, words := range d.keywords {
		for _, w := range words {
			if strings.Contains(text, w) {
				out = append(out, domain)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// sessionContext is the coordinator's output: the available session pool,
// the availability report against required domains, and the auto-auth
// decision for this invocation.
type sessionContext struct {
	sessions     []core.AuthSession
	required     []string
	covered      []string
	missing      []string
	firstInChain bool
	// authSession is the session to restore into the remote browser, nil
	// when authentication is skipped for this invocation.
	authSession *core.AuthSession
}

// sessionContextFor loads the site's valid sessions, cross-references them
// against the domains the step's text requires, and decides whether this plan
// opens a new chain on the instance. Only the first plan in a chain restores
// a session; subsequent plans reuse the browser state that is already
// authenticated.
func (e *Engine) sessionContextFor(ctx context.Context, inst *core.Instance, plan *core.Plan, step *core.Step) (*sessionContext, error) {
	sessions, err := e.store.ValidSessions(ctx, inst.SiteID)
	if err != nil {
		return nil, fmt.Errorf("load sessions for site %s: %w", inst.SiteID, err)
	}

	sc := &sessionContext{
		sessions: sessions,
		required: e.detector.RequiredDomains(plan, step),
	}

	byDomain := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		byDomain[strings.ToLower(s.Domain)] = true
	}
	for _, domain := range sc.required {
		if byDomain[domain] {
			sc.covered = append(sc.covered, domain)
		} else {
			sc.missing = append(sc.missing, domain)
		}
	}

	completed, err := e.store.HasCompletedPlan(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("detect plan chain for instance %s: %w", inst.ID, err)
	}
	sc.firstInChain = !completed

	if sc.firstInChain && len(sessions) > 0 {
		// ValidSessions returns most recently used first.
		sc.authSession = &sessions[0]
	}

	return sc, nil
}

// authenticate restores the chosen session into the connected browser and
// records its use. A nil authSession means the chain is already authenticated
// and the restore is deliberately skipped.
func (e *Engine) authenticate(ctx context.Context, handle sessionRestorer, sc *sessionContext) error {
	if sc.authSession == nil {
		e.logger.Debug("engine.auth.skipped", "first_in_chain", sc.firstInChain)
		return nil
	}

	if err := handle.RestoreSession(ctx, *sc.authSession); err != nil {
		return fmt.Errorf("restore session %s: %w", sc.authSession.ID, err)
	}
	if err := e.store.TouchSession(ctx, sc.authSession.ID); err != nil {
		e.logger.Warn("engine.auth.touch_failed", "session_id", sc.authSession.ID, "error", err)
	}

	e.logger.Info("engine.auth.restored", "session_id", sc.authSession.ID, "domain", sc.authSession.Domain)
	return nil
}

// sessionRestorer is the slice of the browser handle the coordinator needs.
type sessionRestorer interface {
	RestoreSession(ctx context.Context, session core.AuthSession) error
}

// summary renders the availability report as guidance text for the prompt
// and for the response's sessions_info field.
func (sc *sessionContext) summary() string {
	var b strings.Builder

	switch len(sc.sessions) {
	case 0:
		b.WriteString("No stored authentication sessions are available.")
	default:
		fmt.Fprintf(&b, "%d valid authentication session(s) available for:", len(sc.sessions))
		for _, s := range sc.sessions {
			b.WriteString(" " + s.Domain)
		}
		b.WriteString(".")
	}

	if len(sc.required) > 0 {
		fmt.Fprintf(&b, " Required domains: %s.", strings.Join(sc.required, ", "))
		if len(sc.missing) > 0 {
			fmt.Fprintf(&b, " Missing sessions for: %s; manual login may be required.", strings.Join(sc.missing, ", "))
		}
	}

	if sc.authSession != nil {
		fmt.Fprintf(&b, " Session for %s was restored into the browser.", sc.authSession.Domain)
	} else if !sc.firstInChain {
		b.WriteString(" Browser state from the previous plan in this chain is reused; do not log in again unless a page demands it.")
	}

	return b.String()
}
