package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/store/memory"
)

func TestKeywordDetector_RequiredDomains(t *testing.T) {
	detector := NewKeywordDetector()

	plan := &core.Plan{Title: "Post on LinkedIn", Description: "Share the launch announcement"}
	step := &core.Step{Title: "Open feed", Description: "Go to the LinkedIn home feed"}
	assert.Equal(t, []string{"linkedin.com"}, detector.RequiredDomains(plan, step))

	plan = &core.Plan{Title: "Cross-post", Description: "Publish on Twitter and Reddit"}
	assert.Equal(t, []string{"reddit.com", "x.com"}, detector.RequiredDomains(plan, nil))

	plan = &core.Plan{Title: "Research prospects", Description: "Browse company websites"}
	assert.Empty(t, detector.RequiredDomains(plan, nil))
}

func TestKeywordDetector_AddDomain(t *testing.T) {
	detector := NewKeywordDetector()
	detector.AddDomain("news.ycombinator.com", "hacker news")

	plan := &core.Plan{Title: "Submit to Hacker News"}
	assert.Equal(t, []string{"news.ycombinator.com"}, detector.RequiredDomains(plan, nil))
}

func TestSessionContext_AvailabilityReport(t *testing.T) {
	st := memory.NewStore()
	inst := seedInstance(st, core.InstanceRunning)
	plan := seedPlan(st, inst, core.StepPending)
	plan.Description = "Post the update on LinkedIn and Instagram"
	require.NoError(t, st.UpdatePlan(context.Background(), plan))

	st.PutSession(&core.AuthSession{
		ID: core.NewID(), SiteID: inst.SiteID, Domain: "linkedin.com",
		IsValid: true, LastUsedAt: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	})

	eng := newTestEngine(st, &fakeProvider{}, textExecutor(""), &countingNotifier{})
	plan, err := st.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)

	sc, err := eng.sessionContextFor(context.Background(), inst, plan, &plan.Steps[0])
	require.NoError(t, err)

	assert.Equal(t, []string{"instagram.com", "linkedin.com"}, sc.required)
	assert.Equal(t, []string{"linkedin.com"}, sc.covered)
	assert.Equal(t, []string{"instagram.com"}, sc.missing)
	assert.True(t, sc.firstInChain)
	require.NotNil(t, sc.authSession)

	summary := sc.summary()
	assert.Contains(t, summary, "linkedin.com")
	assert.Contains(t, summary, "instagram.com")
	assert.Contains(t, summary, "manual login may be required")
}

func TestSessionContext_SkipsAuthLaterInChain(t *testing.T) {
	st := memory.NewStore()
	inst := seedInstance(st, core.InstanceRunning)

	done := seedPlan(st, inst, core.StepCompleted)
	done.Status = core.PlanCompleted
	require.NoError(t, st.UpdatePlan(context.Background(), done))

	st.PutSession(&core.AuthSession{
		ID: core.NewID(), SiteID: inst.SiteID, Domain: "linkedin.com",
		IsValid: true, LastUsedAt: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	})

	next := seedPlan(st, inst, core.StepPending)
	eng := newTestEngine(st, &fakeProvider{}, textExecutor(""), &countingNotifier{})

	sc, err := eng.sessionContextFor(context.Background(), inst, next, &next.Steps[0])
	require.NoError(t, err)

	assert.False(t, sc.firstInChain)
	assert.Nil(t, sc.authSession)
	assert.Contains(t, sc.summary(), "do not log in again")
}

func TestSessionContext_NoSessions(t *testing.T) {
	st := memory.NewStore()
	inst := seedInstance(st, core.InstanceRunning)
	plan := seedPlan(st, inst, core.StepPending)

	eng := newTestEngine(st, &fakeProvider{}, textExecutor(""), &countingNotifier{})
	sc, err := eng.sessionContextFor(context.Background(), inst, plan, &plan.Steps[0])
	require.NoError(t, err)

	assert.True(t, sc.firstInChain)
	assert.Nil(t, sc.authSession)
	assert.Contains(t, sc.summary(), "No stored authentication sessions")
}
