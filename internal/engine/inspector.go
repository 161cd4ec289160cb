package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/tilewm/tilewm/internal/metrics"
	"github.com/tilewm/tilewm/internal/rules"
)

// RuleEvaluationStatus classifies one rule-resolution record.
type RuleEvaluationStatus string

const (
	RuleEvaluationMatched RuleEvaluationStatus = "matched"
	RuleEvaluationApplied RuleEvaluationStatus = "applied"
	RuleEvaluationError   RuleEvaluationStatus = "error"

	inspectorHistoryLimit = 128
)

// RuleEvaluation is one recorded rule resolution, exposed over the
// command socket's diagnostics surface for debugging a rule table that
// isn't producing the expected placement.
type RuleEvaluation struct {
	Timestamp time.Time            `json:"timestamp"`
	Window    string               `json:"window"`
	Rule      string               `json:"rule"`
	Status    RuleEvaluationStatus `json:"status"`
	Error     string               `json:"error,omitempty"`
}

// evaluationLog is a bounded ring buffer of recent rule evaluations.
type evaluationLog struct {
	mu      sync.Mutex
	entries []RuleEvaluation
	limit   int
}

func newEvaluationLog(limit int) *evaluationLog {
	if limit <= 0 {
		limit = inspectorHistoryLimit
	}
	return &evaluationLog{limit: limit}
}

func (l *evaluationLog) record(entry RuleEvaluation) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.limit {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.limit-1]
	}
	l.entries = append(l.entries, entry)
}

func (l *evaluationLog) snapshot() []RuleEvaluation {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return nil
	}
	out := make([]RuleEvaluation, len(l.entries))
	copy(out, l.entries)
	return out
}

// RecentRuleEvaluations returns the diagnostics log's current contents.
func (c *Core) RecentRuleEvaluations() []RuleEvaluation {
	return c.evalLog.snapshot()
}

// MetricsSnapshot exposes the telemetry collector's counters, used by
// the diagnostics surface and by yashikictl's status output.
func (c *Core) MetricsSnapshot() metrics.Snapshot {
	return c.metrics.Snapshot()
}

// recordRuleEvaluationsLocked re-explains every managed and ignored
// window against the current rule table and feeds the result into the
// evaluation log and the metrics collector. Called after any pass that
// re-resolves rules for the whole window set (ApplySeed, rule-add,
// rule-del), so the diagnostics surface reflects the table that's
// actually in effect rather than the one from the last explicit query.
func (c *Core) recordRuleEvaluationsLocked() {
	if c.state.Rules == nil {
		return
	}
	now := time.Now()
	for _, w := range c.state.Windows {
		c.recordWindowEvaluationLocked(fmt.Sprint(w.ID), w.RuleAttrs(), now)
	}
	for _, iw := range c.state.Ignored {
		c.recordWindowEvaluationLocked(fmt.Sprint(iw.ID), iw.RuleAttrs(), now)
	}
}

func (c *Core) recordWindowEvaluationLocked(window string, attrs rules.Attrs, now time.Time) {
	exp := c.state.Rules.Explain(attrs)
	for _, cand := range exp.Candidates {
		for _, cat := range cand.Categories {
			c.metrics.RecordMatch(cand.RuleName, cat)
		}
	}
	if len(exp.Candidates) == 0 {
		return
	}
	top := exp.Candidates[0]

	// A "display" action only actually dispatches once its specifier
	// resolves to a display the core currently knows about; an unknown
	// id or name leaves the window on its current display, so that
	// category is a dispatch error rather than an applied one.
	var dispatchErr string
	if exp.Resolved.DisplaySet {
		if _, ok := c.state.ResolveDisplaySpecifier(exp.Resolved.Display); !ok {
			dispatchErr = fmt.Sprintf("display %q does not resolve to a known display", exp.Resolved.Display)
		}
	}

	status := RuleEvaluationApplied
	for _, cat := range top.Categories {
		if dispatchErr != "" && cat == "display" {
			c.metrics.RecordDispatchError(top.RuleName, cat)
			status = RuleEvaluationError
			continue
		}
		c.metrics.RecordApplied(top.RuleName, cat)
	}

	c.evalLog.record(RuleEvaluation{
		Timestamp: now,
		Window:    window,
		Rule:      top.RuleName,
		Status:    status,
		Error:     dispatchErr,
	})
}
