package completion

import (
	"strings"

	"github.com/papercomputeco/folio/pkg/llm"
)

// aggregator accumulates normalized chunks into a running result.
type aggregator struct {
	text             strings.Builder
	reasoning        strings.Builder
	reasoningContent strings.Builder

	// An empty reasoning delta is indistinguishable from no delta, so these
	// flip only on a non-empty write.
	hasReasoning        bool
	hasReasoningContent bool

	finish *llm.FinishReason
	id     string
}

// add folds c into the aggregate and reports whether c carried a finish
// reason, which finalizes the call.
func (a *aggregator) add(c llm.Chunk) bool {
	if c.Content != "" {
		a.text.WriteString(c.Content)
	}
	if c.Reasoning != nil && *c.Reasoning != "" {
		a.reasoning.WriteString(*c.Reasoning)
		a.hasReasoning = true
	}
	if c.ReasoningContent != nil && *c.ReasoningContent != "" {
		a.reasoningContent.WriteString(*c.ReasoningContent)
		a.hasReasoningContent = true
	}
	if c.ID != nil && *c.ID != "" {
		a.id = *c.ID
	}
	if c.FinishReason != nil {
		reason := *c.FinishReason
		a.finish = &reason
		return true
	}
	return false
}

// snapshot packages the aggregate, substituting "stop" for a missing finish
// reason.
func (a *aggregator) snapshot() *llm.Result {
	r := &llm.Result{
		Result:       a.text.String(),
		FinishReason: llm.FinishReasonStop,
		ID:           a.id,
	}
	if a.hasReasoning {
		s := a.reasoning.String()
		r.Reasoning = &s
	}
	if a.hasReasoningContent {
		s := a.reasoningContent.String()
		r.ReasoningContent = &s
	}
	if a.finish != nil {
		r.FinishReason = *a.finish
	}
	return r
}

// finalizeWith packages the aggregate with every non-empty field of a
// terminal done payload taking precedence.
func (a *aggregator) finalizeWith(v resultFields) *llm.Result {
	r := a.snapshot()
	if s := nonEmpty(v.Result); s != nil {
		r.Result = *s
	}
	if s := nonEmpty(v.Reasoning); s != nil {
		r.Reasoning = s
	}
	if s := nonEmpty(v.ReasoningContent); s != nil {
		r.ReasoningContent = s
	}
	if s := nonEmpty(v.FinishReason); s != nil {
		r.FinishReason = llm.FinishReason(*s)
	}
	if s := nonEmpty(v.ID); s != nil {
		r.ID = *s
	}
	return r
}
