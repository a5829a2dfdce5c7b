package chatcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/llm"
)

// replyPrinter writes streamed chunks as they arrive. Reasoning deltas are
// dimmed and separated from the answer by a blank line.
type replyPrinter struct {
	w         io.Writer
	reasoning bool
	wrote     bool
	content   strings.Builder
}

func newReplyPrinter(w io.Writer) *replyPrinter {
	return &replyPrinter{w: w}
}

func (p *replyPrinter) chunk(c llm.Chunk) {
	for _, r := range []*string{c.Reasoning, c.ReasoningContent} {
		if r == nil || *r == "" {
			continue
		}
		p.reasoning = true
		fmt.Fprint(p.w, cliui.ReasoningStyle.Render(*r))
	}

	if c.Content == "" {
		return
	}
	if p.reasoning {
		fmt.Fprint(p.w, "\n\n")
		p.reasoning = false
	}
	p.wrote = true
	p.content.WriteString(c.Content)
	fmt.Fprint(p.w, c.Content)
}

// settle prints whatever part of the final answer never arrived as a delta.
// A final answer that diverges from the printed text is shown in full on a
// new line.
func (p *replyPrinter) settle(final string) {
	printed := p.content.String()
	rest, ok := strings.CutPrefix(final, printed)
	if !ok {
		fmt.Fprint(p.w, "\n")
		rest = final
	}
	p.chunk(llm.Chunk{Content: rest})
}

// finish ends the reply line.
func (p *replyPrinter) finish() {
	if p.wrote || p.reasoning {
		fmt.Fprintln(p.w)
	}
}
