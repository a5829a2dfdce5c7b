package completion

import "github.com/papercomputeco/folio/pkg/llm"

// Callbacks receive a streamed completion. Setting OnChunk selects callback
// mode; without it the call runs in promise mode and no callback is invoked.
type Callbacks struct {
	// OnChunk receives every normalized chunk in arrival order.
	OnChunk func(llm.Chunk)

	// OnDone receives the terminal result exactly once on success.
	OnDone func(llm.Result)

	// OnError receives fatal failures. When nil, failures in callback mode
	// are dropped and the call ends without a terminal delivery.
	OnError func(error)
}

// Options tunes a single Call. Cancellation is carried by the context.
type Options struct {
	Callbacks *Callbacks
}

func (o *Options) streaming() bool {
	return o != nil && o.Callbacks != nil && o.Callbacks.OnChunk != nil
}
