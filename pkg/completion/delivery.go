package completion

import "github.com/papercomputeco/folio/pkg/llm"

// delivery is the terminal-delivery strategy of one call, chosen once at
// call start. Its return values become the return values of Call.
type delivery interface {
	chunk(llm.Chunk)
	done(*llm.Result) (*llm.Result, error)
	fail(error) (*llm.Result, error)
	mode() string
}

func newDelivery(opts *Options) delivery {
	if opts.streaming() {
		return &callbackDelivery{callbacks: opts.Callbacks}
	}
	return awaitedDelivery{}
}

// callbackDelivery pushes everything to the caller's callbacks and returns
// nothing from Call.
type callbackDelivery struct {
	callbacks *Callbacks
}

func (d *callbackDelivery) chunk(c llm.Chunk) {
	d.callbacks.OnChunk(c)
}

func (d *callbackDelivery) done(r *llm.Result) (*llm.Result, error) {
	if d.callbacks.OnDone != nil {
		d.callbacks.OnDone(*r)
	}
	return nil, nil
}

func (d *callbackDelivery) fail(err error) (*llm.Result, error) {
	if d.callbacks.OnError != nil {
		d.callbacks.OnError(err)
	}
	return nil, nil
}

func (d *callbackDelivery) mode() string { return "callback" }

// awaitedDelivery accumulates silently; the result or error is returned.
type awaitedDelivery struct{}

func (awaitedDelivery) chunk(llm.Chunk) {}

func (awaitedDelivery) done(r *llm.Result) (*llm.Result, error) {
	return r, nil
}

func (awaitedDelivery) fail(err error) (*llm.Result, error) {
	return nil, err
}

func (awaitedDelivery) mode() string { return "promise" }
