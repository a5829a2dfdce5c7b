package chatcmder

import (
	"net/http"
	"sync"

	"github.com/papercomputeco/folio/api"
	"github.com/papercomputeco/folio/pkg/transport"
)

// conversationDoer threads the server's conversation id through every
// request of a chat session.
type conversationDoer struct {
	next transport.Doer

	mu     sync.Mutex
	convID string
}

func newConversationDoer(next transport.Doer, id string) *conversationDoer {
	return &conversationDoer{next: next, convID: id}
}

func (d *conversationDoer) Do(req *http.Request) (*http.Response, error) {
	if id := d.id(); id != "" {
		req.Header.Set(api.HeaderConversationID, id)
	}

	resp, err := d.next.Do(req)
	if err != nil {
		return nil, err
	}

	if id := resp.Header.Get(api.HeaderConversationID); id != "" {
		d.setID(id)
	}
	return resp, nil
}

func (d *conversationDoer) id() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.convID
}

func (d *conversationDoer) setID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.convID = id
}
