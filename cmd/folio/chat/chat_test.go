package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/api"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/dotdir"
	"github.com/papercomputeco/folio/pkg/llm"
)

// fakeFolio answers chat requests with a two chunk event stream.
type fakeFolio struct {
	mu       sync.Mutex
	headers  []string
	messages [][]map[string]any
	status   int

	// stream replaces the default two chunk reply when set.
	stream string
}

func (f *fakeFolio) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Messages []map[string]any `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.headers = append(f.headers, r.Header.Get(api.HeaderConversationID))
	f.messages = append(f.messages, body.Messages)
	status := f.status
	stream := f.stream
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":"upstream down"}`)
		return
	}

	w.Header().Set(api.HeaderConversationID, "conv-1")
	w.Header().Set("Content-Type", "text/event-stream")
	if stream != "" {
		fmt.Fprint(w, stream)
		return
	}
	fmt.Fprint(w, `data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hello"}}]}`+"\n\n")
	fmt.Fprint(w, `data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":" there"},"finish_reason":"stop"}]}`+"\n\n")
	fmt.Fprint(w, "data: [DONE]\n\n")
}

var _ = Describe("chat command", func() {
	var (
		folio     *fakeFolio
		server    *httptest.Server
		configDir string
		ddm       *dotdir.Manager
	)

	BeforeEach(func() {
		folio = &fakeFolio{}
		server = httptest.NewServer(folio)
		DeferCleanup(server.Close)
		configDir = GinkgoT().TempDir()
		ddm = dotdir.NewManager()
	})

	newCommander := func(input string, out *bytes.Buffer) *chatCommander {
		cfg := config.NewDefaultConfig()
		cfg.Client.Target = server.URL
		return &chatCommander{
			configDir: configDir,
			cfg:       cfg,
			in:        strings.NewReader(input),
			out:       out,
			ddm:       ddm,
		}
	}

	It("registers its flags", func() {
		cmd := NewChatCmd()
		Expect(cmd.Flags().Lookup("target")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("model")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("new")).NotTo(BeNil())
	})

	It("streams the reply and saves the session", func() {
		var out bytes.Buffer
		Expect(newCommander("hello\n/exit\n", &out).run(context.Background())).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Hello there"))
		Expect(folio.headers).To(Equal([]string{""}))

		session, err := ddm.LoadSession(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.ConversationID).To(Equal("conv-1"))
		Expect(session.Messages).To(Equal([]llm.Message{
			llm.NewTextMessage(llm.RoleUser, "hello"),
			llm.NewTextMessage(llm.RoleAssistant, "Hello there"),
		}))
	})

	It("resumes the saved conversation", func() {
		var out bytes.Buffer
		Expect(newCommander("hello\n", &out).run(context.Background())).To(Succeed())

		out.Reset()
		Expect(newCommander("and then?\n", &out).run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Resuming"))

		Expect(folio.headers).To(Equal([]string{"", "conv-1"}))
		Expect(folio.messages[1]).To(HaveLen(3))

		session, err := ddm.LoadSession(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Messages).To(HaveLen(4))
	})

	It("starts over with --new", func() {
		var out bytes.Buffer
		Expect(newCommander("hello\n", &out).run(context.Background())).To(Succeed())

		cmder := newCommander("hi again\n", &out)
		cmder.fresh = true
		Expect(cmder.run(context.Background())).To(Succeed())

		Expect(folio.headers).To(Equal([]string{"", ""}))
		Expect(folio.messages[1]).To(HaveLen(1))
	})

	It("clears the session on /reset", func() {
		var out bytes.Buffer
		Expect(newCommander("hello\n/reset\n", &out).run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("New conversation"))

		session, err := ddm.LoadSession(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(session).To(BeNil())
	})

	It("prints an answer that arrives only as a full completion", func() {
		folio.stream = `data: {"id":"c2","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Whole reply"},"finish_reason":"stop"}]}` + "\n\n"

		var out bytes.Buffer
		Expect(newCommander("hello\n", &out).run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Whole reply"))

		session, err := ddm.LoadSession(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Messages[1].Content).To(Equal("Whole reply"))
	})

	It("reports server errors without saving the turn", func() {
		folio.status = http.StatusBadGateway

		var out bytes.Buffer
		Expect(newCommander("hello\n", &out).run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("502"))

		session, err := ddm.LoadSession(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(session).To(BeNil())
	})

	It("treats a cancelled reply as silent", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var out bytes.Buffer
		Expect(newCommander("hello\n", &out).run(ctx)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("(cancelled)"))
	})
})

var _ = Describe("replyPrinter", func() {
	It("dims reasoning and separates it from the answer", func() {
		var buf bytes.Buffer
		p := newReplyPrinter(&buf)
		thought := "thinking"

		p.chunk(llm.Chunk{Reasoning: &thought})
		p.chunk(llm.Chunk{Content: "answer"})
		p.finish()

		out := buf.String()
		Expect(out).To(ContainSubstring("thinking"))
		Expect(out).To(HaveSuffix("\n\nanswer\n"))
	})

	It("prints the tail of a final answer the deltas missed", func() {
		var buf bytes.Buffer
		p := newReplyPrinter(&buf)
		p.chunk(llm.Chunk{Content: "par"})
		p.settle("partial answer")
		p.finish()
		Expect(buf.String()).To(Equal("partial answer\n"))
	})

	It("prints nothing more when the deltas carried the answer", func() {
		var buf bytes.Buffer
		p := newReplyPrinter(&buf)
		p.chunk(llm.Chunk{Content: "done"})
		p.settle("done")
		p.finish()
		Expect(buf.String()).To(Equal("done\n"))
	})

	It("shows a diverging final answer on its own line", func() {
		var buf bytes.Buffer
		p := newReplyPrinter(&buf)
		p.chunk(llm.Chunk{Content: "draft"})
		p.settle("final")
		p.finish()
		Expect(buf.String()).To(Equal("draft\nfinal\n"))
	})

	It("prints nothing for an empty reply", func() {
		var buf bytes.Buffer
		p := newReplyPrinter(&buf)
		p.chunk(llm.Chunk{})
		p.finish()
		Expect(buf.String()).To(BeEmpty())
	})
})

var _ = Describe("conversationDoer", func() {
	It("sends the known id and learns the server's", func() {
		var seen []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.Header.Get(api.HeaderConversationID))
			w.Header().Set(api.HeaderConversationID, "conv-7")
		}))
		DeferCleanup(srv.Close)

		d := newConversationDoer(http.DefaultClient, "")
		for range 2 {
			req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := d.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
		}

		Expect(seen).To(Equal([]string{"", "conv-7"}))
		Expect(d.id()).To(Equal("conv-7"))
	})
})
