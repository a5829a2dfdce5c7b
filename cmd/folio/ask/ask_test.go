package askcmder_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/folio/cmd/folio/ask"
)

var _ = Describe("ask command", func() {
	var (
		upstream  *httptest.Server
		received  map[string]any
		apiKey    string
		status    int
		document  string
		configDir string
	)

	BeforeEach(func() {
		received = nil
		apiKey = ""
		status = http.StatusOK
		document = `{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"I write **Go**."},"finish_reason":"stop"}]}`
		configDir = GinkgoT().TempDir()

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&received)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			fmt.Fprint(w, document)
		}))
		DeferCleanup(upstream.Close)
	})

	execute := func(args ...string) (string, error) {
		cmd := askcmder.NewAskCmd()
		cmd.Flags().String("config-dir", configDir, "")
		cmd.Flags().Bool("debug", false, "")

		var out, errOut bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs(append([]string{"--upstream", upstream.URL}, args...))

		err := cmd.Execute()
		return out.String(), err
	}

	It("requires a question", func() {
		cmd := askcmder.NewAskCmd()
		Expect(cmd.Args(&cobra.Command{}, nil)).To(HaveOccurred())
	})

	It("prints the plain answer when stdout is not a terminal", func() {
		out, err := execute("what", "do", "you", "write?")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("I write **Go**.\n"))

		messages := received["messages"].([]any)
		Expect(messages).To(HaveLen(2))
		Expect(messages[0].(map[string]any)["role"]).To(Equal("system"))
		Expect(messages[1].(map[string]any)["content"]).To(Equal("what do you write?"))
		Expect(received["stream"]).To(BeFalse())
	})

	It("adds the location to the system prompt", func() {
		_, err := execute("--location", "Lyon", "--system-prompt", "Be brief.", "hi")
		Expect(err).NotTo(HaveOccurred())

		system := received["messages"].([]any)[0].(map[string]any)
		Expect(system["content"]).To(Equal("Be brief.\n\nVisitor location: Lyon"))
	})

	It("sends the api key and model", func() {
		_, err := execute("--api-key", "sk-test", "--model", "tiny", "hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(apiKey).To(Equal("Bearer sk-test"))
		Expect(received["model"]).To(Equal("tiny"))
	})

	It("returns upstream failures", func() {
		status = http.StatusUnauthorized
		document = `{"error":{"message":"bad key"}}`

		_, err := execute("hi")
		Expect(err).To(MatchError(ContainSubstring("status: 401")))
	})
})
