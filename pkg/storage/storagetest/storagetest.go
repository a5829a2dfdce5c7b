// Package storagetest holds the behaviors every storage.Driver must satisfy,
// shared by the driver test suites.
package storagetest

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/storage"
)

// NewTurn builds a completed turn started offset after a fixed epoch.
func NewTurn(id string, offset time.Duration) *llm.Turn {
	temp := 0.2
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Add(offset)
	return &llm.Turn{
		ID:             id,
		ConversationID: "conv-" + id,
		Location:       "Paris, France",
		Streaming:      true,
		Request: &llm.CompletionRequest{
			Model:        "test-model",
			Input:        "what do you build?",
			SystemPrompt: "be brief",
			History:      []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi"), llm.NewTextMessage(llm.RoleAssistant, "hello")},
			Temperature:  &temp,
		},
		Result: &llm.Result{
			Result:       "Go services.",
			FinishReason: llm.FinishReasonStop,
			ID:           "chatcmpl-" + id,
		},
		StartedAt:   started,
		CompletedAt: started.Add(1500 * time.Millisecond),
	}
}

// DriverBehaviors registers the shared driver specs. newDriver is called in a
// BeforeEach and must return an empty store.
func DriverBehaviors(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		// newDriver may Skip before assigning.
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put and Get", func() {
		It("stores and retrieves a turn", func() {
			turn := NewTurn("a", 0)
			Expect(driver.Put(ctx, turn)).To(Succeed())

			got, err := driver.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("a"))
			Expect(got.ConversationID).To(Equal("conv-a"))
			Expect(got.Location).To(Equal("Paris, France"))
			Expect(got.Streaming).To(BeTrue())
			Expect(got.Request).To(Equal(turn.Request))
			Expect(got.Result).To(Equal(turn.Result))
			Expect(got.StartedAt).To(BeTemporally("==", turn.StartedAt))
			Expect(got.Duration()).To(Equal(1500 * time.Millisecond))
		})

		It("keeps failed turns without a result", func() {
			turn := NewTurn("failed", 0)
			turn.Result = nil
			turn.Error = "API request failed with status: 500"
			Expect(driver.Put(ctx, turn)).To(Succeed())

			got, err := driver.Get(ctx, "failed")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Result).To(BeNil())
			Expect(got.Error).To(Equal(turn.Error))
		})

		It("replaces a turn stored under the same ID", func() {
			Expect(driver.Put(ctx, NewTurn("a", 0))).To(Succeed())

			updated := NewTurn("a", 0)
			updated.Result.Result = "updated"
			Expect(driver.Put(ctx, updated)).To(Succeed())

			got, err := driver.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Result.Result).To(Equal("updated"))

			turns, err := driver.List(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))
		})

		It("returns NotFoundError for a missing ID", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("rejects nil turns and turns without an ID", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrNilTurn))
			Expect(driver.Put(ctx, &llm.Turn{})).To(MatchError(storage.ErrNilTurn))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i := range 5 {
				id := fmt.Sprintf("t%d", i)
				Expect(driver.Put(ctx, NewTurn(id, time.Duration(i)*time.Minute))).To(Succeed())
			}
		})

		It("returns the newest turns first", func() {
			turns, err := driver.List(ctx, 10)
			Expect(err).NotTo(HaveOccurred())

			ids := make([]string, 0, len(turns))
			for _, t := range turns {
				ids = append(ids, t.ID)
			}
			Expect(ids).To(Equal([]string{"t4", "t3", "t2", "t1", "t0"}))
		})

		It("honors the limit", func() {
			turns, err := driver.List(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].ID).To(Equal("t4"))
		})

		It("applies the default limit to non-positive values", func() {
			turns, err := driver.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(5))
		})
	})
}
