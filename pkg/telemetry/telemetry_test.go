package telemetry_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel"

	"github.com/papercomputeco/folio/pkg/telemetry"
)

var _ = Describe("Setup", func() {
	It("is a no-op without an endpoint", func() {
		before := otel.GetTracerProvider()

		shutdown, err := telemetry.Setup(context.Background(), "", "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(shutdown(context.Background())).To(Succeed())
		Expect(otel.GetTracerProvider()).To(BeIdenticalTo(before))
	})

	It("installs an exporting provider for an endpoint", func() {
		before := otel.GetTracerProvider()
		DeferCleanup(func() { otel.SetTracerProvider(before) })

		shutdown, err := telemetry.Setup(context.Background(), "127.0.0.1:4318", "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(otel.GetTracerProvider()).NotTo(BeIdenticalTo(before))

		// Nothing was recorded, so shutdown has nothing to flush.
		Expect(shutdown(context.Background())).To(Succeed())
	})
})
