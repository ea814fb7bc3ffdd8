package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/storage"
	"github.com/papercomputeco/flowstream/pkg/storage/inmemory"
	"github.com/papercomputeco/flowstream/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	Context("storage contract", func() {
		storagetest.DescribeDriver(func(context.Context) storage.Driver {
			return inmemory.NewDriver()
		})
	})

	It("returns copies that callers cannot mutate", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		rec := storagetest.Record("s-1", "t-1", 0)
		Expect(d.Put(ctx, rec)).To(Succeed())
		rec.State = "failed"

		got, err := d.Get(ctx, "s-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.State).To(Equal("completed"))
		got.State = "cancelled"

		again, err := d.Get(ctx, "s-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.State).To(Equal("completed"))
	})
})
