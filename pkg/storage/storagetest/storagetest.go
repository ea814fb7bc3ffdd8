// Package storagetest holds the behaviour every storage.Driver must share.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/storage"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// Record builds a completed record started n seconds after a fixed epoch.
func Record(id, threadID string, n int) *storage.SessionRecord {
	started := epoch.Add(time.Duration(n) * time.Second)
	return &storage.SessionRecord{
		ID:         id,
		ThreadID:   threadID,
		Engine:     "mock",
		State:      "completed",
		Events:     3,
		TimeoutMs:  1_800_000,
		StartedAt:  started,
		EndedAt:    started.Add(250 * time.Millisecond),
		DurationMs: 250,
	}
}

// DescribeDriver registers the shared driver specs. newDriver is called
// before each spec and the driver is closed after it.
func DescribeDriver(newDriver func(ctx context.Context) storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver(ctx)
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put and Get", func() {
		It("stores and retrieves a record", func() {
			rec := Record("s-1", "t-1", 0)
			rec.Error = "Stream error: boom"
			rec.State = "failed"
			Expect(driver.Put(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, "s-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ThreadID).To(Equal("t-1"))
			Expect(got.State).To(Equal("failed"))
			Expect(got.Error).To(Equal("Stream error: boom"))
			Expect(got.Events).To(Equal(3))
			Expect(got.TimeoutMs).To(Equal(int64(1_800_000)))
			Expect(got.DurationMs).To(Equal(int64(250)))
			Expect(got.StartedAt.Equal(rec.StartedAt)).To(BeTrue())
			Expect(got.EndedAt.Equal(rec.EndedAt)).To(BeTrue())
		})

		It("returns NotFoundError for an unknown id", func() {
			_, err := driver.Get(ctx, "missing")
			var nf storage.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.ID).To(Equal("missing"))
		})

		It("replaces a record with the same id", func() {
			Expect(driver.Put(ctx, Record("s-1", "t-1", 0))).To(Succeed())

			updated := Record("s-1", "t-1", 0)
			updated.State = "cancelled"
			updated.Events = 7
			Expect(driver.Put(ctx, updated)).To(Succeed())

			got, err := driver.Get(ctx, "s-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.State).To(Equal("cancelled"))
			Expect(got.Events).To(Equal(7))

			all, err := driver.List(ctx, storage.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("rejects nil records", func() {
			Expect(driver.Put(ctx, nil)).NotTo(Succeed())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i := range 5 {
				thread := "t-even"
				if i%2 == 1 {
					thread = "t-odd"
				}
				Expect(driver.Put(ctx, Record(fmt.Sprintf("s-%d", i), thread, i))).To(Succeed())
			}
			timedOut := Record("s-9", "t-odd", 9)
			timedOut.State = "timed_out"
			Expect(driver.Put(ctx, timedOut)).To(Succeed())
		})

		ids := func(recs []*storage.SessionRecord) []string {
			out := make([]string, len(recs))
			for i, r := range recs {
				out[i] = r.ID
			}
			return out
		}

		It("returns records newest first", func() {
			recs, err := driver.List(ctx, storage.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(recs)).To(Equal([]string{"s-9", "s-4", "s-3", "s-2", "s-1", "s-0"}))
		})

		It("filters by thread", func() {
			recs, err := driver.List(ctx, storage.ListOptions{ThreadID: "t-even"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(recs)).To(Equal([]string{"s-4", "s-2", "s-0"}))
		})

		It("filters by state", func() {
			recs, err := driver.List(ctx, storage.ListOptions{State: "timed_out"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(recs)).To(Equal([]string{"s-9"}))
		})

		It("pages with limit and offset", func() {
			recs, err := driver.List(ctx, storage.ListOptions{Limit: 2, Offset: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(recs)).To(Equal([]string{"s-4", "s-3"}))
		})

		It("returns an empty slice past the end", func() {
			recs, err := driver.List(ctx, storage.ListOptions{Offset: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).NotTo(BeNil())
			Expect(recs).To(BeEmpty())
		})
	})
}
