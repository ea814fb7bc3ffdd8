package redis_test

import (
	"context"
	"encoding/json"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowstream/pkg/eventstream"
	"github.com/papercomputeco/flowstream/pkg/eventstream/redis"
)

func sessionEvent() *eventstream.SessionEndedEvent {
	return &eventstream.SessionEndedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeSessionEnded,
		EventID:       "evt-1",
		Session:       eventstream.SessionMeta{ID: "sess-1", ThreadID: "thread-1", State: "cancelled"},
	}
}

var _ = Describe("Publisher", func() {
	Describe("XAddArgs", func() {
		It("encodes the event and caps the stream approximately", func() {
			args, err := redis.XAddArgs("flowstream:sessions", 500, sessionEvent())
			Expect(err).NotTo(HaveOccurred())
			Expect(args.Stream).To(Equal("flowstream:sessions"))
			Expect(args.MaxLen).To(Equal(int64(500)))
			Expect(args.Approx).To(BeTrue())

			values, ok := args.Values.(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(values).To(HaveKeyWithValue("event_type", "flowstream.session.ended"))
			Expect(values).To(HaveKeyWithValue("thread_id", "thread-1"))

			var decoded eventstream.SessionEndedEvent
			Expect(json.Unmarshal([]byte(values["event"].(string)), &decoded)).To(Succeed())
			Expect(decoded.Session.State).To(Equal("cancelled"))
		})

		It("leaves the stream uncapped for a negative max length", func() {
			args, err := redis.XAddArgs("s", -1, sessionEvent())
			Expect(err).NotTo(HaveOccurred())
			Expect(args.MaxLen).To(BeZero())
			Expect(args.Approx).To(BeFalse())
		})
	})

	Describe("NewPublisher", func() {
		It("requires an address", func() {
			_, err := redis.NewPublisher(context.Background(), redis.Config{Stream: "s"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("against a live server", func() {
		var (
			pub *redis.Publisher
			ctx context.Context
		)

		BeforeEach(func() {
			addr := os.Getenv("FLOWSTREAM_TEST_REDIS_ADDR")
			if addr == "" {
				Skip("FLOWSTREAM_TEST_REDIS_ADDR not set, skipping Redis tests")
			}
			ctx = context.Background()

			var err error
			pub, err = redis.NewPublisher(ctx, redis.Config{Addr: addr, Stream: "flowstream:test:sessions"})
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			if pub != nil {
				Expect(pub.Close()).To(Succeed())
			}
		})

		It("appends events", func() {
			Expect(pub.PublishSessionEnded(ctx, sessionEvent())).To(Succeed())
		})

		It("rejects nil events", func() {
			Expect(pub.PublishSessionEnded(ctx, nil)).To(MatchError(eventstream.ErrNilSessionEvent))
		})
	})
})
