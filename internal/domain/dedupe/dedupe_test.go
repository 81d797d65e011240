package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	dedupe "github.com/competemcgill/techgames/internal/domain/dedupe"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When the key is new", func() {
			seen, err := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then it should return false and record the key", func() {
				So(err, ShouldBeNil)
				So(seen, ShouldBeFalse)
				So(d.Size(ctx), ShouldEqual, 1)
			})
		})

		Convey("When the key was already seen", func() {
			_, _ = d.SeenAndRecord(ctx, "sub-1")
			seen, err := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then it should return true", func() {
				So(err, ShouldBeNil)
				So(seen, ShouldBeTrue)
				So(d.Size(ctx), ShouldEqual, 1)
			})
		})

		Convey("When a recorded key is unrecorded", func() {
			_, _ = d.SeenAndRecord(ctx, "sub-1")
			So(d.Unrecord(ctx, "sub-1"), ShouldBeNil)
			seen, _ := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then it can be recorded again", func() {
				So(seen, ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown key", func() {
			Convey("Then it is a no-op", func() {
				So(d.Unrecord(ctx, "missing"), ShouldBeNil)
				So(d.Size(ctx), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))

		Convey("When more keys than the bound are recorded", func() {
			for i := 1; i <= 3; i++ {
				_, _ = d.SeenAndRecord(ctx, fmt.Sprintf("sub-%d", i))
			}

			Convey("Then the oldest key is evicted first", func() {
				So(d.Size(ctx), ShouldEqual, 2)
				seen, _ := d.SeenAndRecord(ctx, "sub-3")
				So(seen, ShouldBeTrue)
				seen, _ = d.SeenAndRecord(ctx, "sub-1")
				So(seen, ShouldBeFalse)
			})
		})
	})

	Convey("Given an InMemoryDeduper with a ttl", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		d := dedupe.NewInMemoryDeduper(
			dedupe.WithTTL(time.Minute),
			dedupe.WithClock(func() time.Time { return now }),
		)
		_, _ = d.SeenAndRecord(ctx, "sub-1")

		Convey("When the ttl has elapsed", func() {
			now = now.Add(2 * time.Minute)
			seen, _ := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then the key is treated as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(ctx), ShouldEqual, 1)
			})
		})
	})

	Convey("Given concurrent submissions with the same key", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if seen, _ := d.SeenAndRecord(ctx, "same"); !seen {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(fresh, ShouldEqual, 1)
		})
	})
}

func newRedisDeduperForTest(t *testing.T, opts ...dedupe.Option) (*miniredis.Miniredis, dedupe.Deduper) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return m, dedupe.NewRedisDeduper(client, opts...)
}

func TestRedisDeduper(t *testing.T) {
	Convey("Given a redis deduper", t, func() {
		ctx := context.Background()
		m, d := newRedisDeduperForTest(t, dedupe.WithTTL(time.Minute), dedupe.WithPrefix("test"))

		Convey("When a key is recorded twice", func() {
			first, err1 := d.SeenAndRecord(ctx, "sub-1")
			second, err2 := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then only the second call reports it as seen", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(m.Exists("test:sub-1"), ShouldBeTrue)
				So(m.TTL("test:sub-1"), ShouldEqual, time.Minute)
			})
		})

		Convey("When the key expires", func() {
			_, _ = d.SeenAndRecord(ctx, "sub-1")
			m.FastForward(2 * time.Minute)
			seen, err := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then it is new again", func() {
				So(err, ShouldBeNil)
				So(seen, ShouldBeFalse)
			})
		})

		Convey("When a key is unrecorded", func() {
			_, _ = d.SeenAndRecord(ctx, "sub-1")
			So(d.Unrecord(ctx, "sub-1"), ShouldBeNil)

			Convey("Then it is removed from redis", func() {
				So(m.Exists("test:sub-1"), ShouldBeFalse)
				So(d.Size(ctx), ShouldEqual, -1)
			})
		})

		Convey("When redis is unavailable", func() {
			m.Close()
			_, err := d.SeenAndRecord(ctx, "sub-2")

			Convey("Then the error is surfaced", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a redis deduper without a client", t, func() {
		d := dedupe.NewRedisDeduper(nil)
		_, err := d.SeenAndRecord(context.Background(), "k")
		So(err, ShouldNotBeNil)
		So(d.Unrecord(context.Background(), "k"), ShouldNotBeNil)
	})
}
