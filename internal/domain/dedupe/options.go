package dedupe

import "time"

// Option configures a Deduper. Options that do not apply to a backend are
// ignored by it.
type Option interface {
	applyMemory(*inMemoryDeduper)
	applyRedis(*redisDeduper)
}

type optionFunc struct {
	memory func(*inMemoryDeduper)
	redis  func(*redisDeduper)
}

func (o optionFunc) applyMemory(d *inMemoryDeduper) {
	if o.memory != nil {
		o.memory(d)
	}
}

func (o optionFunc) applyRedis(d *redisDeduper) {
	if o.redis != nil {
		o.redis(d)
	}
}

// WithMaxSize bounds the number of keys held in memory.
// maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return optionFunc{memory: func(d *inMemoryDeduper) { d.maxSize = maxSize }}
}

// WithTTL sets how long a key is remembered.
func WithTTL(ttl time.Duration) Option {
	return optionFunc{
		memory: func(d *inMemoryDeduper) {
			if ttl > 0 {
				d.ttl = ttl
			}
		},
		redis: func(d *redisDeduper) {
			if ttl > 0 {
				d.ttl = ttl
			}
		},
	}
}

// WithPrefix sets the Redis key prefix.
func WithPrefix(prefix string) Option {
	return optionFunc{redis: func(d *redisDeduper) {
		if prefix != "" {
			d.prefix = prefix
		}
	}}
}

// WithClock overrides the memory backend's clock.
func WithClock(now func() time.Time) Option {
	return optionFunc{memory: func(d *inMemoryDeduper) {
		if now != nil {
			d.now = now
		}
	}}
}
