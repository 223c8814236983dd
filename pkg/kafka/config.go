package kafka

import "time"

// ProducerOption configures the signal-event and error-log producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig mirrors the kafka.producer config section.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string // gzip | snappy | lz4 | zstd
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration // linger
	Async        bool
	HashByKey    bool
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithCompression accepts the kafka.compression names; unknown values fall
// back to gzip.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = compression
	}
}

// WithRequiredAcks sets acknowledgements per write, -1 waits for all
// in-sync replicas.
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
	}
}

// WithMaxAttempts bounds writer retries before a publish fails. The monitor
// only logs that failure, it never blocks a cycle on it.
func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		c.MaxAttempts = n
	}
}

func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchSize = size
	}
}

// WithBatchTimeout is the linger before a partial batch is flushed.
// Signal events are sparse, keep it short.
func WithBatchTimeout(timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchTimeout = timeout
	}
}

func WithBatchBytes(bytes int) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchBytes = bytes
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithAsync makes Publish return before the broker acknowledges. Delivery
// errors are then only visible in the producer metrics.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Async = async
	}
}

// WithHashByKey partitions by message key. Signal events are keyed by
// symbol, so one symbol's crossovers are consumed in order.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.HashByKey = hash
	}
}
