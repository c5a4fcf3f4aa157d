package redis

import (
	"fmt"
	"time"
)

type Config struct {
	Address       string
	Password      string
	DB            int
	PoolSize      int
	Timeout       time.Duration
	RetryMax      int
	StreamMaxLen  int64 // 0 = no limit
	ConsumerGroup string
	ConsumerName  string
	// Block bounds each XREADGROUP call so cancellation is noticed promptly
	Block time.Duration
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("Redis address is required")
	}

	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}

	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}

	if c.RetryMax <= 0 {
		c.RetryMax = 3
	}

	if c.StreamMaxLen < 0 {
		c.StreamMaxLen = 0
	}

	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "object-denormalizer-group"
	}

	if c.ConsumerName == "" {
		c.ConsumerName = "object-denormalizer-consumer"
	}

	if c.Block <= 0 {
		c.Block = 100 * time.Millisecond
	}

	return nil
}

func (c *Config) GetType() string {
	return "redis"
}

// GetConnectionString masks the password; the result ends up in logs.
func (c *Config) GetConnectionString() string {
	if c.Password != "" {
		return fmt.Sprintf("redis://:***@%s/%d", c.Address, c.DB)
	}
	return fmt.Sprintf("redis://%s/%d", c.Address, c.DB)
}

func DefaultConfig() *Config {
	return &Config{
		Address:       "localhost:6379",
		PoolSize:      10,
		Timeout:       5 * time.Second,
		RetryMax:      3,
		ConsumerGroup: "object-denormalizer-group",
		ConsumerName:  "object-denormalizer-consumer",
		Block:         100 * time.Millisecond,
	}
}
