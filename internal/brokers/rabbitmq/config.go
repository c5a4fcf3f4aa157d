package rabbitmq

import (
	"fmt"
	"net/url"

	"object-denormalizer/internal/common/validation"
)

type Config struct {
	URL      string `json:"url" validate:"required,url"`
	PoolSize int    `json:"pool_size" validate:"min=1,max=100"`
	// Exchange is optional; when empty messages go through the default exchange
	Exchange      string `json:"exchange"`
	PrefetchCount int    `json:"prefetch_count" validate:"min=1,max=1000"`
}

func (c *Config) Validate() error {
	if c.PoolSize <= 0 {
		c.PoolSize = 5
	}

	if c.PrefetchCount <= 0 {
		c.PrefetchCount = 10
	}

	return validation.ValidateStruct(c)
}

// GetConnectionString drops credentials so the result is safe to log.
func (c *Config) GetConnectionString() string {
	if parsedURL, err := url.Parse(c.URL); err == nil {
		return fmt.Sprintf("rabbitmq://%s", parsedURL.Host)
	}
	return "rabbitmq://***"
}

func (c *Config) GetType() string {
	return "rabbitmq"
}
