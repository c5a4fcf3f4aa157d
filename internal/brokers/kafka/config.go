package kafka

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Brokers          []string
	ClientID         string
	GroupID          string
	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
	Timeout          time.Duration
	RetryMax         int
	FlushFrequency   time.Duration
	// PollInterval bounds how long a subscriber blocks before checking for cancellation
	PollInterval time.Duration
}

var (
	validProtocols  = []string{"PLAINTEXT", "SSL", "SASL_PLAINTEXT", "SASL_SSL"}
	validMechanisms = []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"}
)

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Validate fills defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("Kafka brokers are required")
	}

	for _, broker := range c.Brokers {
		if strings.TrimSpace(broker) == "" {
			return fmt.Errorf("empty Kafka broker address")
		}
	}

	if c.ClientID == "" {
		c.ClientID = "object-denormalizer"
	}

	if c.GroupID == "" {
		c.GroupID = "object-denormalizer-group"
	}

	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}

	if c.RetryMax <= 0 {
		c.RetryMax = 3
	}

	if c.FlushFrequency <= 0 {
		c.FlushFrequency = 100 * time.Millisecond
	}

	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}

	if c.SecurityProtocol == "" {
		c.SecurityProtocol = "PLAINTEXT"
	}

	if !contains(validProtocols, c.SecurityProtocol) {
		return fmt.Errorf("invalid security protocol: %s", c.SecurityProtocol)
	}

	if strings.HasPrefix(c.SecurityProtocol, "SASL_") {
		if c.SASLMechanism == "" {
			c.SASLMechanism = "PLAIN"
		}

		if !contains(validMechanisms, c.SASLMechanism) {
			return fmt.Errorf("invalid SASL mechanism: %s", c.SASLMechanism)
		}

		if c.SASLUsername == "" || c.SASLPassword == "" {
			return fmt.Errorf("SASL username and password are required for SASL authentication")
		}
	}

	return nil
}

func (c *Config) GetType() string {
	return "kafka"
}

func (c *Config) GetConnectionString() string {
	return strings.Join(c.Brokers, ",")
}

func DefaultConfig() *Config {
	return &Config{
		Brokers:          []string{"localhost:9092"},
		ClientID:         "object-denormalizer",
		GroupID:          "object-denormalizer-group",
		SecurityProtocol: "PLAINTEXT",
		Timeout:          30 * time.Second,
		RetryMax:         3,
		FlushFrequency:   100 * time.Millisecond,
		PollInterval:     500 * time.Millisecond,
	}
}
