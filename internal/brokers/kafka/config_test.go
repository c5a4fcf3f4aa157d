package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	config := &Config{Brokers: []string{"localhost:9092"}}
	require.NoError(t, config.Validate())

	assert.Equal(t, "object-denormalizer", config.ClientID)
	assert.Equal(t, "object-denormalizer-group", config.GroupID)
	assert.Equal(t, "PLAINTEXT", config.SecurityProtocol)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 3, config.RetryMax)
	assert.Equal(t, 100*time.Millisecond, config.FlushFrequency)
	assert.Equal(t, 500*time.Millisecond, config.PollInterval)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{"no brokers", &Config{}, "brokers are required"},
		{"blank broker", &Config{Brokers: []string{"a:9092", " "}}, "empty Kafka broker address"},
		{"bad protocol", &Config{Brokers: []string{"a:9092"}, SecurityProtocol: "TLS"}, "invalid security protocol"},
		{
			"bad mechanism",
			&Config{Brokers: []string{"a:9092"}, SecurityProtocol: "SASL_SSL", SASLMechanism: "GSSAPI", SASLUsername: "u", SASLPassword: "p"},
			"invalid SASL mechanism",
		},
		{
			"sasl without credentials",
			&Config{Brokers: []string{"a:9092"}, SecurityProtocol: "SASL_PLAINTEXT"},
			"SASL username and password are required",
		},
		{
			"valid sasl",
			&Config{Brokers: []string{"a:9092"}, SecurityProtocol: "SASL_SSL", SASLUsername: "u", SASLPassword: "p"},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_SASLDefaultMechanism(t *testing.T) {
	config := &Config{Brokers: []string{"a:9092"}, SecurityProtocol: "SASL_SSL", SASLUsername: "u", SASLPassword: "p"}
	require.NoError(t, config.Validate())
	assert.Equal(t, "PLAIN", config.SASLMechanism)
}

func TestConfig_Identity(t *testing.T) {
	config := &Config{Brokers: []string{"k1:9092", "k2:9092"}}
	assert.Equal(t, "kafka", config.GetType())
	assert.Equal(t, "k1:9092,k2:9092", config.GetConnectionString())

	defaults := DefaultConfig()
	assert.NoError(t, defaults.Validate())
	assert.Equal(t, []string{"localhost:9092"}, defaults.Brokers)
}
