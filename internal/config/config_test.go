package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with empty SSL mode", "prod", "", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:           tt.env,
				DBDriver:      "postgres",
				DBSSLMode:     tt.sslMode,
				SessionSecret: "secure-secret-at-least-32-chars-long",
				DBPassword:    "secure-password",
				Port:          "8080",
				CSRFEnabled:   true,
			}

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateSecrets(t *testing.T) {
	base := Config{Port: "8080", DBDriver: "sqlite", Env: "production"}

	c := base
	c.SessionSecret = defaultSessionSecret
	assert.Error(t, c.Validate(), "default secret must be rejected in production")

	c.SessionSecret = "short"
	assert.Error(t, c.Validate(), "short secret must be rejected in production")

	c.SessionSecret = "a-very-long-production-secret-value-123"
	assert.NoError(t, c.Validate())

	c = base
	c.SessionSecret = ""
	c.Env = "development"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateDriver(t *testing.T) {
	c := &Config{Port: "8080", SessionSecret: "x", DBDriver: "mysql"}
	assert.Error(t, c.Validate())

	c.DBDriver = "sqlite"
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("DB_DRIVER")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("DB_DRIVER", " SQLite ")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "8375", c.Port)
	assert.Equal(t, 24, c.SessionTTLHours)
	assert.True(t, c.CSRFEnabled)
}
