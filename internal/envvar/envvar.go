// Package envvar implements the configuration layer: plain environment
// variables with optional secret indirection through a provider.
package envvar

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/studytrack/coursetasks/internal"
)

// Provider defines the capability of fetching secret values indirectly
// referenced by environment variables.
type Provider interface {
	Get(key string) (string, error)
}

// Configuration reads environment variables, a "<KEY>_SECURE" sibling makes
// the value an indirection resolved through the provider.
type Configuration struct {
	provider Provider
}

// Load reads the env filename, when set, into the process environment.
func Load(filename string) error {
	if filename == "" {
		return nil
	}

	if err := godotenv.Load(filename); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "godotenv.Load")
	}

	return nil
}

// New instantiates the Configuration.
func New(provider Provider) *Configuration {
	return &Configuration{
		provider: provider,
	}
}

// Get returns the value of key, resolving through the provider when the
// secure sibling variable points at a secret.
func (c *Configuration) Get(key string) (string, error) {
	res := os.Getenv(key)

	valSecret := os.Getenv(key + "_SECURE")
	if valSecret != "" {
		var err error

		res, err = c.provider.Get(valSecret)
		if err != nil {
			return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "provider.Get")
		}
	}

	return res, nil
}
