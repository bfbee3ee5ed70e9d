// Package vault implements the envvar secret provider backed by HashiCorp
// Vault's KV engine.
package vault

import (
	"strings"
	"sync"

	"github.com/hashicorp/vault/api"

	"github.com/studytrack/coursetasks/internal"
)

// Provider fetches secrets below a fixed path, results are cached for the
// lifetime of the process.
type Provider struct {
	client *api.Client
	path   string

	mu   sync.Mutex
	data map[string]string
}

// New instantiates a Provider talking to the Vault instance at address.
func New(token, addr, path string) (*Provider, error) {
	config := api.DefaultConfig()
	config.Address = addr

	client, err := api.NewClient(config)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "api.NewClient")
	}

	client.SetToken(token)

	return &Provider{
		client: client,
		path:   path,
		data:   make(map[string]string),
	}, nil
}

// Get returns the secret stored at "<path>:<field>".
func (p *Provider) Get(key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res, ok := p.data[key]; ok {
		return res, nil
	}

	subPath, field, found := strings.Cut(key, ":")
	if !found {
		return "", internal.NewErrorf(internal.ErrorCodeInvalidArgument, "missing field in %q", key)
	}

	secret, err := p.client.Logical().Read(p.path + subPath)
	if err != nil {
		return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "logical.Read")
	}

	if secret == nil {
		return "", internal.NewErrorf(internal.ErrorCodeNotFound, "secret not found")
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		data = secret.Data
	}

	res, ok := data[field].(string)
	if !ok {
		return "", internal.NewErrorf(internal.ErrorCodeNotFound, "field %q not found", field)
	}

	p.data[key] = res

	return res, nil
}
