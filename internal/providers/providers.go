// Package providers provides the chat provider factory and dispatcher.
package providers

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"polychat/internal/core"
)

// Builder creates a provider instance sharing the given HTTP client.
type Builder func(httpClient *http.Client) core.Provider

// registry holds all registered provider builders.
// Provider packages register themselves from init().
var registry = make(map[string]Builder)

// Register allows provider packages to register themselves.
func Register(providerID string, builder Builder) {
	registry[providerID] = builder
}

// IDs returns the registered provider identifiers, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatcher routes an internal chat request to the adapter matching the
// provider id. Pure routing: it adds no retry or timeout logic of its own.
// Deadlines belong to the caller and single-attempt semantics to the adapter.
type Dispatcher struct {
	providers map[string]core.Provider
}

// NewDispatcher builds a dispatcher over every registered provider.
func NewDispatcher(httpClient *http.Client) *Dispatcher {
	providers := make(map[string]core.Provider, len(registry))
	for id, build := range registry {
		providers[id] = build(httpClient)
	}
	return &Dispatcher{providers: providers}
}

// NewDispatcherWith builds a dispatcher over an explicit provider set.
// Used by tests to inject stubs.
func NewDispatcherWith(providers map[string]core.Provider) *Dispatcher {
	return &Dispatcher{providers: providers}
}

// Dispatch forwards the request to the adapter for providerID.
func (d *Dispatcher) Dispatch(ctx context.Context, providerID string, req *core.ChatRequest) (*core.ChatResult, error) {
	p, ok := d.providers[strings.ToLower(providerID)]
	if !ok {
		return nil, core.NewInvalidRequestError("unknown provider: " + providerID)
	}
	return p.Call(ctx, req)
}

// Supports reports whether the dispatcher has an adapter for providerID.
func (d *Dispatcher) Supports(providerID string) bool {
	_, ok := d.providers[strings.ToLower(providerID)]
	return ok
}

// Validate applies the input checks shared by all adapters. It runs before
// any network call so a bad request never reaches the upstream.
func Validate(req *core.ChatRequest, requireCredential bool) error {
	if req == nil || req.Message == "" {
		return core.NewInvalidRequestError("message is required")
	}
	if requireCredential && req.Credential == "" {
		return core.NewInvalidRequestError("API key is required")
	}
	return nil
}
