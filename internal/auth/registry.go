// Package auth resolves bearer tokens to principals and gates handlers on
// global and team-scoped roles.
package auth

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type TokenSource interface {
	LoadTokens(ctx context.Context) (map[string]string, error)
}

// Registry maps opaque tokens to user ids. Durable tokens come from a
// TokenSource and are swapped wholesale on Refresh. Developer tokens are a
// separate set that production deployments never load.
type Registry struct {
	mu      sync.RWMutex
	durable map[string]string
	dev     map[string]string

	source TokenSource
	logger *zap.Logger
}

func NewRegistry(source TokenSource, logger *zap.Logger) *Registry {
	return &Registry{
		durable: make(map[string]string),
		dev:     make(map[string]string),
		source:  source,
		logger:  logger,
	}
}

func (r *Registry) Resolve(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if userID, ok := r.durable[token]; ok {
		return userID, true
	}
	userID, ok := r.dev[token]
	return userID, ok
}

// Refresh reloads the durable set. On error the previous set stays active.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.source == nil {
		return nil
	}
	tokens, err := r.source.LoadTokens(ctx)
	if err != nil {
		return fmt.Errorf("refresh token registry: %w", err)
	}
	if tokens == nil {
		tokens = make(map[string]string)
	}
	r.mu.Lock()
	r.durable = tokens
	r.mu.Unlock()
	r.logger.Debug("Token registry refreshed", zap.Int("tokens", len(tokens)))
	return nil
}

// Run refreshes every interval until ctx is done. A non-positive interval
// disables periodic refresh.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Token registry refresh stopped")
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("Failed to refresh token registry", zap.Error(err))
			}
		}
	}
}

func (r *Registry) Put(token, userID string) {
	r.mu.Lock()
	r.durable[token] = userID
	r.mu.Unlock()
}

func (r *Registry) Revoke(token string) {
	r.mu.Lock()
	delete(r.durable, token)
	delete(r.dev, token)
	r.mu.Unlock()
}

type devTokenFile struct {
	Tokens []struct {
		Token  string `yaml:"token"`
		UserID string `yaml:"user_id"`
	} `yaml:"tokens"`
}

// LoadDevTokens replaces the developer token set with the contents of a
// YAML file of the form:
//
//	tokens:
//	  - token: dev-admin
//	    user_id: 0b6f...
func (r *Registry) LoadDevTokens(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dev tokens file: %w", err)
	}
	var file devTokenFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse dev tokens file: %w", err)
	}
	dev := make(map[string]string, len(file.Tokens))
	for i, t := range file.Tokens {
		if t.Token == "" || t.UserID == "" {
			return fmt.Errorf("dev token entry %d: token and user_id are required", i)
		}
		dev[t.Token] = t.UserID
	}
	r.mu.Lock()
	r.dev = dev
	r.mu.Unlock()
	r.logger.Warn("Developer tokens loaded", zap.Int("tokens", len(dev)), zap.String("path", path))
	return nil
}

func (r *Registry) ClearDevTokens() {
	r.mu.Lock()
	r.dev = make(map[string]string)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.durable) + len(r.dev)
}
