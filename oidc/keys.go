// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/henrjk/connect-js/jwt"
	sdkHttp "github.com/henrjk/connect-js/sdk/http"
	"github.com/henrjk/connect-js/storage"
)

// keySource holds the provider's signing key.  The key comes from the
// Config, from storage, or from the provider's jwks endpoint, in that
// order, and is cached in storage.
type keySource struct {
	storage storage.Storage
	http    HTTPAccess
	logger  hclog.Logger

	mu      sync.Mutex
	key     *jwt.JWK
	keySet  jwt.KeySet
	jwksURL string
}

func newKeySource(s storage.Storage, h HTTPAccess, logger hclog.Logger) *keySource {
	return &keySource{storage: s, http: h, logger: logger}
}

// configure sets the jwks endpoint and the configured keys.  A single key
// is used as is, from several keys the last one for use "sig" is selected.
// Without keys the key cached in storage is recovered, if any.
func (k *keySource) configure(ctx context.Context, jwksURL string, keys []jwt.JWK) error {
	const op = "keySource.configure"
	k.setJWKSURL(jwksURL)
	var err error
	switch len(keys) {
	case 0:
		err = k.recover(ctx)
	case 1:
		err = k.adopt(ctx, keys[0])
	default:
		key, ok := jwt.SelectSigningKey(keys)
		if !ok {
			return fmt.Errorf("%s: no key with use \"sig\": %w", op, ErrMissingSigningKey)
		}
		err = k.adopt(ctx, key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (k *keySource) setJWKSURL(u string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.jwksURL = u
}

// recover adopts the key cached in storage.  A missing or undecodable
// cached key is not an error.
func (k *keySource) recover(ctx context.Context) error {
	const op = "keySource.recover"
	cached, err := k.storage.Get(ctx, storage.KeyJWK)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}
	var key jwt.JWK
	if err := json.Unmarshal([]byte(cached), &key); err != nil {
		k.logger.Warn("cannot deserialize cached jwk", "error", err)
		return nil
	}
	if err := k.adopt(ctx, key); err != nil {
		k.logger.Warn("cannot use cached jwk", "error", err)
	}
	return nil
}

// adopt makes key the signing key and caches it.
func (k *keySource) adopt(ctx context.Context, key jwt.JWK) error {
	const op = "keySource.adopt"
	ks, err := jwt.NewJWKKeySet(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := k.storage.Set(ctx, storage.KeyJWK, string(raw)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	k.mu.Lock()
	k.key, k.keySet = &key, ks
	k.mu.Unlock()
	return nil
}

// current returns the signing key, if one is set.
func (k *keySource) current() (jwt.JWK, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key == nil {
		return jwt.JWK{}, false
	}
	return *k.key, true
}

// prepare fetches the provider's keys unless a key is already set.
func (k *keySource) prepare(ctx context.Context) error {
	const op = "keySource.prepare"
	if _, ok := k.current(); ok {
		return nil
	}
	if err := k.fetch(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// fetch requests the provider's JWK Set.
func (k *keySource) fetch(ctx context.Context) error {
	const op = "keySource.fetch"
	k.mu.Lock()
	u := k.jwksURL
	k.mu.Unlock()
	resp, err := k.http.Request(ctx, &sdkHttp.Request{
		Method:      http.MethodGet,
		URL:         u,
		CrossDomain: true,
	})
	if err != nil {
		return fmt.Errorf("%s: unable to get %s: %w: %w", op, u, ErrMissingSigningKey, err)
	}
	data, err := k.http.GetData(resp)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrMissingSigningKey, err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrMissingSigningKey, err)
	}
	var set jwt.JWKSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return fmt.Errorf("%s: unexpected jwks document: %w: %w", op, ErrMissingSigningKey, err)
	}
	key, ok := jwt.SelectSigningKey(set.Keys)
	if !ok {
		return fmt.Errorf("%s: jwks document has no key with use \"sig\": %w", op, ErrMissingSigningKey)
	}
	if err := k.adopt(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// verifier returns the key set tokens are verified with, fetching the
// provider's keys when none is set.
func (k *keySource) verifier(ctx context.Context) (jwt.KeySet, error) {
	const op = "keySource.verifier"
	if err := k.prepare(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.keySet, nil
}
