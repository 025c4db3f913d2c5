// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/henrjk/connect-js/codec"
	"github.com/henrjk/connect-js/storage"
)

// DefaultExpiresIn is the cookie lifetime, in seconds, of a session
// without expires_in.
const DefaultExpiresIn = 3600

// Store persists sessions split across a cookie jar and a storage area.
type Store struct {
	storage storage.Storage
	cookies storage.CookieJar
	logger  hclog.Logger
	now     func() time.Time
}

// NewStore returns a Store.  Supported options: WithLogger, WithNow.
func NewStore(s storage.Storage, jar storage.CookieJar, opt ...Option) (*Store, error) {
	const op = "session.NewStore"
	switch {
	case s == nil:
		return nil, fmt.Errorf("%s: missing storage: %w", op, ErrNilParameter)
	case jar == nil:
		return nil, fmt.Errorf("%s: missing cookie jar: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &Store{
		storage: s,
		cookies: jar,
		logger:  opts.withLogger,
		now:     opts.withNow,
	}, nil
}

// Serialize encrypts sess under a fresh key and writes the locator cookie,
// sessionState and the ciphertext.  The ciphertext is written last so that
// other browsing contexts reacting to its change read a complete record.
func (st *Store) Serialize(ctx context.Context, sess *Session, sessionState string) error {
	const op = "Store.Serialize"
	if sess == nil {
		return fmt.Errorf("%s: missing session: %w", op, ErrNilParameter)
	}
	plaintext, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	sealed, err := Encrypt(codec.StringToUTF16(string(plaintext)))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	expiresIn := sess.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}
	cookie := &http.Cookie{
		Name:    storage.CookieSecret,
		Value:   sealed.Locator.String(),
		Expires: st.now().Add(time.Duration(expiresIn) * time.Second),
	}
	if err := st.cookies.SetCookie(cookie); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	if err := st.storage.Set(ctx, storage.KeySessionState, sessionState); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	if err := st.storage.Set(ctx, storage.KeySession, codec.Base64Encode(sealed.Ciphertext)); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	st.logger.Debug("serialized session", "expires_in", expiresIn)
	return nil
}

// Deserialize restores the persisted session and the recorded session
// state.  It returns an empty Session when no intact session is persisted.
func (st *Store) Deserialize(ctx context.Context) (*Session, string) {
	sessionState, err := st.storage.Get(ctx, storage.KeySessionState)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		st.logger.Debug("cannot read session state", "error", err)
	}
	sess, err := st.Load(ctx)
	if err != nil {
		st.logger.Debug("cannot deserialize session data", "error", err)
		return &Session{}, sessionState
	}
	st.logger.Debug("deserialized session data", "authenticated", sess.IsAuthenticated())
	return sess, sessionState
}

// Load is Deserialize with the failure reported.  Errors wrap
// ErrSessionPersistence.
func (st *Store) Load(ctx context.Context) (*Session, error) {
	const op = "Store.Load"
	c, err := st.cookies.Cookie(storage.CookieSecret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	loc, err := ParseLocator(c.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	encoded, err := st.storage.Get(ctx, storage.KeySession)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	ct, err := codec.Base64Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	pt, err := Decrypt(&Sealed{Locator: loc, Ciphertext: ct})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	s, err := codec.UTF16ToString(pt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(s), &sess); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	return &sess, nil
}

// Reset expires the locator cookie and removes the ciphertext.  The
// session state is kept.  Every step is attempted; failures are combined.
func (st *Store) Reset(ctx context.Context) error {
	const op = "Store.Reset"
	var result *multierror.Error
	if err := st.cookies.SetCookie(&http.Cookie{
		Name:    storage.CookieSecret,
		Value:   "",
		Expires: time.Unix(1, 0),
	}); err != nil {
		result = multierror.Append(result, err)
	}
	if err := st.storage.Delete(ctx, storage.KeySession); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetSessionState records the provider's session state on its own, as
// done when the provider answered with an error.
func (st *Store) SetSessionState(ctx context.Context, sessionState string) error {
	const op = "Store.SetSessionState"
	if err := st.storage.Set(ctx, storage.KeySessionState, sessionState); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSessionPersistence, err)
	}
	return nil
}
