// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the server-side session catalog.
package session

import (
	"context"
	"sync"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/profile"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Client is the slice of the API client the session manager needs.
type Client interface {
	ListSessions(ctx context.Context, tenantID string) ([]api.SessionInfo, error)
	CreateSession(ctx context.Context, create api.CreateSessionRequest) (*api.SessionInfo, error)
	GetSession(ctx context.Context, id string) (*api.SessionDetail, error)
	DeleteSession(ctx context.Context, id string) error
	SetCredential(token string)
	HasCredential() bool
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the session catalog and the binding between the local
// conversation and a server session. It loads identity and credential
// from the profile store on construction and performs the full local
// sign-out when the server rejects the credential.
type Manager struct {
	mu sync.Mutex

	client   Client
	store    profile.Store
	conv     *model.Conversation
	tenantID string

	identity string
	catalog  []api.SessionInfo

	onSignOut func()
}

// NewManager wires a manager to its collaborators. The device identity
// is minted if absent, and a stored credential is installed on the
// client so the first request is already authenticated.
func NewManager(client Client, store profile.Store, conv *model.Conversation, tenantID string) (*Manager, error) {
	identity, err := profile.Identity(store)
	if err != nil {
		return nil, err
	}
	token, err := profile.LoadCredential(store)
	if err != nil {
		return nil, err
	}
	if token != "" {
		client.SetCredential(token)
	}
	return &Manager{
		client:   client,
		store:    store,
		conv:     conv,
		tenantID: tenantID,
		identity: identity,
	}, nil
}

// Identity returns the current user identifier.
func (m *Manager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// SignedIn reports whether a credential is installed.
func (m *Manager) SignedIn() bool {
	return m.client.HasCredential()
}

// SetSignOutCallback sets the function called after a local sign-out,
// so the UI can drop any authenticated views.
func (m *Manager) SetSignOutCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSignOut = fn
}

// =============================================================================
// SIGN-IN / SIGN-OUT
// =============================================================================

// SignIn installs a credential and adopts the account identity. Both are
// persisted; turns from here on are attributed to the account.
func (m *Manager) SignIn(token, accountID string) error {
	m.client.SetCredential(token)
	if err := profile.SetIdentity(m.store, accountID); err != nil {
		return err
	}
	if err := profile.StoreCredential(m.store, token); err != nil {
		return err
	}
	m.mu.Lock()
	m.identity = accountID
	m.mu.Unlock()
	return nil
}

// SignOut clears the credential and identity locally, resets the catalog
// and the conversation, and mints a fresh guest identity. Called both
// explicitly and whenever the server rejects the credential; there is no
// partial retry path.
func (m *Manager) SignOut() {
	m.client.SetCredential("")
	_ = profile.ClearCredential(m.store)
	_ = m.store.Delete(profile.KeyIdentity)

	m.mu.Lock()
	m.catalog = nil
	m.mu.Unlock()

	identity, err := profile.Identity(m.store)
	if err == nil {
		m.mu.Lock()
		m.identity = identity
		m.mu.Unlock()
	}

	m.conv.Reset()

	m.mu.Lock()
	fn := m.onSignOut
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// checkAuth runs the sign-out path when err is a credential rejection.
// The original error is returned either way.
func (m *Manager) checkAuth(err error) error {
	if api.IsAuthError(err) {
		m.SignOut()
	}
	return err
}

// =============================================================================
// CATALOG
// =============================================================================

// Refresh reloads the session catalog from the server. Without a
// credential the catalog is empty and no request is made; guest history
// lives only inside the current conversation.
func (m *Manager) Refresh(ctx context.Context) ([]api.SessionInfo, error) {
	if !m.client.HasCredential() {
		m.mu.Lock()
		m.catalog = nil
		m.mu.Unlock()
		return nil, nil
	}
	sessions, err := m.client.ListSessions(ctx, m.tenantID)
	if err != nil {
		return nil, m.checkAuth(err)
	}
	m.mu.Lock()
	m.catalog = sessions
	m.mu.Unlock()
	return m.Sessions(), nil
}

// Sessions returns a copy of the cached catalog.
func (m *Manager) Sessions() []api.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]api.SessionInfo, len(m.catalog))
	copy(out, m.catalog)
	return out
}

// ActiveSessionID returns the session the conversation is bound to, or
// "" for an unsaved conversation.
func (m *Manager) ActiveSessionID() string {
	return m.conv.SessionID()
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// Create starts a fresh server session, resets the conversation to the
// greeting, and binds it to the new session.
func (m *Manager) Create(ctx context.Context, title string) (*api.SessionInfo, error) {
	info, err := m.client.CreateSession(ctx, api.CreateSessionRequest{
		TenantID:       m.tenantID,
		Title:          title,
		UserIdentifier: m.Identity(),
	})
	if err != nil {
		return nil, m.checkAuth(err)
	}
	m.conv.Reset()
	m.conv.BindSession(info.ID)
	if title != "" {
		m.conv.SetTitle(title)
	}
	// Catalog refresh is best effort; the created session is already
	// usable even if the list is momentarily stale.
	_, _ = m.Refresh(ctx)
	return info, nil
}

// Load replaces the conversation with a persisted session's transcript.
// A session with zero messages renders as the greeting.
func (m *Manager) Load(ctx context.Context, id string) error {
	detail, err := m.client.GetSession(ctx, id)
	if err != nil {
		return m.checkAuth(err)
	}
	msgs := make([]*model.Message, 0, len(detail.Messages))
	for _, rec := range detail.Messages {
		msg := &model.Message{
			ID:        rec.ID,
			Role:      model.Role(rec.Role),
			Content:   rec.Content,
			Timestamp: rec.CreatedAt,
			Phase:     model.PhaseSettled,
			Rating:    model.Rating(rec.Rating),
		}
		msgs = append(msgs, msg)
	}
	m.conv.ReplaceAll(detail.ID, detail.Title, msgs)
	return nil
}

// Delete removes a session from the server. Deleting the session the
// conversation is bound to also resets the conversation; deleting any
// other session only changes the catalog.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.client.DeleteSession(ctx, id); err != nil {
		return m.checkAuth(err)
	}
	if m.conv.SessionID() == id {
		m.conv.Reset()
	}
	m.mu.Lock()
	kept := m.catalog[:0]
	for _, s := range m.catalog {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	m.catalog = kept
	m.mu.Unlock()
	return nil
}
