package portal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	portalerrors "yogaportal/internal/portal/errors"
	apperrors "yogaportal/pkg/errors"
	"yogaportal/pkg/events"
	"yogaportal/pkg/metrics"
	"yogaportal/pkg/model"
	"yogaportal/pkg/sanitizer"
	"yogaportal/pkg/storage"
)

// storedSession is the on-device form of a remote session. Sealed is used
// whenever a seal key is configured.
type storedSession struct {
	Sealed  string         `json:"sealed,omitempty"`
	Session *model.Session `json:"session,omitempty"`
}

type authChange struct {
	Identity IdentityState `json:"identity"`
	Source   SessionSource `json:"source,omitempty"`
	UserID   string        `json:"user_id,omitempty"`
}

// Login signs in with a password grant. With no credentials at all and
// local development auth enabled, it signs in as the demo user instead.
func (p *Portal) Login(ctx context.Context, email, password string) model.Result {
	email = strings.TrimSpace(email)

	if email == "" && password == "" && p.cfg.LocalDevAuth {
		return p.mockLogin(ctx)
	}
	if email == "" || password == "" {
		return model.Fail(portalerrors.ErrCredentialsRequired.Error())
	}

	p.authMu.Lock()
	defer p.authMu.Unlock()

	p.setIdentity(Authenticating)

	sess, err := p.auth.PasswordGrant(ctx, email, password)
	metrics.RecordBackendCall("password_grant", err)
	if err != nil {
		p.log.Warn("Login failed", "error", err)
		p.resetIdentity()
		return failure(err)
	}

	profile, err := p.market.GetProfile(ctx, sess.AccessToken)
	metrics.RecordBackendCall("get_profile", err)
	if err != nil {
		p.log.Error("Failed to load profile after login", "user_id", sess.UserID, "error", err)
		p.resetIdentity()
		return failure(err)
	}

	p.persistSession(ctx, sess)

	profile.Preferences = profile.Preferences.Merge(p.GuestPreferences())
	p.adopt(SourceRemote, sess, profile)

	p.log.Info("User logged in", "user_id", profile.ID)
	return model.Ok(profile.Clone())
}

func (p *Portal) mockLogin(ctx context.Context) model.Result {
	p.authMu.Lock()
	defer p.authMu.Unlock()

	profile := mockProfile(p.now())
	profile.Preferences = profile.Preferences.Merge(p.GuestPreferences())

	if err := storage.SetJSON(ctx, p.store, storage.KeyMockAuth, true); err != nil {
		p.log.Error("Failed to persist mock auth flag", "error", err)
	}
	if err := storage.SetJSON(ctx, p.store, storage.KeyMockProfile, profile); err != nil {
		p.log.Error("Failed to persist mock profile", "error", err)
	}

	p.adopt(SourceLocalDev, nil, profile)

	p.log.Info("Local development login", "user_id", profile.ID)
	return model.Ok(profile.Clone())
}

// Logout always ends the session locally, whatever the backend says.
func (p *Portal) Logout(ctx context.Context) model.Result {
	p.authMu.Lock()
	defer p.authMu.Unlock()

	if token, ok := p.remoteToken(); ok {
		err := p.auth.SignOut(ctx, token)
		metrics.RecordBackendCall("sign_out", err)
		if err != nil {
			p.log.Warn("Backend sign-out failed, clearing session locally", "error", err)
		}
	}

	p.clearIdentity(ctx)

	p.log.Info("User logged out")
	return model.Ok(nil)
}

// HandleAuthEvent applies an identity notification that did not originate
// from a portal action. Only events about the remote user signed in on this
// device are applied; anything else, including a sign-in while anonymous, is
// dropped so another user's identity is never taken on.
func (p *Portal) HandleAuthEvent(ctx context.Context, evt model.AuthEvent) {
	p.authMu.Lock()
	defer p.authMu.Unlock()

	current := p.remoteUserID()
	if current == "" || evt.Subject() != current {
		p.log.Debug("Ignoring auth event for another user", "type", evt.Type, "subject", evt.Subject())
		return
	}
	p.log.Debug("Auth event", "type", evt.Type, "user_id", current)

	switch evt.Type {
	case model.AuthEventSignedOut:
		p.clearIdentity(ctx)

	case model.AuthEventSignedIn, model.AuthEventTokenRefreshed:
		if evt.Session == nil || evt.Session.AccessToken == "" {
			_ = p.RefreshProfile(ctx)
			return
		}
		sess := *evt.Session
		if sess.UserID == "" {
			sess.UserID = current
		}

		profile, err := p.market.GetProfile(ctx, sess.AccessToken)
		metrics.RecordBackendCall("get_profile", err)
		if err != nil {
			p.log.Warn("Failed to adopt session from auth event", "type", evt.Type, "error", err)
			return
		}
		if profile.ID != current {
			p.log.Warn("Auth event session belongs to another user", "type", evt.Type, "profile_id", profile.ID)
			return
		}

		p.persistSession(ctx, &sess)
		profile.Preferences = profile.Preferences.Merge(p.GuestPreferences())
		p.adopt(SourceRemote, &sess, profile)

	case model.AuthEventUserUpdated:
		_ = p.RefreshProfile(ctx)

	default:
		p.log.Warn("Ignoring unknown auth event", "type", evt.Type)
	}
}

// RefreshProfile refetches the profile of the remote session. It is a no-op
// for anonymous and local development sessions.
func (p *Portal) RefreshProfile(ctx context.Context) error {
	token, ok := p.remoteToken()
	if !ok {
		return nil
	}

	profile, err := p.market.GetProfile(ctx, token)
	metrics.RecordBackendCall("get_profile", err)
	if err != nil {
		p.log.Warn("Failed to refresh profile", "error", err)
		return err
	}

	p.mu.Lock()
	// the session may have ended while the request was in flight
	if p.session == nil || p.session.AccessToken != token {
		p.mu.Unlock()
		return nil
	}
	p.profile = profile
	p.mu.Unlock()

	p.changed()
	return nil
}

func (p *Portal) UpdateProfile(ctx context.Context, update model.ProfileUpdate) model.Result {
	if err := p.validator.ValidateProfileUpdate(&update); err != nil {
		return model.Fail(err.Error())
	}
	if update.Phone != nil && strings.TrimSpace(*update.Phone) != "" {
		phone := sanitizer.Phone(*update.Phone)
		if phone == "" {
			return model.Fail(portalerrors.ErrInvalidPhone.Error())
		}
		update.Phone = &phone
	}

	p.mu.RLock()
	source, current := p.source, p.profile.Clone()
	p.mu.RUnlock()

	switch source {
	case SourceRemote:
		token, ok := p.remoteToken()
		if !ok {
			return model.Fail(portalerrors.ErrAuthRequired.Error())
		}
		profile, err := p.market.UpdateProfile(ctx, token, update)
		metrics.RecordBackendCall("update_profile", err)
		if err != nil {
			p.log.Error("Profile update failed", "error", err)
			return failure(err)
		}
		p.setProfile(profile)
		return model.Ok(profile.Clone())

	case SourceLocalDev:
		profile := update.Apply(current)
		if err := storage.SetJSON(ctx, p.store, storage.KeyMockProfile, profile); err != nil {
			p.log.Error("Failed to persist mock profile", "error", err)
		}
		p.setProfile(profile)
		return model.Ok(profile.Clone())
	}

	return model.Fail(portalerrors.ErrAuthRequired.Error())
}

func (p *Portal) GuestPreferences() model.GuestPreferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.guestPrefs.Clone()
}

func (p *Portal) SetGuestPreferences(prefs model.GuestPreferences) error {
	prefs.FavoriteStyles = sanitizer.Tags(prefs.FavoriteStyles)
	prefs.PreferredLanguages = sanitizer.Tags(prefs.PreferredLanguages)
	prefs.AvailabilityWindows = sanitizer.Tags(prefs.AvailabilityWindows)

	if err := p.validator.ValidatePreferences(&prefs); err != nil {
		return err
	}

	p.mu.Lock()
	p.guestPrefs = prefs.Clone()
	p.mu.Unlock()

	p.changed()
	return nil
}

// restoreSession tries the persisted remote session first, then the local
// development login. Anything unreadable is deleted on the way down.
func (p *Portal) restoreSession(ctx context.Context) {
	p.authMu.Lock()
	defer p.authMu.Unlock()

	if p.restoreRemote(ctx) {
		return
	}
	if p.cfg.LocalDevAuth {
		p.restoreMock(ctx)
	}
}

func (p *Portal) restoreRemote(ctx context.Context) bool {
	sess, err := p.loadSession(ctx)
	if err != nil {
		p.log.Warn("Discarding persisted session", "error", err)
		p.deleteKeys(ctx, storage.KeySession)
		return false
	}
	if sess == nil {
		return false
	}

	if p.sessionExpired(sess) {
		if sess.RefreshToken == "" {
			p.log.Info("Persisted session expired")
			p.deleteKeys(ctx, storage.KeySession)
			return false
		}
		refreshed, err := p.auth.Refresh(ctx, sess.RefreshToken)
		metrics.RecordBackendCall("refresh", err)
		if err != nil {
			p.log.Warn("Session refresh failed", "error", err)
			p.deleteKeys(ctx, storage.KeySession)
			return false
		}
		sess = refreshed
		p.persistSession(ctx, sess)
	}

	profile, err := p.market.GetProfile(ctx, sess.AccessToken)
	metrics.RecordBackendCall("get_profile", err)
	if err != nil {
		p.log.Warn("Failed to restore profile", "error", err)
		if apperrors.IsCode(err, apperrors.CodeUnauthorized) {
			p.deleteKeys(ctx, storage.KeySession)
		}
		return false
	}

	p.adopt(SourceRemote, sess, profile)
	return true
}

func (p *Portal) restoreMock(ctx context.Context) {
	var flag bool
	found, err := storage.GetJSON(ctx, p.store, storage.KeyMockAuth, &flag)
	if err != nil {
		p.log.Warn("Discarding mock auth flag", "error", err)
		p.deleteKeys(ctx, storage.KeyMockAuth, storage.KeyMockProfile)
		return
	}
	if !found || !flag {
		return
	}

	var profile model.CustomerProfile
	found, err = storage.GetJSON(ctx, p.store, storage.KeyMockProfile, &profile)
	if err != nil {
		p.log.Warn("Discarding mock profile", "error", err)
		p.deleteKeys(ctx, storage.KeyMockAuth, storage.KeyMockProfile)
		return
	}
	if !found {
		profile = *mockProfile(p.now())
		if err := storage.SetJSON(ctx, p.store, storage.KeyMockProfile, &profile); err != nil {
			p.log.Error("Failed to persist mock profile", "error", err)
		}
	}

	p.adopt(SourceLocalDev, nil, &profile)
}

func (p *Portal) loadSession(ctx context.Context) (*model.Session, error) {
	var stored storedSession
	found, err := storage.GetJSON(ctx, p.store, storage.KeySession, &stored)
	if err != nil || !found {
		return nil, err
	}

	if stored.Sealed != "" {
		if p.sealer == nil {
			return nil, portalerrors.ErrSessionCorrupt
		}
		plain, err := p.sealer.Open(stored.Sealed)
		if err != nil {
			return nil, errors.Join(portalerrors.ErrSessionCorrupt, err)
		}
		var sess model.Session
		if err := json.Unmarshal(plain, &sess); err != nil {
			return nil, errors.Join(portalerrors.ErrSessionCorrupt, err)
		}
		stored.Session = &sess
	}

	if stored.Session == nil || stored.Session.AccessToken == "" {
		return nil, portalerrors.ErrSessionCorrupt
	}
	return stored.Session, nil
}

func (p *Portal) persistSession(ctx context.Context, sess *model.Session) {
	stored := storedSession{Session: sess}

	if p.sealer != nil {
		plain, err := json.Marshal(sess)
		if err != nil {
			p.log.Error("Failed to encode session", "error", err)
			return
		}
		sealed, err := p.sealer.Seal(plain)
		if err != nil {
			p.log.Error("Failed to seal session", "error", err)
			return
		}
		stored = storedSession{Sealed: sealed}
	}

	if err := storage.SetJSON(ctx, p.store, storage.KeySession, stored); err != nil {
		p.log.Error("Failed to persist session", "error", err)
	}
}

// sessionExpired prefers the exp claim of the access token. Tokens that are
// not JWTs fall back to the expiry reported by the token endpoint.
func (p *Portal) sessionExpired(sess *model.Session) bool {
	if sess.AccessToken == "" {
		return true
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(sess.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return !p.now().Before(exp.Time)
		}
	}
	return sess.Expired(p.now())
}

func (p *Portal) remoteToken() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.identity != Authenticated || p.source != SourceRemote || p.session == nil || p.session.AccessToken == "" {
		return "", false
	}
	return p.session.AccessToken, true
}

// remoteUserID is the user of the remote session, or "" when there is none.
func (p *Portal) remoteUserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.identity != Authenticated || p.source != SourceRemote || p.session == nil {
		return ""
	}
	if p.session.UserID != "" {
		return p.session.UserID
	}
	if p.profile != nil {
		return p.profile.ID
	}
	return ""
}

func (p *Portal) setIdentity(state IdentityState) {
	p.mu.Lock()
	p.identity = state
	p.mu.Unlock()

	p.changed()
}

func (p *Portal) setProfile(profile *model.CustomerProfile) {
	p.mu.Lock()
	p.profile = profile
	p.mu.Unlock()

	p.changed()
}

func (p *Portal) adopt(source SessionSource, sess *model.Session, profile *model.CustomerProfile) {
	p.mu.Lock()
	p.identity = Authenticated
	p.source = source
	p.session = sess
	p.profile = profile
	p.mu.Unlock()

	metrics.RecordAuthTransition(string(Authenticated), string(source))
	p.publish(events.AuthChanged, authChange{Identity: Authenticated, Source: source, UserID: profile.ID})
	p.changed()
}

// resetIdentity drops back to anonymous without touching storage.
func (p *Portal) resetIdentity() {
	p.mu.Lock()
	p.identity = Anonymous
	p.source = SourceNone
	p.session = nil
	p.profile = nil
	p.mu.Unlock()

	p.changed()
}

func (p *Portal) clearIdentity(ctx context.Context) {
	p.mu.Lock()
	wasAuthenticated := p.identity == Authenticated
	p.mu.Unlock()

	p.deleteKeys(ctx, storage.KeySession, storage.KeyMockAuth, storage.KeyMockProfile)
	p.resetIdentity()

	if wasAuthenticated {
		metrics.RecordAuthTransition(string(Anonymous), "")
		p.publish(events.AuthChanged, authChange{Identity: Anonymous})
	}
}

func (p *Portal) deleteKeys(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := p.store.Delete(ctx, key); err != nil {
			p.log.Error("Failed to delete persisted key", "key", key, "error", err)
		}
	}
}

func mockProfile(now time.Time) *model.CustomerProfile {
	joined := now.UTC()
	return &model.CustomerProfile{
		ID:               uuid.NewString(),
		FirstName:        "Demo",
		LastName:         "Yogi",
		Email:            "demo@yoga.local",
		MembershipStatus: "trial",
		CreditsBalance:   5,
		JoinedAt:         &joined,
	}
}

// failure turns an error into the message callers see. Backend errors carry
// the backend's own message.
func failure(err error) model.Result {
	if apperrors.IsAppError(err) {
		return model.Fail(apperrors.AsAppError(err).Message)
	}
	return model.Fail(err.Error())
}
