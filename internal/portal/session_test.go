package portal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "yogaportal/pkg/errors"
	"yogaportal/pkg/events"
	"yogaportal/pkg/model"
	"yogaportal/pkg/storage"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestLogin_Remote(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.portal.SetGuestPreferences(model.GuestPreferences{FavoriteStyles: []string{"Yin"}}))

	h.loginRemote(t)

	st := h.portal.Snapshot()
	assert.Equal(t, Authenticated, st.Identity)
	assert.Equal(t, SourceRemote, st.Source)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "user-1", st.Profile.ID)
	assert.Equal(t, []string{"yin"}, st.Profile.Preferences.FavoriteStyles)
	assert.Equal(t, 1, h.market.Calls("GetProfile"))

	raw, ok, err := h.store.Get(context.Background(), storage.KeySession)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "access-1", "session must be sealed at rest")
}

func TestLogin_FailureRevertsToAnonymous(t *testing.T) {
	h := newHarness(t)
	h.auth.On("PasswordGrant", mock.Anything, "anna@example.ch", "wrong").
		Return(nil, apperrors.FromStatus(400, "Invalid login credentials")).Once()

	res := h.portal.Login(context.Background(), "anna@example.ch", "wrong")

	assert.False(t, res.Success)
	assert.Equal(t, "Invalid login credentials", res.Error)
	assert.Equal(t, Anonymous, h.portal.Snapshot().Identity)
	h.auth.AssertExpectations(t)
}

func TestLogin_ProfileFailureDoesNotPersist(t *testing.T) {
	h := newHarness(t)
	h.market.profileErr = apperrors.Unavailable("marketplace")
	h.auth.On("PasswordGrant", mock.Anything, "anna@example.ch", "secret").
		Return(&model.Session{AccessToken: "access-1"}, nil).Once()

	res := h.portal.Login(context.Background(), "anna@example.ch", "secret")

	assert.False(t, res.Success)
	assert.Equal(t, Anonymous, h.portal.Snapshot().Identity)
	_, ok, _ := h.store.Get(context.Background(), storage.KeySession)
	assert.False(t, ok)
}

func TestLogin_Credentials(t *testing.T) {
	tests := []struct {
		name     string
		localDev bool
		email    string
		password string
		wantOK   bool
		wantErr  string
		source   SessionSource
	}{
		{name: "no credentials, local dev", localDev: true, wantOK: true, source: SourceLocalDev},
		{name: "no credentials, local dev disabled", wantErr: "Email and password are required"},
		{name: "email only", localDev: true, email: "anna@example.ch", wantErr: "Email and password are required"},
		{name: "password only", password: "secret", wantErr: "Email and password are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(h *harness) { h.cfg.LocalDevAuth = tt.localDev })

			res := h.portal.Login(context.Background(), tt.email, tt.password)

			assert.Equal(t, tt.wantOK, res.Success)
			assert.Equal(t, tt.wantErr, res.Error)
			assert.Equal(t, tt.source, h.portal.Snapshot().Source)
			h.auth.AssertNotCalled(t, "PasswordGrant", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestMockLogin_PersistsAcrossRestart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.portal.Login(ctx, "", "")
	require.True(t, res.Success)
	first := h.portal.Snapshot().Profile
	assert.Equal(t, "demo@yoga.local", first.Email)

	restarted := h.open(t)
	restarted.Start(ctx)

	st := restarted.Snapshot()
	assert.Equal(t, Authenticated, st.Identity)
	assert.Equal(t, SourceLocalDev, st.Source)
	assert.Equal(t, first.ID, st.Profile.ID)
	assert.Zero(t, h.market.Total())
}

func TestLogout_EffectiveWhenSignOutFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loginRemote(t)
	h.auth.On("SignOut", mock.Anything, "access-1").Return(errors.New("network unreachable")).Once()

	res := h.portal.Logout(ctx)

	assert.True(t, res.Success)
	st := h.portal.Snapshot()
	assert.Equal(t, Anonymous, st.Identity)
	assert.Nil(t, st.Profile)
	for _, key := range []string{storage.KeySession, storage.KeyMockAuth, storage.KeyMockProfile} {
		_, ok, _ := h.store.Get(ctx, key)
		assert.False(t, ok, key)
	}
	h.auth.AssertExpectations(t)
}

func TestLogout_LocalDevSkipsBackend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.True(t, h.portal.Login(ctx, "", "").Success)

	assert.True(t, h.portal.Logout(ctx).Success)
	assert.Empty(t, h.store.Keys())
	h.auth.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
}

func TestStart_RestoresSealedSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loginRemote(t)

	restarted := h.open(t)
	restarted.Start(ctx)

	st := restarted.Snapshot()
	assert.Equal(t, Authenticated, st.Identity)
	assert.Equal(t, SourceRemote, st.Source)
	assert.Equal(t, 2, h.market.Calls("GetProfile"))
}

func TestStart_ExpiredTokenIsRefreshed(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.cfg.SessionSealKey = "" })
	ctx := context.Background()

	expired := signedToken(t, h.clock.Now().Add(-time.Minute))
	fresh := signedToken(t, h.clock.Now().Add(time.Hour))
	require.NoError(t, storage.SetJSON(ctx, h.store, storage.KeySession, storedSession{
		Session: &model.Session{AccessToken: expired, RefreshToken: "refresh-1"},
	}))
	h.auth.On("Refresh", mock.Anything, "refresh-1").
		Return(&model.Session{AccessToken: fresh, RefreshToken: "refresh-2"}, nil).Once()

	h.portal.Start(ctx)

	assert.Equal(t, Authenticated, h.portal.Snapshot().Identity)
	h.market.mu.Lock()
	assert.Equal(t, []string{fresh}, h.market.tokens)
	h.market.mu.Unlock()

	var stored storedSession
	_, err := storage.GetJSON(ctx, h.store, storage.KeySession, &stored)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", stored.Session.RefreshToken)
}

func TestStart_ExpiredWithoutRefreshStaysAnonymous(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.cfg.SessionSealKey = ""
		h.cfg.LocalDevAuth = false
	})
	ctx := context.Background()
	require.NoError(t, storage.SetJSON(ctx, h.store, storage.KeySession, storedSession{
		Session: &model.Session{AccessToken: signedToken(t, h.clock.Now().Add(-time.Second))},
	}))

	h.portal.Start(ctx)

	assert.Equal(t, Anonymous, h.portal.Snapshot().Identity)
	assert.Zero(t, h.market.Total())
	_, ok, _ := h.store.Get(ctx, storage.KeySession)
	assert.False(t, ok)
}

func TestStart_CorruptSessionFallsBackToMock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, storage.KeySession, []byte("{not json")))
	require.NoError(t, storage.SetJSON(ctx, h.store, storage.KeyMockAuth, true))
	require.NoError(t, storage.SetJSON(ctx, h.store, storage.KeyMockProfile, mockProfile(h.clock.Now())))

	h.portal.Start(ctx)

	st := h.portal.Snapshot()
	assert.Equal(t, SourceLocalDev, st.Source)
	_, ok, _ := h.store.Get(ctx, storage.KeySession)
	assert.False(t, ok, "corrupt session must be deleted")
}

func TestStart_CorruptMockProfileIsDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, storage.SetJSON(ctx, h.store, storage.KeyMockAuth, true))
	require.NoError(t, h.store.Set(ctx, storage.KeyMockProfile, []byte("[]oops")))

	h.portal.Start(ctx)

	assert.Equal(t, Anonymous, h.portal.Snapshot().Identity)
	assert.Empty(t, h.store.Keys())
}

func TestStart_MockIgnoredWhenLocalDevDisabled(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.cfg.LocalDevAuth = false })
	ctx := context.Background()
	require.NoError(t, storage.SetJSON(ctx, h.store, storage.KeyMockAuth, true))

	h.portal.Start(ctx)

	assert.Equal(t, Anonymous, h.portal.Snapshot().Identity)
}

func TestHandleAuthEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loginRemote(t)
	require.NoError(t, h.portal.SetGuestPreferences(model.GuestPreferences{FavoriteStyles: []string{"Yin"}}))

	h.portal.HandleAuthEvent(ctx, model.AuthEvent{
		Type:    model.AuthEventTokenRefreshed,
		Session: &model.Session{AccessToken: "access-2", UserID: "user-1"},
	})
	st := h.portal.Snapshot()
	require.Equal(t, Authenticated, st.Identity)
	assert.Equal(t, SourceRemote, st.Source)
	assert.Equal(t, []string{"yin"}, st.Profile.Preferences.FavoriteStyles, "guest preferences merge like a login")
	token, ok := h.portal.remoteToken()
	require.True(t, ok)
	assert.Equal(t, "access-2", token)

	h.market.profile.FirstName = "Anne"
	h.portal.HandleAuthEvent(ctx, model.AuthEvent{Type: model.AuthEventUserUpdated, UserID: "user-1"})
	assert.Equal(t, "Anne", h.portal.Snapshot().Profile.FirstName)

	h.portal.HandleAuthEvent(ctx, model.AuthEvent{Type: model.AuthEventSignedOut, UserID: "user-1"})
	assert.Equal(t, Anonymous, h.portal.Snapshot().Identity)
	h.auth.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
}

func TestHandleAuthEvent_IgnoresOtherUsers(t *testing.T) {
	tests := []struct {
		name  string
		login bool
		evt   model.AuthEvent
	}{
		{
			name:  "sign-out of another user",
			login: true,
			evt:   model.AuthEvent{Type: model.AuthEventSignedOut, UserID: "user-2"},
		},
		{
			name:  "sign-out without a user",
			login: true,
			evt:   model.AuthEvent{Type: model.AuthEventSignedOut},
		},
		{
			name:  "sign-in carrying another user's session",
			login: true,
			evt: model.AuthEvent{
				Type:    model.AuthEventSignedIn,
				Session: &model.Session{AccessToken: "token-of-user-2", UserID: "user-2"},
			},
		},
		{
			name: "sign-in while anonymous",
			evt: model.AuthEvent{
				Type:    model.AuthEventSignedIn,
				Session: &model.Session{AccessToken: "token-of-user-2", UserID: "user-2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.login {
				h.loginRemote(t)
			}
			before := h.portal.Snapshot()
			profileCalls := h.market.Calls("GetProfile")

			h.portal.HandleAuthEvent(context.Background(), tt.evt)

			after := h.portal.Snapshot()
			assert.Equal(t, before.Identity, after.Identity)
			assert.Equal(t, before.Profile, after.Profile)
			assert.Equal(t, profileCalls, h.market.Calls("GetProfile"), "no backend call for a foreign event")
			if tt.login {
				token, ok := h.portal.remoteToken()
				require.True(t, ok)
				assert.Equal(t, "access-1", token)
			}
		})
	}
}

func TestHandleAuthEvent_RejectsSessionForAnotherProfile(t *testing.T) {
	h := newHarness(t)
	h.loginRemote(t)
	h.market.profile.ID = "user-2"

	h.portal.HandleAuthEvent(context.Background(), model.AuthEvent{
		Type:    model.AuthEventTokenRefreshed,
		UserID:  "user-1",
		Session: &model.Session{AccessToken: "token-of-user-2"},
	})

	token, ok := h.portal.remoteToken()
	require.True(t, ok)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, "user-1", h.portal.Snapshot().Profile.ID)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.portal.UpdateProfile(ctx, model.ProfileUpdate{})
	assert.Equal(t, "Authentication required", res.Error)

	h.loginRemote(t)

	phone := "044 668 18 00"
	res = h.portal.UpdateProfile(ctx, model.ProfileUpdate{Phone: &phone})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "+41446681800", h.portal.Snapshot().Profile.Phone)

	bad := "12"
	res = h.portal.UpdateProfile(ctx, model.ProfileUpdate{Phone: &bad})
	assert.Equal(t, "Invalid phone number", res.Error)
}

func TestUpdateProfile_LocalDevPersistsMockProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.True(t, h.portal.Login(ctx, "", "").Success)

	name := "Mira"
	require.True(t, h.portal.UpdateProfile(ctx, model.ProfileUpdate{FirstName: &name}).Success)

	var stored model.CustomerProfile
	_, err := storage.GetJSON(ctx, h.store, storage.KeyMockProfile, &stored)
	require.NoError(t, err)
	assert.Equal(t, "Mira", stored.FirstName)
	assert.Zero(t, h.market.Total())
}

func TestAuthTransitionsArePublished(t *testing.T) {
	h := newHarness(t)
	ch, cancel := h.bus.Subscribe(events.AuthChanged)
	defer cancel()

	require.True(t, h.portal.Login(context.Background(), "", "").Success)

	select {
	case evt := <-ch:
		var change authChange
		require.NoError(t, json.Unmarshal(evt.Data, &change))
		assert.Equal(t, Authenticated, change.Identity)
		assert.Equal(t, SourceLocalDev, change.Source)
	case <-time.After(time.Second):
		t.Fatal("no auth.changed event")
	}
}

func TestSessionExpired_NonJWTFallsBackToExpiresAt(t *testing.T) {
	h := newHarness(t)
	now := h.clock.Now()

	assert.False(t, h.portal.sessionExpired(&model.Session{AccessToken: "opaque", ExpiresAt: now.Add(time.Minute)}))
	assert.True(t, h.portal.sessionExpired(&model.Session{AccessToken: "opaque", ExpiresAt: now}))
	assert.False(t, h.portal.sessionExpired(&model.Session{AccessToken: "opaque"}))
	assert.True(t, h.portal.sessionExpired(&model.Session{}))
}
