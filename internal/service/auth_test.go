package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/polyglot_blog/internal/hash"
	"github.com/Skotchmaster/polyglot_blog/internal/models"
	"github.com/Skotchmaster/polyglot_blog/internal/ratelimit"
	"github.com/Skotchmaster/polyglot_blog/internal/tokens"
)

func TestAuthService_Login_Validation(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "secret"},
		{name: "empty password", username: "root", password: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.svc.Login(context.Background(), tt.username, tt.password)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Login_GenericFailure(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	_, errUnknown := env.svc.Login(ctx, "nobody", "Secret123")
	_, errWrong := env.svc.Login(ctx, "root", "wrong")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestAuthService_Login_IssuesTokens(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	pair, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)

	admin, err := env.repo.FindAdminByUsername(ctx, "root")
	require.NoError(t, err)

	claims, err := tokens.AccessClaimsFromToken(pair.AccessToken, env.svc.AccessSecret, tokens.WithClock(env.clock.Now))
	require.NoError(t, err)
	assert.Equal(t, admin.ID.String(), claims.AdminID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.WithinDuration(t, env.clock.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 0)

	require.NotNil(t, admin.RefreshTokenHash)
	assert.True(t, hash.CheckToken(*admin.RefreshTokenHash, pair.RefreshToken))
	assert.WithinDuration(t, env.clock.Now().Add(7*24*time.Hour), pair.RefreshExp, 0)

	assert.Contains(t, env.events.types(), "admin.login")
}

func TestAuthService_Refresh_RotatesAndRejectsReplay(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	first, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	second, err := env.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	_, err = env.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// the replay revoked the whole session, including the rotated token
	_, err = env.svc.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	admin, err := env.repo.FindAdminByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Nil(t, admin.RefreshTokenHash)
	assert.Contains(t, env.events.types(), "admin.refresh_reuse")
}

func TestAuthService_Refresh_ChainOfRotations(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	pair, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		env.clock.Advance(time.Hour)
		pair, err = env.svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
	}

	claims, err := env.svc.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthService_Refresh_Errors(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	pair, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)

	_, err = env.svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = env.svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = env.svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "access token signed with another secret")

	forged, err := tokens.SignRefreshToken(uuid.NewString(), env.clock.Now(), env.clock.Now().Add(time.Hour), env.svc.RefreshSecret)
	require.NoError(t, err)
	_, err = env.svc.Refresh(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "unknown admin")

	env.clock.Advance(8 * 24 * time.Hour)
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "expired")
}

func TestAuthService_Refresh_ConcurrentSameToken(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	pair, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)

	const n = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.Refresh(ctx, pair.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrInvalidRefreshToken)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, successes, 1)
}

func TestAuthService_Refresh_MissingSecret(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()
	pair, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)

	broken := *env.svc
	broken.RefreshSecret = nil
	_, err = broken.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrServerConfig)

	broken = *env.svc
	broken.AccessSecret = nil
	_, err = broken.Login(ctx, "root", "Secret123")
	assert.ErrorIs(t, err, ErrServerConfig)
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	assert.NoError(t, env.svc.Logout(ctx, ""))
	assert.NoError(t, env.svc.Logout(ctx, "garbage"))

	pair, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)
	require.NoError(t, env.svc.Logout(ctx, pair.RefreshToken))

	admin, err := env.repo.FindAdminByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Nil(t, admin.RefreshTokenHash)

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	assert.NoError(t, env.svc.Logout(ctx, pair.RefreshToken), "second logout is a no-op")
}

func TestAuthService_Logout_OnlyTouchesEmbeddedAdmin(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.EnsureAdmin(ctx, "editor", "Secret456")
	require.NoError(t, err)

	rootPair, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)
	_, err = env.svc.Login(ctx, "editor", "Secret456")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, rootPair.RefreshToken))

	editor, err := env.repo.FindAdminByUsername(ctx, "editor")
	require.NoError(t, err)
	assert.NotNil(t, editor.RefreshTokenHash)
}

func TestAuthService_Logout_StaleTokenKeepsNewSession(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()

	old, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)
	current, err := env.svc.Refresh(ctx, old.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, old.RefreshToken))

	_, err = env.svc.Refresh(ctx, current.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_Verify(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()
	pair, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)

	claims, err := env.svc.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pair.AdminID.String(), claims.AdminID)

	_, err = env.svc.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = env.svc.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	env.clock.Advance(16 * time.Minute)
	_, err = env.svc.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAuthService_EnsureAdmin_Idempotent(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	created, err := env.svc.EnsureAdmin(context.Background(), "root", "Other1234")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = env.svc.Login(context.Background(), "root", "Secret123")
	assert.NoError(t, err, "existing password is kept")

	created, err = env.svc.EnsureAdmin(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAuthService_ChangePassword(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	ctx := context.Background()
	pair, err := env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.ChangePassword(ctx, pair.AdminID, "Secret123", "short"), ErrValidation)
	assert.ErrorIs(t, env.svc.ChangePassword(ctx, pair.AdminID, "wrong", "NewSecret123"), ErrInvalidCredentials)
	assert.ErrorIs(t, env.svc.ChangePassword(ctx, uuid.New(), "Secret123", "NewSecret123"), ErrNotFound)

	require.NoError(t, env.svc.ChangePassword(ctx, pair.AdminID, "Secret123", "NewSecret123"))

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "password change revokes the session")

	_, err = env.svc.Login(ctx, "root", "NewSecret123")
	assert.NoError(t, err)
}

func TestAuthService_Login_Throttled(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	env.svc.Limiter = ratelimit.NewLoginLimiter(rdb, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := env.svc.Login(ctx, "root", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := env.svc.Login(ctx, "root", "Secret123")
	require.ErrorIs(t, err, ErrTooManyAttempts)
	var retry *RetryAfterError
	require.ErrorAs(t, err, &retry)
	assert.Greater(t, retry.RetryAfter, time.Duration(0))

	mr.FastForward(2 * time.Minute)
	_, err = env.svc.Login(ctx, "root", "Secret123")
	require.NoError(t, err)

	_, err = env.svc.Login(ctx, "root", "Secret123")
	assert.NoError(t, err, "success resets the counter")
}
