package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/polyglot_blog/internal/events"
	"github.com/Skotchmaster/polyglot_blog/internal/hash"
	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/models"
	"github.com/Skotchmaster/polyglot_blog/internal/ratelimit"
	"github.com/Skotchmaster/polyglot_blog/internal/repo"
	"github.com/Skotchmaster/polyglot_blog/internal/tokens"
)

const minPasswordLen = 8

type AuthService struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Limiter       *ratelimit.LoginLimiter
	Events        events.Publisher
	Now           func() time.Time
}

type TokenPair struct {
	AdminID      uuid.UUID
	Role         string
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// RetryAfterError is returned with ErrTooManyAttempts.
type RetryAfterError struct {
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrTooManyAttempts, e.RetryAfter)
}

func (e *RetryAfterError) Unwrap() error { return ErrTooManyAttempts }

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) publish(ctx context.Context, key, typ string, data any) {
	publish(ctx, s.Events, events.TopicAdmin, key, events.Event{Type: typ, At: s.now(), Data: data})
}

func (s *AuthService) issue(admin *models.Admin) (*TokenPair, error) {
	now := s.now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)
	id := admin.ID.String()

	access, err := tokens.SignAccessToken(id, admin.Role, now, accessExp, s.AccessSecret)
	if err != nil {
		return nil, signError(err)
	}
	refresh, err := tokens.SignRefreshToken(id, now, refreshExp, s.RefreshSecret)
	if err != nil {
		return nil, signError(err)
	}

	return &TokenPair{
		AdminID:      admin.ID,
		Role:         admin.Role,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func signError(err error) error {
	if errors.Is(err, tokens.ErrMissingSecret) {
		return fmt.Errorf("%w: %v", ErrServerConfig, err)
	}
	return fmt.Errorf("sign token: %w", err)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	decision, err := s.Limiter.Hit(ctx, username)
	if err != nil {
		l.Warn("login_throttle_unavailable", "error", err)
	}
	if !decision.Allowed {
		l.Warn("login_failed", "status", 429, "reason", "too many attempts")
		return nil, &RetryAfterError{RetryAfter: decision.RetryAfter}
	}

	admin, err := s.Repo.FindAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown username")
			s.publish(ctx, username, "admin.login_failed", map[string]string{"username": username})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if !hash.CheckPassword(admin.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		s.publish(ctx, admin.ID.String(), "admin.login_failed", map[string]string{"username": username})
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issue(admin)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign tokens", "error", err)
		return nil, err
	}

	refreshHash, err := hash.HashToken(pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}
	if err := s.Repo.SetRefreshHash(ctx, admin.ID, refreshHash); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	if err := s.Limiter.Reset(ctx, username); err != nil {
		l.Warn("login_throttle_reset_failed", "error", err)
	}
	s.publish(ctx, admin.ID.String(), "admin.login", map[string]string{"username": username})
	l.Info("login_successful", "admin_id", admin.ID.String())
	return pair, nil
}

// Refresh verifies the presented refresh token against the stored hash and
// rotates the pair. A mismatch clears the stored hash: the token was either
// already rotated or stolen.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, ErrMissingToken
	}

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret, tokens.WithClock(s.now))
	if err != nil {
		if errors.Is(err, tokens.ErrMissingSecret) {
			return nil, fmt.Errorf("%w: %v", ErrServerConfig, err)
		}
		l.Warn("refresh_failed", "status", 403, "reason", "cannot parse refresh token", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}

	adminID, err := uuid.Parse(claims.AdminID)
	if err != nil {
		l.Warn("refresh_failed", "status", 403, "reason", "bad admin id in token")
		return nil, ErrInvalidRefreshToken
	}
	l = l.With("admin_id", adminID.String())

	admin, err := s.Repo.FindAdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "status", 403, "reason", "admin not found")
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}

	if admin.RefreshTokenHash == nil || !hash.CheckToken(*admin.RefreshTokenHash, refreshToken) {
		l.Warn("refresh_failed", "status", 403, "reason", "refresh token does not match stored hash")
		if err := s.Repo.ClearRefreshHash(ctx, admin.ID); err != nil {
			return nil, fmt.Errorf("clear refresh token: %w", err)
		}
		s.publish(ctx, admin.ID.String(), "admin.refresh_reuse", nil)
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.issue(admin)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot sign tokens", "error", err)
		return nil, err
	}
	nextHash, err := hash.HashToken(pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}

	if err := s.Repo.SwapRefreshHash(ctx, admin.ID, *admin.RefreshTokenHash, nextHash); err != nil {
		if errors.Is(err, repo.ErrStaleRefresh) {
			l.Warn("refresh_failed", "status", 403, "reason", "concurrent rotation")
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	l.Info("refresh_successful")
	return pair, nil
}

// Logout drops the stored hash of the admin named in the token, if the token
// is the current one. Unparseable tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if refreshToken == "" {
		return nil
	}

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret,
		tokens.WithClock(s.now), jwt.WithLeeway(s.RefreshTTL))
	if err != nil {
		l.Info("logout_ignored_token", "reason", err.Error())
		return nil
	}
	adminID, err := uuid.Parse(claims.AdminID)
	if err != nil {
		return nil
	}

	admin, err := s.Repo.FindAdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("find admin: %w", err)
	}
	if admin.RefreshTokenHash == nil || !hash.CheckToken(*admin.RefreshTokenHash, refreshToken) {
		l.Info("logout_ignored_token", "reason", "not the active refresh token", "admin_id", adminID.String())
		return nil
	}

	if _, err := s.Repo.ClearRefreshHashIf(ctx, admin.ID, *admin.RefreshTokenHash); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	s.publish(ctx, admin.ID.String(), "admin.logout", nil)
	l.Info("logout_successful", "admin_id", adminID.String())
	return nil
}

func (s *AuthService) Verify(ctx context.Context, accessToken string) (*tokens.AccessClaims, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}
	claims, err := tokens.AccessClaimsFromToken(accessToken, s.AccessSecret, tokens.WithClock(s.now))
	if err != nil {
		return nil, ClassifyAccessError(err)
	}
	return claims, nil
}

// ClassifyAccessError maps a parse failure onto the access-token sentinels.
func ClassifyAccessError(err error) error {
	switch {
	case errors.Is(err, tokens.ErrMissingSecret):
		return fmt.Errorf("%w: %v", ErrServerConfig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

// EnsureAdmin creates the bootstrap admin when no admin with that username
// exists. Empty credentials skip bootstrapping.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := &models.Admin{Username: username, PasswordHash: pwHash, Role: models.RoleAdmin}
	if err := s.Repo.CreateAdminIfNotExists(ctx, admin); err != nil {
		if errors.Is(err, repo.ErrAdminExists) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	logging.FromContext(ctx).Info("admin_bootstrapped", "username", username)
	return true, nil
}

// ChangePassword replaces the password and revokes the active refresh token.
func (s *AuthService) ChangePassword(ctx context.Context, adminID uuid.UUID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: new password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	admin, err := s.Repo.FindAdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find admin: %w", err)
	}
	if !hash.CheckPassword(admin.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Repo.UpdatePassword(ctx, adminID, pwHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.publish(ctx, adminID.String(), "admin.password_changed", nil)
	return nil
}
