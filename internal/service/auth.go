package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/stockpilot/stockpilot-go/internal/crypto"
	"github.com/stockpilot/stockpilot-go/internal/events"
	"github.com/stockpilot/stockpilot-go/internal/limiter"
	"github.com/stockpilot/stockpilot-go/internal/model"
	"github.com/stockpilot/stockpilot-go/internal/repository"
)

const tokenTypeBearer = "bearer"

var (
	ErrEmailTaken           = errors.New("email already in use")
	ErrAccountNotFound      = errors.New("account was not found")
	ErrIncorrectPassword    = errors.New("incorrect password")
	ErrRefreshTokenRequired = errors.New("refresh token required")
	ErrRefreshScope         = errors.New("invalid refresh token")
	ErrTooManyAttempts      = errors.New("too many failed login attempts, try again later")
)

// UserStore is the credential store used by AuthService.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateEmail(ctx context.Context, id int64, email string) error
}

// LoginThrottle limits repeated failed logins.
type LoginThrottle interface {
	Check(ctx context.Context, email, ip string) error
	Fail(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email string) error
}

// TokenTTL holds the validity of each token kind.
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
}

// AuthService handles registration, login and credential changes.
type AuthService struct {
	users     UserStore
	tokens    *crypto.TokenManager
	ttl       TokenTTL
	throttle  LoginThrottle
	publisher events.Publisher
	now       func() time.Time
}

// NewAuthService creates a new AuthService. throttle and publisher may be nil.
func NewAuthService(users UserStore, tokens *crypto.TokenManager, ttl TokenTTL, throttle LoginThrottle, publisher events.Publisher) *AuthService {
	if throttle == nil {
		throttle = (*limiter.LoginThrottle)(nil)
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		ttl:       ttl,
		throttle:  throttle,
		publisher: publisher,
		now:       time.Now,
	}
}

// Register creates a new account on the free plan.
func (s *AuthService) Register(ctx context.Context, req model.CreateUserRequest) (model.UserResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return model.UserResponse{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return model.UserResponse{}, err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return model.UserResponse{}, err
	}
	if exists {
		return model.UserResponse{}, ErrEmailTaken
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return model.UserResponse{}, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		PlanCode:     model.DefaultPlanCode,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.UserResponse{}, ErrEmailTaken
		}
		return model.UserResponse{}, err
	}

	publish(ctx, s.publisher, events.Event{
		Type:       events.TypeUserRegistered,
		UserID:     user.ID,
		OccurredAt: s.now().UTC(),
		Payload:    events.UserRegistered{Email: user.Email},
	})

	return user.ToResponse(), nil
}

// Login verifies credentials and returns an access and a refresh token.
// clientIP feeds the failed-login throttle and may be empty.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest, clientIP string) (model.TokenResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return model.TokenResponse{}, err
	}
	if req.Password == "" {
		return model.TokenResponse{}, invalid("password is required")
	}

	if err := s.throttle.Check(ctx, email, clientIP); err != nil {
		if errors.Is(err, limiter.ErrTooManyAttempts) {
			return model.TokenResponse{}, ErrTooManyAttempts
		}
		slog.Warn("login throttle unavailable", "error", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.recordFailure(ctx, email, clientIP)
			return model.TokenResponse{}, ErrAccountNotFound
		}
		return model.TokenResponse{}, err
	}

	if !crypto.VerifyPassword(req.Password, user.PasswordHash) {
		s.recordFailure(ctx, email, clientIP)
		return model.TokenResponse{}, ErrIncorrectPassword
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		slog.Warn("login throttle reset failed", "error", err)
	}

	if crypto.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, req.Password)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return model.TokenResponse{}, err
	}

	return s.issuePair(user.ID)
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenResponse, error) {
	if refreshToken == "" {
		return model.TokenResponse{}, ErrRefreshTokenRequired
	}

	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return model.TokenResponse{}, crypto.ErrInvalidToken
	}
	if claims.Scope != crypto.ScopeRefresh {
		return model.TokenResponse{}, ErrRefreshScope
	}
	if _, err := ParseSubject(claims.Subject); err != nil {
		return model.TokenResponse{}, crypto.ErrInvalidToken
	}

	access, err := s.tokens.Issue(claims.Subject, s.ttl.Access, "", nil)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
	}, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req model.ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return invalid("current and new password are required")
	}
	if req.CurrentPassword == req.NewPassword {
		return invalid("new password must be different from the current password")
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		return ErrIncorrectPassword
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if hash == user.PasswordHash {
		return invalid("new password must be different from the current password")
	}

	return s.users.UpdatePasswordHash(ctx, userID, hash)
}

// ChangeEmail re-points the account to a new, unused email address.
func (s *AuthService) ChangeEmail(ctx context.Context, userID int64, req model.ChangeEmailRequest) (model.UserResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return model.UserResponse{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserResponse{}, err
	}
	if user.Email == email {
		return model.UserResponse{}, invalid("new email is the same as the current email")
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return model.UserResponse{}, err
	}
	if exists {
		return model.UserResponse{}, ErrEmailTaken
	}

	if err := s.users.UpdateEmail(ctx, userID, email); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.UserResponse{}, ErrEmailTaken
		}
		return model.UserResponse{}, err
	}

	user.Email = email
	return user.ToResponse(), nil
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserResponse{}, err
	}
	return user.ToResponse(), nil
}

// ParseSubject converts a token subject back into a user ID.
func ParseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, crypto.ErrInvalidToken
	}
	return id, nil
}

func (s *AuthService) issuePair(userID int64) (model.TokenResponse, error) {
	sub := strconv.FormatInt(userID, 10)

	access, err := s.tokens.Issue(sub, s.ttl.Access, "", nil)
	if err != nil {
		return model.TokenResponse{}, err
	}
	refresh, err := s.tokens.Issue(sub, s.ttl.Refresh, crypto.ScopeRefresh, nil)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
	}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email, ip string) {
	if err := s.throttle.Fail(ctx, email, ip); err != nil {
		slog.Warn("login throttle record failed", "error", err)
	}
}

// upgradeHash re-hashes a legacy password. Failure leaves the old hash in place.
func (s *AuthService) upgradeHash(ctx context.Context, userID int64, password string) {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		slog.Warn("password rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		slog.Warn("storing upgraded password hash failed", "user_id", userID, "error", err)
		return
	}
	slog.Info("upgraded legacy password hash", "user_id", userID)
}

// publish is best effort; a broker outage never fails the request.
func publish(ctx context.Context, p events.Publisher, ev events.Event) {
	if err := p.Publish(ctx, ev); err != nil {
		slog.Warn("event publish failed", "type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}
