// Package auth identifies the caller and manages accounts and sessions.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/01moynul/ai-humanizer/internal/logger"
	"github.com/01moynul/ai-humanizer/internal/metrics"
	"github.com/01moynul/ai-humanizer/internal/models"
	"github.com/go-sql-driver/mysql"
)

var (
	ErrInvalidEmail       = errors.New("a valid email address is required")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrUserNotFound       = errors.New("user not found")
)

const minPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Provider is the session collaborator handlers depend on.
type Provider interface {
	CurrentUser(ctx context.Context, token string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*models.User, error)
	SignOut(ctx context.Context, token string) error
}

// Session is a signed-in user and their bearer token.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// DenyList remembers revoked token ids.
type DenyList interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// BonusGranter credits new accounts.
type BonusGranter interface {
	Grant(ctx context.Context, userID, amount int64, txType, note string) (int64, error)
}

// Service implements Provider on MySQL, bcrypt and JWT.
type Service struct {
	db       *sql.DB
	tokens   *TokenManager
	denyList DenyList
	bonus    BonusGranter
	bonusAmt int64
	log      logger.Logger
	now      func() time.Time
}

// NewService creates the auth service. denyList and bonus may be nil.
func NewService(db *sql.DB, tokens *TokenManager, denyList DenyList, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		db:       db,
		tokens:   tokens,
		denyList: denyList,
		log:      log,
		now:      time.Now,
	}
}

// WithSignupBonus grants amount words to every new account.
func (s *Service) WithSignupBonus(g BonusGranter, amount int64) *Service {
	s.bonus = g
	s.bonusAmt = amount
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSignUp checks the sign-up form without touching the database.
func ValidateSignUp(email, password string) error {
	if !emailRegex.MatchString(normalizeEmail(email)) {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	// 1. Validate
	if err := ValidateSignUp(email, password); err != nil {
		metrics.AuthAttempts.WithLabelValues("signup", "invalid").Inc()
		return nil, err
	}
	email = normalizeEmail(email)

	// 2. Hash
	var pw models.Password
	if err := pw.Set(password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 3. Insert
	now := s.now()
	user := &models.User{
		Email:        email,
		PasswordHash: pw.Hash,
		Role:         models.RoleUser,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.Role, user.Status, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1062 {
			metrics.AuthAttempts.WithLabelValues("signup", "duplicate").Inc()
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new user id: %w", err)
	}

	// 4. Welcome words
	if s.bonus != nil && s.bonusAmt > 0 {
		if _, err := s.bonus.Grant(ctx, user.ID, s.bonusAmt, models.CreditTxSignupBonus, "Welcome bonus"); err != nil {
			s.log.Warn("Failed to grant signup bonus", map[string]interface{}{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
	}

	metrics.AuthAttempts.WithLabelValues("signup", "ok").Inc()
	s.log.Info("User signed up", map[string]interface{}{"user_id": user.ID})
	return user, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.userBy(ctx, "email", normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		metrics.AuthAttempts.WithLabelValues("signin", "invalid").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	pw := models.Password{Hash: user.PasswordHash}
	ok, err := pw.Matches(password)
	if err != nil || !ok {
		metrics.AuthAttempts.WithLabelValues("signin", "invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	if user.Status == models.StatusSuspended {
		metrics.AuthAttempts.WithLabelValues("signin", "suspended").Inc()
		return nil, ErrAccountSuspended
	}

	token, claims, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues("signin", "ok").Inc()
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt, User: user}, nil
}

func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	if s.denyList != nil {
		// Deny-list errors never reject the token.
		revoked, err := s.denyList.Exists(ctx, revokedKey(claims.TokenID))
		if err != nil {
			metrics.AuthAttempts.WithLabelValues("session", "deny_list_unavailable").Inc()
			s.log.Warn("Session deny list unavailable, accepting token", map[string]interface{}{
				"user_id": claims.UserID,
				"error":   err.Error(),
			})
		} else if revoked {
			return nil, fmt.Errorf("%w: session signed out", ErrInvalidToken)
		}
	}

	user, err := s.UserByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if user.Status == models.StatusSuspended {
		return nil, ErrAccountSuspended
	}
	return user, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return err
	}
	if s.denyList == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.denyList.Set(ctx, revokedKey(claims.TokenID), claims.UserID, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// UserByID loads a user.
func (s *Service) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.userBy(ctx, "id", id)
}

// userBy loads a user by a trusted column name.
func (s *Service) userBy(ctx context.Context, column string, value interface{}) (*models.User, error) {
	query := "SELECT id, email, password_hash, role, status, created_at, updated_at FROM users WHERE " + column + " = ?"

	var u models.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

func revokedKey(tokenID string) string {
	return "session:revoked:" + tokenID
}
