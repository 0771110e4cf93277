package auth

import (
	"context"
	"errors"
	"time"

	"alumnet/internal/access"
	apperr "alumnet/internal/errors"
	"alumnet/internal/logger"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrAccountSuspended   = apperr.Unauthorized("account is suspended")
)

type Service interface {
	Login(ctx context.Context, email, password string) (*models.User, string, string, error)
	RefreshTokens(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	// Authenticate resolves an access token into the calling actor.
	Authenticate(ctx context.Context, accessToken string) (access.Actor, *models.UserClaims, error)
}

type service struct {
	userRepo repositories.UserRepository
	tokens   *utils.TokenIssuer
	log      *logger.Logger
}

func NewService(userRepo repositories.UserRepository, tokens *utils.TokenIssuer, log *logger.Logger) Service {
	if userRepo == nil || tokens == nil {
		panic("auth service requires a user repository and a token issuer")
	}
	return &service{
		userRepo: userRepo,
		tokens:   tokens,
		log:      logger.OrNop(log).With("component", "auth"),
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, string, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			s.log.Info("login failed: unknown email")
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.log.Info("login failed: wrong password", "user_id", user.ID)
		return nil, "", "", ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, "", "", ErrAccountSuspended
	}

	accessToken, refreshToken, err := s.tokens.GenerateTokens(user)
	if err != nil {
		s.log.Error("error generating tokens", "user_id", user.ID, "error", err)
		return nil, "", "", errors.New("error generating tokens")
	}
	if err := s.userRepo.TouchLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to stamp last login", "user_id", user.ID, "error", err)
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	return user, accessToken, refreshToken, nil
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	claims, err := s.tokens.ParseToken(refreshToken, utils.AudienceRefresh)
	if err != nil {
		return "", "", ErrSessionExpired
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return "", "", err
	}
	return s.tokens.GenerateTokens(user)
}

// Logout bumps the token version, so every token issued so far stops working.
func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.IncrementTokenVersion(ctx, userID)
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (access.Actor, *models.UserClaims, error) {
	claims, err := s.tokens.ParseToken(accessToken, utils.AudienceAccess)
	if err != nil {
		return access.Actor{}, nil, ErrSessionExpired
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return access.Actor{}, nil, err
	}
	actor := access.Actor{
		UserID:      user.ID,
		Role:        user.Role,
		Permissions: models.GetDefaultPermissions(user.Role),
		Active:      user.IsActive(),
	}
	return actor, claims, nil
}

// current loads the token's user and checks the token is still current.
func (s *service) current(ctx context.Context, claims *models.UserClaims) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	if user.TokenVersion != claims.TokenVersion {
		s.log.Debug("token version mismatch", "user_id", user.ID, "token", claims.TokenVersion, "current", user.TokenVersion)
		return nil, ErrSessionExpired
	}
	return user, nil
}
