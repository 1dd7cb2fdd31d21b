package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/email"
	"github.com/brekfst/mcdirectory/repository"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost       = 12
	tokenIssuer      = "mcdirectory"
	resetSendTimeout = time.Minute
)

// ErrTokenExpired is returned by ValidateToken for a well-formed token past
// its expiry, so the middleware can tell the client to log in again.
var ErrTokenExpired = fmt.Errorf("%w: Token expired", pkg.ErrUnauthorized)

type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	ValidateToken(tokenString string) (*models.TokenClaims, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error)
	// ForgotPassword mails a reset link when the email belongs to an
	// account. It never reveals whether it does. A positive return value is
	// the remaining cooldown in seconds; no mail was sent.
	ForgotPassword(ctx context.Context, emailAddr string) (int, error)
	// ResetPassword consumes a reset or invitation token.
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type authService struct {
	db         *database.DB
	userRepo   repository.UserRepository
	tokenRepo  repository.PasswordResetRepository
	serverRepo repository.ServerRepository
	claimRepo  repository.ClaimRepository
	mailer     email.EmailSender
	jwtSecret  []byte
	tokenTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService wires authentication. mailer may be nil when outgoing mail
// is not configured; reset requests are then logged and dropped.
func NewAuthService(
	db *database.DB,
	userRepo repository.UserRepository,
	tokenRepo repository.PasswordResetRepository,
	serverRepo repository.ServerRepository,
	claimRepo repository.ClaimRepository,
	mailer email.EmailSender,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *zap.Logger,
) AuthService {
	return &authService{
		db:         db,
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		serverRepo: serverRepo,
		claimRepo:  claimRepo,
		mailer:     mailer,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTL,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: Invalid email or password", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	// Invited owners have no password until they use their token; bcrypt
	// rejects the marker anyway, but skip the work.
	if !user.HasPassword() {
		return nil, fmt.Errorf("%w: Invalid email or password", pkg.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: Invalid email or password", pkg.ErrUnauthorized)
	}

	return s.issue(user)
}

func (s *authService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: Invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: Invalid token", pkg.ErrUnauthorized)
	}
	return claims, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *authService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	owned, err := s.serverRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending, err := s.claimRepo.ListByEmail(ctx, user.Email, models.ClaimPending)
	if err != nil {
		return nil, err
	}

	return &models.Profile{User: user, OwnedServers: owned, PendingClaims: pending}, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.NewPassword != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.CurrentPassword)); err != nil {
			return nil, fmt.Errorf("%w: Current password is incorrect", pkg.ErrUnauthorized)
		}
	}

	changed := false
	if req.Username != nil && *req.Username != user.Username {
		user.Username = *req.Username
		changed = true
	}
	if req.Email != nil && *req.Email != user.Email {
		user.Email = *req.Email
		changed = true
	}

	// Profile and password change together or not at all.
	err = s.db.WithTx(ctx, func(q database.TxQuerier) error {
		txUserRepo := repository.NewSQLiteUserRepo(q)

		if changed {
			if err := txUserRepo.UpdateProfile(ctx, user); err != nil {
				return err
			}
		}
		if req.NewPassword != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), bcryptCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			if err := txUserRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
				return err
			}
			user.PasswordHash = string(hash)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *authService) ForgotPassword(ctx context.Context, emailAddr string) (int, error) {
	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	now := s.now().UTC()
	latest, err := s.tokenRepo.GetLatestByUserID(ctx, user.ID)
	switch {
	case errors.Is(err, pkg.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		if wait := latest.CreatedAt.Add(resetRequestCooldown).Sub(now); wait > 0 {
			return int(math.Ceil(wait.Seconds())), nil
		}
	}

	token, err := issueResetToken(ctx, s.tokenRepo, user.ID, passwordResetLifetime, now)
	if err != nil {
		return 0, err
	}

	if s.mailer == nil {
		s.logger.Warn("email not configured, password reset not sent", zap.String("user_id", user.ID))
		return 0, nil
	}

	// Sending in the background keeps the response time independent of
	// whether the account exists.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetSendTimeout)
	go func() {
		defer cancel()
		if err := s.mailer.SendPasswordReset(sendCtx, user.Email, token); err != nil {
			s.logger.Error("failed to send password reset email",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}()
	return 0, nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	req := models.ResetPasswordRequest{Token: token, NewPassword: newPassword}
	if err := req.Validate(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithTx(ctx, func(q database.TxQuerier) error {
		txTokenRepo := repository.NewSQLiteResetTokenRepo(q)
		txUserRepo := repository.NewSQLiteUserRepo(q)

		record, err := txTokenRepo.GetByTokenHash(ctx, hashResetToken(token))
		if err != nil {
			if errors.Is(err, pkg.ErrNotFound) {
				return fmt.Errorf("%w: Invalid or expired reset token", pkg.ErrBadRequest)
			}
			return err
		}
		if !s.now().Before(record.ExpiresAt) {
			return fmt.Errorf("%w: Invalid or expired reset token", pkg.ErrBadRequest)
		}

		if err := txUserRepo.UpdatePassword(ctx, record.UserID, string(hash)); err != nil {
			return err
		}
		return txTokenRepo.DeleteByUserID(ctx, record.UserID)
	})
}

func (s *authService) issue(user *models.User) (*models.AuthResponse, error) {
	now := s.now()
	claims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.AuthResponse{Token: signed, User: user}, nil
}
