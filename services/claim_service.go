package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/cache"
	"github.com/brekfst/mcdirectory/pkg/email"
	"github.com/brekfst/mcdirectory/repository"
	"go.uber.org/zap"
)

const invitationSendTimeout = time.Minute

// ClaimService runs the ownership claim workflow: a public submission, then
// an admin decision. Approval is all-or-nothing.
type ClaimService interface {
	Submit(ctx context.Context, serverID int64, req *models.CreateClaimRequest) (*models.Claim, error)
	// Approve marks the claim approved, finds or creates the user by email,
	// records ownership and, for a new user, issues an invitation token. All
	// of it commits together or not at all.
	Approve(ctx context.Context, claimID int64) (*models.ClaimApproval, error)
	Reject(ctx context.Context, claimID int64, req *models.RejectClaimRequest) (*models.Claim, error)
	HasPending(ctx context.Context, serverID int64, email string) (bool, error)
	ListPending(ctx context.Context) ([]models.Claim, error)
	History(ctx context.Context, serverID int64) ([]models.Claim, error)
	// UserClaims lists claims filed under email. An empty status lists all.
	UserClaims(ctx context.Context, email string, status models.ClaimStatus) ([]models.Claim, error)
}

type claimService struct {
	db         *database.DB
	claimRepo  repository.ClaimRepository
	serverRepo repository.ServerRepository
	ownerRepo  repository.OwnerRepository
	mailer     email.EmailSender
	policy     cachePolicy
	logger     *zap.Logger
	now        func() time.Time
}

// NewClaimService wires the claim workflow. mailer may be nil, in which case
// invitations are skipped with a warning and the token stays usable.
func NewClaimService(
	db *database.DB,
	claimRepo repository.ClaimRepository,
	serverRepo repository.ServerRepository,
	ownerRepo repository.OwnerRepository,
	mailer email.EmailSender,
	c *cache.Cache,
	logger *zap.Logger,
) ClaimService {
	return &claimService{
		db:         db,
		claimRepo:  claimRepo,
		serverRepo: serverRepo,
		ownerRepo:  ownerRepo,
		mailer:     mailer,
		policy:     cachePolicy{cache: c},
		logger:     logger,
		now:        time.Now,
	}
}

func (s *claimService) Submit(ctx context.Context, serverID int64, req *models.CreateClaimRequest) (*models.Claim, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	// Pending submissions are not public, so they cannot be claimed either.
	if !server.IsActive {
		return nil, fmt.Errorf("%w: Server not found", pkg.ErrNotFound)
	}

	owned, err := s.ownerRepo.HasOwner(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, fmt.Errorf("%w: Server already has an owner", pkg.ErrAlreadyExists)
	}

	pending, err := s.claimRepo.HasPending(ctx, serverID, req.Email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("%w: A pending claim already exists for this server", pkg.ErrAlreadyExists)
	}

	claim := &models.Claim{
		ServerID: serverID,
		Username: req.Username,
		Email:    req.Email,
		Status:   models.ClaimPending,
	}
	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, err
	}

	s.logger.Info("claim submitted",
		zap.Int64("claim_id", claim.ID),
		zap.Int64("server_id", serverID))
	return claim, nil
}

func (s *claimService) Approve(ctx context.Context, claimID int64) (*models.ClaimApproval, error) {
	now := s.now().UTC()
	result := &models.ClaimApproval{}
	var invitation string

	err := s.db.WithTx(ctx, func(q database.TxQuerier) error {
		txClaimRepo := repository.NewSQLiteClaimRepo(q)
		txUserRepo := repository.NewSQLiteUserRepo(q)
		txOwnerRepo := repository.NewSQLiteOwnerRepo(q)
		txTokenRepo := repository.NewSQLiteResetTokenRepo(q)

		claim, err := txClaimRepo.GetByID(ctx, claimID)
		if err != nil {
			return err
		}

		if err := txClaimRepo.Resolve(ctx, claimID, models.ClaimApproved, nil, now); err != nil {
			return err
		}
		claim.Status = models.ClaimApproved
		claim.ResolvedAt = &now
		result.Claim = claim

		user, err := txUserRepo.GetByEmail(ctx, claim.Email)
		switch {
		case errors.Is(err, pkg.ErrNotFound):
			user = &models.User{
				Username:     claim.Username,
				Email:        claim.Email,
				PasswordHash: models.UnusablePasswordHash,
				Role:         models.RoleUser,
			}
			if err := txUserRepo.Create(ctx, user); err != nil {
				return err
			}
			result.UserCreated = true
		case err != nil:
			return err
		}
		result.User = user

		if err := txOwnerRepo.Create(ctx, claim.ServerID, user.ID); err != nil {
			return err
		}

		if result.UserCreated {
			invitation, err = issueResetToken(ctx, txTokenRepo, user.ID, invitationLifetime, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.policy.ownerChanged(ctx, result.Claim.ServerID)
	s.logger.Info("claim approved",
		zap.Int64("claim_id", claimID),
		zap.Int64("server_id", result.Claim.ServerID),
		zap.String("user_id", result.User.ID),
		zap.Bool("user_created", result.UserCreated))

	if invitation != "" {
		s.sendInvitation(ctx, result, invitation)
	}
	return result, nil
}

// sendInvitation mails the new owner in the background. The approval is
// already committed, so a failed send is logged and left for the owner to
// recover through the forgot-password flow.
func (s *claimService) sendInvitation(ctx context.Context, approval *models.ClaimApproval, token string) {
	if s.mailer == nil {
		s.logger.Warn("email not configured, claim invitation not sent",
			zap.Int64("claim_id", approval.Claim.ID),
			zap.String("email", approval.User.Email))
		return
	}

	serverName := approval.Claim.ServerName
	if serverName == "" {
		if server, err := s.serverRepo.GetByID(ctx, approval.Claim.ServerID); err == nil {
			serverName = server.Name
		}
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invitationSendTimeout)
	go func() {
		defer cancel()
		err := s.mailer.SendClaimInvitation(sendCtx, approval.User.Email, approval.User.Username, serverName, token)
		if err != nil {
			s.logger.Error("failed to send claim invitation",
				zap.Int64("claim_id", approval.Claim.ID),
				zap.String("email", approval.User.Email),
				zap.Error(err))
		}
	}()
}

func (s *claimService) Reject(ctx context.Context, claimID int64, req *models.RejectClaimRequest) (*models.Claim, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.claimRepo.Resolve(ctx, claimID, models.ClaimRejected, req.Reason, now); err != nil {
		return nil, err
	}
	claim.Status = models.ClaimRejected
	claim.Reason = req.Reason
	claim.ResolvedAt = &now

	s.logger.Info("claim rejected", zap.Int64("claim_id", claimID))
	return claim, nil
}

func (s *claimService) HasPending(ctx context.Context, serverID int64, emailAddr string) (bool, error) {
	return s.claimRepo.HasPending(ctx, serverID, emailAddr)
}

func (s *claimService) ListPending(ctx context.Context) ([]models.Claim, error) {
	return s.claimRepo.ListPending(ctx)
}

func (s *claimService) History(ctx context.Context, serverID int64) ([]models.Claim, error) {
	if _, err := s.serverRepo.GetByID(ctx, serverID); err != nil {
		return nil, err
	}
	return s.claimRepo.ListByServer(ctx, serverID)
}

func (s *claimService) UserClaims(ctx context.Context, emailAddr string, status models.ClaimStatus) ([]models.Claim, error) {
	return s.claimRepo.ListByEmail(ctx, emailAddr, status)
}
