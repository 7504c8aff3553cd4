package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vytor/estimatic/internal/auth"
	"github.com/vytor/estimatic/internal/errors"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// IdentityService resolves request credentials to users, provisions device
// users, fronts signup/login, and folds anonymous history into accounts.
type IdentityService interface {
	GetOrCreateDeviceUser(ctx context.Context, deviceID string) (*models.User, error)
	ResolveToken(ctx context.Context, token string) (*models.User, error)
	ResolveDevice(ctx context.Context, deviceID string) (*models.User, error)
	Signup(ctx context.Context, email, password, deviceID string) (*AuthResult, error)
	Login(ctx context.Context, email, password, deviceID string) (*AuthResult, error)
	ClaimUsername(ctx context.Context, userID, username string) (*models.User, error)
}

type identityService struct {
	userRepo  repository.UserRepository
	validator auth.TokenValidator
	signer    *auth.Signer
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(userRepo repository.UserRepository, validator auth.TokenValidator, signer *auth.Signer) IdentityService {
	return &identityService{userRepo: userRepo, validator: validator, signer: signer}
}

// GetOrCreateDeviceUser is the one place a user is created implicitly,
// called by the device initialization endpoint. Idempotent per device id.
func (s *identityService) GetOrCreateDeviceUser(ctx context.Context, deviceID string) (*models.User, error) {
	log := logger.FromContext(ctx)

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, errors.NewValidationError("device_id", "must not be empty")
	}

	user, err := s.userRepo.CreateDeviceUser(ctx, auth.NewID(), deviceID)
	if err != nil {
		log.Error("failed to provision device user: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if user.Retired() {
		// The device was re-linked during a merge; follow it to the account.
		return s.followMerge(ctx, user)
	}
	log.Debug("device user resolved: id=%s", user.ID)
	return user, nil
}

// ResolveToken validates a bearer credential and loads its user. A rejection
// is surfaced as AuthRejected, never silently downgraded to anonymous.
func (s *identityService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	log := logger.FromContext(ctx)

	identity, err := s.validator.Validate(token)
	if err != nil {
		log.Warn("bearer token rejected: %v", err)
		return nil, errors.NewAuthRejectedError()
	}
	user, err := s.userRepo.Get(ctx, identity.UserID)
	if err != nil {
		log.Error("failed to load token user: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if user == nil || user.Retired() {
		log.Warn("token references missing or retired user: %s", identity.UserID)
		return nil, errors.NewAuthRejectedError()
	}
	return user, nil
}

// ResolveDevice looks a device user up without creating one.
func (s *identityService) ResolveDevice(ctx context.Context, deviceID string) (*models.User, error) {
	log := logger.FromContext(ctx)

	user, err := s.userRepo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		log.Error("failed to look up device user: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if user != nil && user.Retired() {
		return s.followMerge(ctx, user)
	}
	return user, nil
}

func (s *identityService) Signup(ctx context.Context, email, password, deviceID string) (*AuthResult, error) {
	log := logger.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Error("failed to check email: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if existing != nil {
		return nil, errors.NewConflictError("email already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	// An anonymous device user signing up is promoted in place: the
	// anonymous -> authenticated transition keeps the history on the same
	// record. A device already tied to an account (promoted earlier, or
	// re-linked by a merge) gets a brand-new user instead.
	var user *models.User
	if deviceID != "" {
		user, err = s.userRepo.GetByDeviceID(ctx, deviceID)
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
	}
	if user != nil && !user.Retired() && user.Kind == models.UserKindAnonymous {
		if err := s.userRepo.Promote(ctx, user.ID, email, hash); err != nil {
			if err == repository.ErrEmailTaken {
				return nil, errors.NewConflictError("email already registered", nil)
			}
			log.Error("failed to promote device user: %v", err)
			return nil, errors.NewInternalError(err)
		}
		user, err = s.userRepo.Get(ctx, user.ID)
		if err != nil || user == nil {
			return nil, errors.NewInternalError(err)
		}
		log.Info("device user promoted on signup: id=%s", user.ID)
	} else {
		user = &models.User{
			ID:           auth.NewID(),
			Kind:         models.UserKindAuthenticated,
			Email:        &email,
			PasswordHash: hash,
			CreatedAt:    time.Now(),
		}
		if err := s.userRepo.CreateAuthenticated(ctx, user); err != nil {
			if err == repository.ErrEmailTaken {
				return nil, errors.NewConflictError("email already registered", nil)
			}
			log.Error("failed to create user: %v", err)
			return nil, errors.NewInternalError(err)
		}
		log.Info("user signed up: id=%s", user.ID)
	}

	return s.issueToken(user)
}

func (s *identityService) Login(ctx context.Context, email, password, deviceID string) (*AuthResult, error) {
	log := logger.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Error("failed to look up email: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if user == nil || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, errors.NewAuthRejectedError()
	}

	// A device that accumulated anonymous history while logged out is folded
	// into the account now, atomically.
	if deviceID != "" {
		deviceUser, err := s.userRepo.GetByDeviceID(ctx, deviceID)
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
		if deviceUser != nil && deviceUser.ID != user.ID && !deviceUser.Retired() && deviceUser.Kind == models.UserKindAnonymous {
			merged, err := s.userRepo.Merge(ctx, deviceUser.ID, user.ID)
			if err != nil {
				if err == repository.ErrMergeConflict {
					return nil, errors.NewConflictError("device history belongs to another account", nil)
				}
				log.Error("merge failed: %v", err)
				return nil, errors.NewMergeInconsistencyError(err)
			}
			user = merged
			log.Info("anonymous history merged on login: source=%s, target=%s", deviceUser.ID, user.ID)
		}
	}

	log.Info("user logged in: id=%s", user.ID)
	return s.issueToken(user)
}

func (s *identityService) ClaimUsername(ctx context.Context, userID, username string) (*models.User, error) {
	log := logger.FromContext(ctx)

	username = strings.TrimSpace(username)
	if !usernameRe.MatchString(username) {
		return nil, errors.NewValidationError("username", "must be 3-20 characters of letters, digits or underscore")
	}

	if err := s.userRepo.ClaimUsername(ctx, userID, username); err != nil {
		if err == repository.ErrUsernameTaken {
			suggestions, sErr := s.usernameSuggestions(ctx, username)
			if sErr != nil {
				log.Warn("failed to build username suggestions: %v", sErr)
			}
			return nil, errors.NewConflictError("username already taken", map[string]any{
				"suggestions": suggestions,
			})
		}
		log.Error("failed to claim username: %v", err)
		return nil, errors.NewInternalError(err)
	}

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil || user == nil {
		return nil, errors.NewInternalError(err)
	}
	log.Info("username claimed: id=%s, username=%s", userID, username)
	return user, nil
}

// usernameSuggestions returns up to three free alternatives, derived
// deterministically from the requested name.
func (s *identityService) usernameSuggestions(ctx context.Context, base string) ([]string, error) {
	var suggestions []string
	for n := 1; n <= 99 && len(suggestions) < 3; n++ {
		candidate := fmt.Sprintf("%s%d", base, n)
		if len(candidate) > 20 {
			candidate = fmt.Sprintf("%s%d", base[:20-len(fmt.Sprint(n))], n)
		}
		existing, err := s.userRepo.GetByUsername(ctx, candidate)
		if err != nil {
			return suggestions, err
		}
		if existing == nil {
			suggestions = append(suggestions, candidate)
		}
	}
	return suggestions, nil
}

func (s *identityService) issueToken(user *models.User) (*AuthResult, error) {
	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	token, err := s.signer.Sign(user.ID, email)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// followMerge resolves a retired record to the account that absorbed it.
func (s *identityService) followMerge(ctx context.Context, retired *models.User) (*models.User, error) {
	target, err := s.userRepo.Get(ctx, *retired.MergedInto)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if target == nil {
		return nil, errors.NewInternalError(fmt.Errorf("merge target missing for retired user %s", retired.ID))
	}
	return target, nil
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return errors.NewValidationError("email", "must be a valid email address")
	}
	if len(password) < 8 {
		return errors.NewValidationError("password", "must be at least 8 characters")
	}
	return nil
}
