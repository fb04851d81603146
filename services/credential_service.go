package services

import (
	"chat-link/auth"
	"chat-link/domain"
	"chat-link/errors"
	"chat-link/repositories"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
)

type ICredentialService interface {
	SignUp(ctx context.Context, cmd SignUpCommand) (domain.User, error)
	LogIn(ctx context.Context, email, password string) (LoginResult, error)
	LogOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (string, error)
	Refresh(ctx context.Context, token string) (string, error)
	CreateUser(ctx context.Context, cmd SignUpCommand) (domain.User, error)
}

type SignUpCommand struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Picture  string `json:"picture"`
}

type LoginResult struct {
	User         domain.User `json:"user"`
	AccessToken  string      `json:"token"`
	RefreshToken string      `json:"reftoken"`
}

type CredentialService struct {
	log                 *slog.Logger
	userRepository      repositories.IUserRepository
	blacklistRepository repositories.IBlacklistRepository
	userIndex           repositories.IUserIndex
	hasher              auth.PasswordHasher
	issuer              *auth.TokenIssuer
}

func NewCredentialService(
	log *slog.Logger,
	userRepository repositories.IUserRepository,
	blacklistRepository repositories.IBlacklistRepository,
	userIndex repositories.IUserIndex,
	hasher auth.PasswordHasher,
	issuer *auth.TokenIssuer) ICredentialService {
	return &CredentialService{
		log:                 log,
		userRepository:      userRepository,
		blacklistRepository: blacklistRepository,
		userIndex:           userIndex,
		hasher:              hasher,
		issuer:              issuer,
	}
}

// SignUp rejects a taken email with ErrUserAlreadyExists, the existing user is left untouched.
func (s *CredentialService) SignUp(_ context.Context, cmd SignUpCommand) (domain.User, error) {
	// Validated before any expensive hashing
	err := auth.ValidateSignUp(auth.SignUpRequest{
		Name:     cmd.Name,
		Email:    cmd.Email,
		Password: cmd.Password,
		Picture:  cmd.Picture,
	})
	if err != nil {
		return domain.User{}, err
	}
	return s.create(cmd)
}

// CreateUser is the bare record creation behind POST /user: no format rules,
// but the password is still only ever stored hashed.
func (s *CredentialService) CreateUser(_ context.Context, cmd SignUpCommand) (domain.User, error) {
	return s.create(cmd)
}

func (s *CredentialService) create(cmd SignUpCommand) (domain.User, error) {
	hashedPassword, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(repositories.NewUser{
		Name:         cmd.Name,
		Email:        cmd.Email,
		PasswordHash: hashedPassword,
		Picture:      cmd.Picture,
	})
	if err != nil {
		return domain.User{}, err
	}

	// The index is derived data rebuilt at startup, a miss only hides the user from search
	if err := s.userIndex.Index(user); err != nil {
		s.log.Error("Failed to index user", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// LogIn never tells whether the email or the password was wrong.
func (s *CredentialService) LogIn(_ context.Context, email, password string) (LoginResult, error) {
	if err := auth.ValidateLogin(auth.LoginRequest{Email: email, Password: password}); err != nil {
		return LoginResult{}, errors.ErrInvalidCredentials
	}

	credentials, err := s.userRepository.GetUserByEmail(email)
	if goerrors.Is(err, errors.ErrUserNotFound) {
		return LoginResult{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	match, err := auth.ComparePassword(password, credentials.PasswordHash)
	if err != nil || !match {
		return LoginResult{}, errors.ErrInvalidCredentials
	}

	accessToken, err := s.issuer.IssueAccess(credentials.User.ID)
	if err != nil {
		return LoginResult{}, err
	}
	refreshToken, err := s.issuer.IssueRefresh(credentials.User.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: credentials.User, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// LogOut revokes the token until its own expiry. Revoking twice is an error, not a no-op.
func (s *CredentialService) LogOut(_ context.Context, token string) error {
	if token == "" {
		return errors.ErrTokenMissing
	}
	if err := s.blacklistRepository.Revoke(token, auth.ExpiryOf(token)); err != nil {
		return err
	}
	s.log.Debug("Token revoked")
	return nil
}

// Authenticate resolves the user behind an access token.
// Revoked and orphan tokens are forbidden, expired and invalid ones unauthorized.
func (s *CredentialService) Authenticate(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.ErrTokenMissing
	}

	revoked, err := s.blacklistRepository.IsRevoked(token)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", errors.ErrTokenRevoked
	}

	claims, err := s.issuer.VerifyAccess(token)
	if err != nil {
		return "", err
	}

	if _, err := s.userRepository.GetUserByID(claims.UserID); err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// Refresh mints an access token with the shorter refreshed lifetime.
// Every failure collapses into ErrTokenInvalid: the client has to log in again.
func (s *CredentialService) Refresh(_ context.Context, token string) (string, error) {
	userID, err := s.refreshOwner(token)
	if err != nil {
		s.log.Debug("Refresh rejected", "error", err)
		return "", fmt.Errorf("%w: %v", errors.ErrTokenInvalid, err)
	}
	return s.issuer.IssueRefreshedAccess(userID)
}

func (s *CredentialService) refreshOwner(token string) (string, error) {
	if token == "" {
		return "", errors.ErrTokenMissing
	}
	revoked, err := s.blacklistRepository.IsRevoked(token)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", errors.ErrTokenRevoked
	}
	claims, err := s.issuer.VerifyRefresh(token)
	if err != nil {
		return "", err
	}
	if _, err := s.userRepository.GetUserByID(claims.UserID); err != nil {
		return "", err
	}
	return claims.UserID, nil
}
