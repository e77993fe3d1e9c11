package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/group_buy/internal/events"
	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/Skotchmaster/group_buy/internal/querycache"
	"github.com/Skotchmaster/group_buy/internal/repo"
	"github.com/Skotchmaster/group_buy/internal/session"
	pkg_hash "github.com/Skotchmaster/group_buy/pkg/hash"
	jwthelp "github.com/Skotchmaster/group_buy/pkg/jwt"
	"github.com/Skotchmaster/group_buy/pkg/logging"
	"github.com/Skotchmaster/group_buy/pkg/tokens"
	"github.com/google/uuid"
)

type AuthService struct {
	*Deps
	Profiles      *ProfileService
	Broker        *session.Broker
	Tracker       *session.Tracker
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type SignUpInput struct {
	Email    string
	Password string
	Username string
	FullName *string
	Phone    *string
}

type AuthResult struct {
	User    *models.User
	Profile *models.Profile
	tokens.Pair
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*tokens.Pair, error) {
	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	access, err := tokens.SignAccessToken(user.ID.String(), user.Email, accessExp, s.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	jti := jwthelp.NewJTI()
	refresh, err := tokens.SignRefreshToken(user.ID.String(), jti, refreshExp, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.Repo.AddRefreshToken(ctx, &models.RefreshToken{
		JTI:       jti,
		Token:     jwthelp.Sha256Hex(refresh),
		UserID:    user.ID,
		ExpiresAt: refreshExp.Unix(),
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &tokens.Pair{AccessToken: access, RefreshToken: refresh, AccessExp: accessExp, RefreshExp: refreshExp}, nil
}

func (s *AuthService) publish(ctx context.Context, ev session.Event, user *models.User, pair *tokens.Pair) {
	if s.Broker == nil {
		return
	}
	ch := session.Change{Event: ev, UserID: user.ID}
	if ev != session.SignedOut {
		ch.Session = &session.Session{UserID: user.ID, Email: user.Email}
		if pair != nil {
			ch.Session.AccessExpiresAt = pair.AccessExp
		}
	}
	s.Broker.Publish(ctx, ch)
}

// SignUp creates the credentials and the profile together and signs the user in.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validatePhone(in.Phone); err != nil {
		return nil, err
	}

	available, err := s.Profiles.IsUsernameAvailable(ctx, in.Username, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("username %q is taken: %w", in.Username, ErrConflict)
	}

	pwHash, err := pkg_hash.HashPassword(in.Password)
	if err != nil {
		l.Error("signup_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{Email: in.Email, PasswordHash: pwHash}
	profile := &models.Profile{
		Username: in.Username,
		FullName: emptyToNil(in.FullName),
		Phone:    emptyToNil(in.Phone),
	}
	if err := s.Repo.CreateUserWithProfile(ctx, user, profile); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, fmt.Errorf("email or username already registered: %w", ErrConflict)
		}
		l.Error("signup_error", "error", err)
		return nil, err
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		l.Error("signup_error", "error", err)
		return nil, err
	}

	s.invalidate(querycache.TagProfile, querycache.ProfileTag(user.ID))
	s.publish(ctx, session.SignedIn, user, pair)
	events.Emit(ctx, s.Events, events.TopicUser, user.ID.String(), events.UserEvent{
		Type: events.UserSignedUp, UserID: user.ID, Email: user.Email, Username: profile.Username,
	})
	l.Info("signup_success", "user_id", user.ID)
	return &AuthResult{User: user, Profile: profile, Pair: *pair}, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.signin")

	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", ErrInvalidCredentials)
	}

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		l.Error("signin_error", "error", err)
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("signin_failed", "reason", "wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		l.Error("signin_error", "error", err)
		return nil, err
	}

	profile, err := s.Profiles.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, session.SignedIn, user, pair)
	events.Emit(ctx, s.Events, events.TopicUser, user.ID.String(), events.UserEvent{
		Type: events.UserSignedIn, UserID: user.ID, Email: user.Email,
	})
	return &AuthResult{User: user, Profile: profile, Pair: *pair}, nil
}

// SignOut revokes the refresh token. An empty token is a no-op.
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.Repo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil
	}
	user := &models.User{ID: userID}
	s.publish(ctx, session.SignedOut, user, nil)
	events.Emit(ctx, s.Events, events.TopicUser, userID.String(), events.UserEvent{
		Type: events.UserSignedOut, UserID: userID,
	})
	return nil
}

// Refresh rotates the refresh token: the presented one is revoked and a new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token missing: %w", ErrUnauthorized)
	}
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh subject: %w", ErrUnauthorized)
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("user is gone: %w", ErrUnauthorized)
		}
		return nil, err
	}

	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)
	access, err := tokens.SignAccessToken(user.ID.String(), user.Email, accessExp, s.JWTSecret)
	if err != nil {
		return nil, err
	}
	jti := jwthelp.NewJTI()
	refresh, err := tokens.SignRefreshToken(user.ID.String(), jti, refreshExp, s.RefreshSecret)
	if err != nil {
		return nil, err
	}

	err = s.Repo.RotateRefreshToken(ctx, claims.ID, refreshToken, &models.RefreshToken{
		JTI:       jti,
		Token:     jwthelp.Sha256Hex(refresh),
		UserID:    user.ID,
		ExpiresAt: refreshExp.Unix(),
	})
	if err != nil {
		if repo.IsNotFound(err) || errors.Is(err, repo.ErrTokenExpiredOrRevoked) {
			return nil, fmt.Errorf("refresh token rejected: %w", ErrUnauthorized)
		}
		return nil, err
	}

	pair := tokens.Pair{AccessToken: access, RefreshToken: refresh, AccessExp: accessExp, RefreshExp: refreshExp}
	s.publish(ctx, session.TokenRefreshed, user, &pair)
	return &AuthResult{User: user, Pair: pair}, nil
}

// RefreshTokens lets the auth middleware renew an expired access token in-process.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	res, err := s.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &res.Pair, nil
}

// UpdatePassword replaces the password hash and revokes every refresh token of the user, so all
// sessions must sign in again once their access token expires.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	pwHash, err := pkg_hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePasswordHash(ctx, userID, pwHash); err != nil {
		if repo.IsNotFound(err) {
			return fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return err
	}
	if err := s.Repo.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return err
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	s.publish(ctx, session.UserUpdated, user, nil)
	events.Emit(ctx, s.Events, events.TopicUser, userID.String(), events.UserEvent{
		Type: events.UserPasswordChange, UserID: userID,
	})
	return nil
}

// CurrentSession returns the tracked session of the user, rebuilding it from storage when the
// tracker has not seen the user since start-up.
func (s *AuthService) CurrentSession(ctx context.Context, userID uuid.UUID) (*session.State, error) {
	if s.Tracker != nil {
		if st, ok := s.Tracker.Current(userID); ok {
			return &st, nil
		}
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, err
	}
	profile, err := s.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &session.State{
		Session: &session.Session{UserID: user.ID, Email: user.Email},
		Profile: profile,
	}, nil
}
