package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/group_buy/internal/events"
	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/Skotchmaster/group_buy/internal/querycache"
	"github.com/Skotchmaster/group_buy/internal/repo"
	"github.com/google/uuid"
)

type ProfileService struct {
	*Deps
}

type UpdateProfileInput struct {
	Username  *string
	FullName  *string
	AvatarURL *string
	Phone     *string
}

// GetProfile returns nil when the profile does not exist.
func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	key := querycache.NewKey("profile", id)
	tags := []string{querycache.TagProfile, querycache.ProfileTag(id)}
	return querycache.Get(ctx, s.Cache, key, tags, func(ctx context.Context) (*models.Profile, error) {
		p, err := s.Repo.GetProfile(ctx, id)
		if repo.IsNotFound(err) {
			return nil, nil
		}
		return p, err
	})
}

func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	p, err := s.Repo.GetProfileByUsername(ctx, strings.TrimSpace(username))
	if repo.IsNotFound(err) {
		return nil, nil
	}
	return p, err
}

func (s *ProfileService) List(ctx context.Context, offset, limit int) (int64, []models.Profile, error) {
	return s.Repo.ListProfiles(ctx, offset, limit)
}

// IsUsernameAvailable ignores the profile identified by except.
func (s *ProfileService) IsUsernameAvailable(ctx context.Context, username string, except uuid.UUID) (bool, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return false, err
	}
	taken, err := s.Repo.UsernameTaken(ctx, username, except)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *ProfileService) Update(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*models.Profile, error) {
	updates := map[string]any{}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		ok, err := s.IsUsernameAvailable(ctx, username, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("username %q is taken: %w", username, ErrConflict)
		}
		updates["username"] = username
	}
	if in.FullName != nil {
		if len([]rune(*in.FullName)) > maxFullNameLen {
			return nil, invalid("full_name", "is too long")
		}
		updates["full_name"] = emptyToNil(in.FullName)
	}
	if in.AvatarURL != nil {
		if err := validateURL("avatar_url", in.AvatarURL); err != nil {
			return nil, err
		}
		updates["avatar_url"] = emptyToNil(in.AvatarURL)
	}
	if in.Phone != nil {
		if err := validatePhone(in.Phone); err != nil {
			return nil, err
		}
		updates["phone"] = emptyToNil(in.Phone)
	}

	p, err := s.Repo.UpdateProfile(ctx, id, updates)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("profile not found: %w", ErrNotFound)
		}
		if repo.IsUniqueViolation(err) {
			return nil, fmt.Errorf("username is taken: %w", ErrConflict)
		}
		return nil, err
	}

	s.invalidate(querycache.TagProfile, querycache.ProfileTag(id))
	events.Emit(ctx, s.Events, events.TopicUser, id.String(), events.UserEvent{
		Type:     events.ProfileUpdated,
		UserID:   id,
		Username: p.Username,
	})
	return p, nil
}
