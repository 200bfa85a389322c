package services

import (
	"context"
	"errors"
	"time"

	"github.com/theravid/theravid/internal/cache"
	"github.com/theravid/theravid/internal/models"
	pgrepo "github.com/theravid/theravid/internal/repositories/postgres"
	"github.com/theravid/theravid/internal/utils"
)

const meCacheTTL = 5 * time.Minute

// Me is the account view served by GET /api/me: identity fields joined with
// the stored preferences.
type Me struct {
	ID    string `json:"id"`
	First string `json:"first"`
	Last  string `json:"last"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Goal  string `json:"goal"`
	Mood  string `json:"mood"`
}

// MeUpdate carries the optional account fields PUT /api/me may change.
type MeUpdate struct {
	First    *string `json:"first"`
	Last     *string `json:"last"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

type ProfileService interface {
	GetMe(ctx context.Context, userID string) (*Me, error)
	UpdateMe(ctx context.Context, userID string, in MeUpdate) error
	UpdatePreferences(ctx context.Context, userID, goal, mood string) error
}

type profileService struct {
	users    pgrepo.UserRepository
	profiles pgrepo.ProfileRepository
	cache    cache.Cache
}

func NewProfileService(users pgrepo.UserRepository, profiles pgrepo.ProfileRepository, c cache.Cache) ProfileService {
	return &profileService{users: users, profiles: profiles, cache: c}
}

func meKey(userID string) string { return "me:" + userID }

func (s *profileService) GetMe(ctx context.Context, userID string) (*Me, error) {
	const op = "ProfileService.GetMe"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	if s.cache != nil {
		var cached Me
		if hit, _ := s.cache.GetJSON(ctx, meKey(userID), &cached); hit {
			return &cached, nil
		}
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "unknown user", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}

	me := &Me{
		ID:    u.ID,
		First: u.FirstName,
		Last:  u.LastName,
		Email: u.Email,
		Phone: u.Phone,
	}

	// A user without saved preferences is still a valid account.
	p, err := s.profiles.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		me.Goal = p.Goal
		me.Mood = p.Mood
	case errors.Is(err, utils.ErrNotFound):
	default:
		return nil, utils.E(utils.CodeInternal, op, "failed to load profile", err)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, meKey(userID), me, meCacheTTL)
	}
	return me, nil
}

// UpdateMe applies only the fields present in the request.
func (s *profileService) UpdateMe(ctx context.Context, userID string, in MeUpdate) error {
	const op = "ProfileService.UpdateMe"

	if userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	fields := map[string]any{}
	if in.First != nil {
		fields["first_name"] = *in.First
	}
	if in.Last != nil {
		fields["last_name"] = *in.Last
	}
	if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	if in.Password != nil {
		if *in.Password == "" {
			return utils.E(utils.CodeInvalidArgument, op, "password must not be empty", nil)
		}
		hash, err := utils.HashPassword(*in.Password)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to hash password", err)
		}
		fields["password_hash"] = hash
	}
	if len(fields) == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "nothing to update", nil)
	}
	fields["updated_at"] = time.Now().UTC()

	if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update account", err)
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, meKey(userID))
	}
	return nil
}

func (s *profileService) UpdatePreferences(ctx context.Context, userID, goal, mood string) error {
	const op = "ProfileService.UpdatePreferences"

	if userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	p := &models.Profile{
		UserID:    userID,
		Goal:      goal,
		Mood:      mood,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save preferences", err)
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, meKey(userID))
	}
	return nil
}
