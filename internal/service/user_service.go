package service

import (
	"context"
	"errors"
	"strings"

	"agora/internal/auth"
	"agora/internal/models"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	minPasswordLen = 8
	maxNicknameLen = 40
	maxEmailLen    = 254
)

// LikeReleaser withdraws a user's likes so target counters stay in step
// when the account row is removed.
type LikeReleaser interface {
	ReleaseByUser(ctx context.Context, userID uint) (int, error)
}

type UserService struct {
	users      repository.UserRepository
	likes      LikeReleaser
	tx         Transactor
	tokens     *auth.TokenIssuer
	bcryptCost int
}

type RegisterInput struct {
	Email      string
	Password   string
	Nickname   string
	ProfileURL *string
}

// UpdateProfileInput carries the fields to change. Nil fields are kept.
type UpdateProfileInput struct {
	Email      *string
	Nickname   *string
	ProfileURL *string
}

// NewUserService builds the service. likes may be nil when the caller never purges.
func NewUserService(users repository.UserRepository, likes LikeReleaser, tx Transactor, tokens *auth.TokenIssuer, bcryptCost int) *UserService {
	return &UserService{users: users, likes: likes, tx: tx, tokens: tokens, bcryptCost: bcryptCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return models.NewValidationError("Password must be at least 8 characters")
	}
	return nil
}

// userConflict narrows a unique violation on users to the specific taxonomy error.
func userConflict(err error) error {
	switch {
	case models.IsUniqueViolation(err, "email"):
		return models.ErrEmailTaken.Wrap(err)
	case models.IsUniqueViolation(err, "nickname"):
		return models.ErrNicknameTaken.Wrap(err)
	}
	return err
}

// Register creates an active account. Email is checked before nickname so the
// caller learns exactly which value is taken.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, c := begin(ctx, "user", "register")
	defer c.end(&err)

	email, err := required("Email", normalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}
	if !strings.Contains(email, "@") {
		return nil, models.NewValidationError("Email is invalid")
	}
	if err := maxLen("Email", email, maxEmailLen); err != nil {
		return nil, err
	}
	nickname, err := required("Nickname", in.Nickname)
	if err != nil {
		return nil, err
	}
	if err := maxLen("Nickname", nickname, maxNicknameLen); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByEmail(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrEmailTaken
	}
	taken, err = s.users.ExistsByNickname(ctx, nickname, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrNicknameTaken
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	candidate := &models.User{
		Email:    email,
		Nickname: nickname,
		Password: hash,
		Role:     models.RoleUser,
		Status:   models.StatusActive,
	}
	if in.ProfileURL != nil && strings.TrimSpace(*in.ProfileURL) != "" {
		url := strings.TrimSpace(*in.ProfileURL)
		candidate.ProfileURL = &url
	}

	// A concurrent registration can still win the race past the checks above.
	user, err = s.users.Create(ctx, candidate)
	if err != nil {
		return nil, userConflict(err)
	}
	c.span.AddAttributes(attribute.Int("user.id", int(user.ID)))
	return user, nil
}

// Authenticate verifies credentials. Unknown emails still pay for a hash
// comparison so response timing does not reveal which accounts exist.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (user *models.User, err error) {
	ctx, c := begin(ctx, "user", "authenticate")
	defer c.end(&err)

	user, err = s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		auth.BurnVerification(password)
		return nil, models.ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(user.Password, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	switch user.Status {
	case models.StatusDeleted:
		return nil, models.ErrInvalidCredentials
	case models.StatusSuspended:
		return nil, models.ErrUserSuspended
	}
	return user, nil
}

// Login authenticates and issues a signed token for the user.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	if s.tokens == nil {
		return "", nil, models.NewInternalError(errors.New("token issuer not configured"))
	}
	token, err := s.tokens.Issue(user.ID, user.Nickname)
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}
	return token, user, nil
}

// GetByID returns the user. Deleted accounts are reported as missing.
func (s *UserService) GetByID(ctx context.Context, id uint) (user *models.User, err error) {
	ctx, c := begin(ctx, "user", "get", attribute.Int("user.id", int(id)))
	defer c.end(&err)

	user, err = s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status == models.StatusDeleted {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter) (users []models.User, err error) {
	ctx, c := begin(ctx, "user", "list")
	defer c.end(&err)
	return s.users.List(ctx, filter)
}

// loadWritable loads a user that may still change their own account.
func (s *UserService) loadWritable(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	if user.Status == models.StatusDeleted {
		return nil, models.ErrUserDeleted
	}
	return user, nil
}

// UpdateProfile changes email, nickname or profile URL. Uniqueness is only
// re-checked for values that actually change, excluding the user's own row.
func (s *UserService) UpdateProfile(ctx context.Context, id uint, in UpdateProfileInput) (user *models.User, err error) {
	ctx, c := begin(ctx, "user", "update_profile", attribute.Int("user.id", int(id)))
	defer c.end(&err)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.loadWritable(ctx, id)
		if err != nil {
			return err
		}

		var patch repository.UserPatch
		if in.Email != nil {
			email, err := required("Email", normalizeEmail(*in.Email))
			if err != nil {
				return err
			}
			if err := maxLen("Email", email, maxEmailLen); err != nil {
				return err
			}
			if !strings.Contains(email, "@") {
				return models.NewValidationError("Email is invalid")
			}
			if email != current.Email {
				taken, err := s.users.ExistsByEmail(ctx, email, id)
				if err != nil {
					return err
				}
				if taken {
					return models.ErrEmailTaken
				}
				patch.Email = &email
			}
		}
		if in.Nickname != nil {
			nickname, err := required("Nickname", *in.Nickname)
			if err != nil {
				return err
			}
			if err := maxLen("Nickname", nickname, maxNicknameLen); err != nil {
				return err
			}
			if nickname != current.Nickname {
				taken, err := s.users.ExistsByNickname(ctx, nickname, id)
				if err != nil {
					return err
				}
				if taken {
					return models.ErrNicknameTaken
				}
				patch.Nickname = &nickname
			}
		}
		if in.ProfileURL != nil {
			url := strings.TrimSpace(*in.ProfileURL)
			patch.ProfileURL = &url
		}

		user, err = s.users.Update(ctx, id, patch)
		if err != nil {
			return userConflict(err)
		}
		if user == nil {
			return models.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword re-hashes and stores a new password. When current is not
// empty it must match the stored hash first.
func (s *UserService) ChangePassword(ctx context.Context, id uint, current, next string) (err error) {
	ctx, c := begin(ctx, "user", "change_password", attribute.Int("user.id", int(id)))
	defer c.end(&err)

	if err := validatePassword(next); err != nil {
		return err
	}
	user, err := s.loadWritable(ctx, id)
	if err != nil {
		return err
	}
	if current != "" {
		if err := auth.VerifyPassword(user.Password, current); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return models.ErrInvalidCredentials
			}
			return err
		}
	}

	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	updated, err := s.users.Update(ctx, id, repository.UserPatch{Password: &hash})
	if err != nil {
		return err
	}
	if updated == nil {
		return models.ErrUserNotFound
	}
	return nil
}

// ChangeStatus moves the account through active, suspended and deleted.
// Asking for the current status is a no-op.
func (s *UserService) ChangeStatus(ctx context.Context, id uint, next models.UserStatus) (user *models.User, err error) {
	ctx, c := begin(ctx, "user", "change_status",
		attribute.Int("user.id", int(id)),
		attribute.String("user.status", string(next)),
	)
	defer c.end(&err)

	if !next.Valid() {
		return nil, models.NewValidationError("Unknown user status")
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return models.ErrUserNotFound
		}
		if current.Status == next {
			user = current
			return nil
		}
		if !current.Status.CanTransitionTo(next) {
			return models.ErrInvalidStatusTransition.WithMessage(
				"cannot change user status from %s to %s", current.Status, next)
		}
		user, err = s.users.Update(ctx, id, repository.UserPatch{Status: &next})
		if err != nil {
			return err
		}
		if user == nil {
			return models.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Delete soft-deletes the account. Authored content stays in place.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	_, err := s.ChangeStatus(ctx, id, models.StatusDeleted)
	return err
}

// Purge removes the account row and, through the schema, everything it authored.
// Likes the user gave are withdrawn first so the surviving targets' counters drop with them.
func (s *UserService) Purge(ctx context.Context, id uint) (err error) {
	ctx, c := begin(ctx, "user", "purge", attribute.Int("user.id", int(id)))
	defer c.end(&err)

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if s.likes != nil {
			if _, err := s.likes.ReleaseByUser(ctx, id); err != nil {
				return err
			}
		}
		removed, err := s.users.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			return models.ErrUserNotFound
		}
		return nil
	})
}

// EnsureCanWrite returns the user when the account may author content.
func (s *UserService) EnsureCanWrite(ctx context.Context, id uint) (*models.User, error) {
	return ensureCanWrite(ctx, s.users, id)
}

// Identify resolves a session token to an active user.
func (s *UserService) Identify(ctx context.Context, token string) (*models.User, error) {
	if s.tokens == nil {
		return nil, models.NewInternalError(errors.New("token issuer not configured"))
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, models.ErrInvalidCredentials.Wrap(err)
	}
	user, err := s.GetByID(ctx, id)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.Status == models.StatusSuspended {
		return nil, models.ErrUserSuspended
	}
	return user, nil
}
