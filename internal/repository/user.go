package repository

import (
	"context"

	"agora/internal/models"

	"gorm.io/gorm"
)

// UserFilter narrows List and Count. Deleted users are excluded unless Status asks for them.
type UserFilter struct {
	Role     *models.UserRole
	Status   *models.UserStatus
	Email    *string
	Nickname *string
	Limit    int
	Offset   int
}

// UserPatch lists the user fields an update may change. Nil fields are left alone.
// An empty ProfileURL clears it.
type UserPatch struct {
	Email      *string
	Nickname   *string
	Password   *string
	ProfileURL *string
	Role       *models.UserRole
	Status     *models.UserStatus
}

func (p UserPatch) changes() map[string]any {
	m := make(map[string]any)
	if p.Email != nil {
		m["email"] = *p.Email
	}
	if p.Nickname != nil {
		m["nickname"] = *p.Nickname
	}
	if p.Password != nil {
		m["password"] = *p.Password
	}
	if p.ProfileURL != nil {
		if *p.ProfileURL == "" {
			m["profile_url"] = nil
		} else {
			m["profile_url"] = *p.ProfileURL
		}
	}
	if p.Role != nil {
		m["role"] = string(*p.Role)
	}
	if p.Status != nil {
		m["status"] = string(*p.Status)
	}
	return m
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByNickname(ctx context.Context, nickname string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string, excludeID uint) (bool, error)
	ExistsByNickname(ctx context.Context, nickname string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id uint, patch UserPatch) (*models.User, error)
	Delete(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, error)
	Count(ctx context.Context, filter UserFilter) (int64, error)
}

type userRepository struct {
	base
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{base: newBase(db, "users")}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	defer r.track("find_by_id")()
	user, err := takeOrNil[models.User](r.conn(ctx).Where("id = ?", id))
	if err != nil {
		return nil, r.fail(ctx, "find_by_id", err)
	}
	return user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.track("find_by_email")()
	user, err := takeOrNil[models.User](r.conn(ctx).Where("email = ?", email))
	if err != nil {
		return nil, r.fail(ctx, "find_by_email", err)
	}
	return user, nil
}

func (r *userRepository) FindByNickname(ctx context.Context, nickname string) (*models.User, error) {
	defer r.track("find_by_nickname")()
	user, err := takeOrNil[models.User](r.conn(ctx).Where("nickname = ?", nickname))
	if err != nil {
		return nil, r.fail(ctx, "find_by_nickname", err)
	}
	return user, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.existsBy(ctx, "email", email, excludeID)
}

func (r *userRepository) ExistsByNickname(ctx context.Context, nickname string, excludeID uint) (bool, error) {
	return r.existsBy(ctx, "nickname", nickname, excludeID)
}

func (r *userRepository) existsBy(ctx context.Context, column, value string, excludeID uint) (bool, error) {
	defer r.track("exists_by_" + column)()
	q := r.conn(ctx).Model(&models.User{}).Where(column+" = ?", value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	found, err := exists(q)
	if err != nil {
		return false, r.fail(ctx, "exists_by_"+column, err)
	}
	return found, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	defer r.track("create")()
	if err := r.conn(ctx).Create(user).Error; err != nil {
		return nil, r.fail(ctx, "create", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": user.ID})
	return r.FindByID(ctx, user.ID)
}

func (r *userRepository) Update(ctx context.Context, id uint, patch UserPatch) (*models.User, error) {
	changes := patch.changes()
	if len(changes) == 0 {
		return r.FindByID(ctx, id)
	}

	done := r.track("update")
	matched, err := applyUpdates(r.conn(ctx), &models.User{}, id, changes)
	done()
	if err != nil {
		return nil, r.fail(ctx, "update", err)
	}
	if !matched {
		return nil, nil
	}
	r.log.LogUpdate(ctx, map[string]any{"id": id, "fields": len(changes) - 1})
	return r.FindByID(ctx, id)
}

func (r *userRepository) Delete(ctx context.Context, id uint) (bool, error) {
	defer r.track("delete")()
	res := r.conn(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return false, r.fail(ctx, "delete", res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"id": id})
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) filtered(ctx context.Context, f UserFilter) *gorm.DB {
	q := r.conn(ctx).Model(&models.User{})
	if f.Role != nil {
		q = q.Where("role = ?", string(*f.Role))
	}
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	} else {
		q = q.Where("status <> ?", string(models.StatusDeleted))
	}
	if f.Email != nil {
		q = q.Where("email = ?", *f.Email)
	}
	if f.Nickname != nil {
		q = q.Where("nickname = ?", *f.Nickname)
	}
	return q
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, error) {
	defer r.track("list")()
	var users []models.User
	q := paginate(r.filtered(ctx, filter).Order("id ASC"), filter.Limit, filter.Offset)
	if err := q.Find(&users).Error; err != nil {
		return nil, r.fail(ctx, "list", err)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context, filter UserFilter) (int64, error) {
	defer r.track("count")()
	var n int64
	if err := r.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, r.fail(ctx, "count", err)
	}
	return n, nil
}
