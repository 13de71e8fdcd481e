package services

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"github.com/contractpro/contractpro/auth"
	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/validation"
)

// selfServiceRoles may be chosen at registration; admins are provisioned.
var selfServiceRoles = []string{string(models.RoleFreelancer), string(models.RoleClient)}

// RegisterInput creates an account.
type RegisterInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

func (in *RegisterInput) Validate() validation.Violations {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleFreelancer
	}
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.Length("name", in.Name, 2, 50, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("password", in.Password, v)
	validation.Length("password", in.Password, 6, 128, v)
	validation.OneOf("role", string(in.Role), selfServiceRoles, v)
	return v
}

// LoginInput authenticates an account.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginInput) Validate() validation.Violations {
	in.Email = models.NormalizeEmail(in.Email)
	v := make(validation.Violations)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("password", in.Password, v)
	return v
}

// ProfileInput holds the fields a user may change on their own account.
type ProfileInput struct {
	Name string `json:"name"`
}

// Session is a signed-in user with a bearer token.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// UserService handles accounts and sign-in.
type UserService struct {
	Deps
	tokens *auth.Tokens
}

func NewUserService(d Deps, tokens *auth.Tokens) *UserService {
	return &UserService{Deps: d, tokens: tokens}
}

// Register creates an account and signs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, v
	}
	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, errors.Annotate(err, "check email")
	}
	if existing > 0 {
		return nil, errors.AlreadyExistsf("User with this email")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, errors.Annotate(err, "hash password")
	}
	now := s.now()
	u := models.User{
		Name: in.Name, Email: in.Email, Password: hash, Role: in.Role,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
		if isDuplicate(err) {
			return nil, errors.AlreadyExistsf("User with this email")
		}
		return nil, errors.Annotate(err, "create user")
	}
	s.Log.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("user registered")
	return s.session(&u)
}

// Login checks credentials and records the sign-in time.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if v := in.Validate(); !v.Empty() {
		return nil, v
	}
	var u models.User
	err := s.DB.WithContext(ctx).Where("email = ?", in.Email).First(&u).Error
	if isNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Annotate(err, "load user")
	}
	if !u.IsActive {
		return nil, ErrDeactivated
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		s.Log.Warn().Str("user_id", u.ID).Msg("failed sign-in")
		return nil, ErrInvalidCredentials
	}
	now := s.now()
	u.LastLoginAt = &now
	if err := s.DB.WithContext(ctx).Model(&u).UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, errors.Annotate(err, "record login")
	}
	return s.session(&u)
}

func (s *UserService) session(u *models.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, errors.Annotate(err, "issue token")
	}
	return &Session{User: u, Token: token}, nil
}

// Me returns the account of the context user.
func (s *UserService) Me(ctx context.Context) (*models.User, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.byID(ctx, userID)
}

func (s *UserService) byID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if isNotFound(err) {
		return nil, errors.NotFoundf("User")
	}
	if err != nil {
		return nil, errors.Annotate(err, "load user")
	}
	return &u, nil
}

// UpdateProfile changes the context user's display name.
func (s *UserService) UpdateProfile(ctx context.Context, in ProfileInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.Length("name", in.Name, 2, 50, v)
	if !v.Empty() {
		return nil, v
	}
	u, err := s.Me(ctx)
	if err != nil {
		return nil, err
	}
	u.Name = in.Name
	u.UpdatedAt = s.now()
	if err := s.DB.WithContext(ctx).Model(u).Select("name", "updated_at").Updates(u).Error; err != nil {
		return nil, errors.Annotate(err, "update profile")
	}
	return u, nil
}

// VerifyActive is the token middleware's check that the subject still
// exists and may sign in.
func (s *UserService) VerifyActive(ctx context.Context, userID string) error {
	var u models.User
	err := s.DB.WithContext(ctx).Select("id", "is_active").Where("id = ?", userID).First(&u).Error
	if isNotFound(err) {
		return ErrUserGone
	}
	if err != nil {
		return errors.Annotate(err, "verify user")
	}
	if !u.IsActive {
		return ErrDeactivated
	}
	return nil
}
