package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// AuthUsecase は登録とログイン。
// トークンはHS256のJWT1本で、tvが変わると既発行分はすべて失効する。
type AuthUsecase struct {
	userRepo  repo.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthUsecase(userRepo repo.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthUsecase {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthUsecase{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

type LoginInput struct {
	Email    string
	Password string
}

type UserView struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      model.Role `json:"role"`
}

type AuthOutput struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (AuthOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if len(in.Password) < 8 {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}

	existing, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if existing != nil {
		return AuthOutput{}, NewHTTPError(http.StatusConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleCustomer,
		IsActive:     true,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.issue(user)
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (AuthOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//存在の有無は応答から判別させない
	if user == nil || !user.IsActive {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	return u.issue(user)
}

// issue はsub/role/tv/exp入りのアクセストークンを発行する。
func (u *AuthUsecase) issue(user *model.User) (AuthOutput, error) {
	now := u.now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(u.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(u.jwtSecret))
	if err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return AuthOutput{
		Token: signed,
		User: UserView{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.Role,
		},
	}, nil
}
