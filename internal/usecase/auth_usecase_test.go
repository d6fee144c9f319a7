package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthUsecase_Register_Success(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, "test-secret", time.Hour)

	users.On("FindByEmail", mock.Anything, "jane@example.com").Return((*model.User)(nil), nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		//平文は保存しない
		return u.Email == "jane@example.com" && u.Role == model.RoleCustomer &&
			u.PasswordHash != "s3cret-pass"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 42
	}).Return(nil)

	out, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email:     "Jane@Example.com",
		Password:  "s3cret-pass",
		FirstName: "Jane",
		LastName:  "Doe",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.User.ID)
	assert.NotEmpty(t, out.Token)

	//発行したトークンにsub/role/tvが入っていること
	token, err := jwt.Parse(out.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	assert.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "CUSTOMER", claims["role"])
	assert.Equal(t, float64(0), claims["tv"])
}

func TestAuthUsecase_Register_DuplicateEmail(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, "test-secret", time.Hour)

	users.On("FindByEmail", mock.Anything, "jane@example.com").Return(&model.User{ID: 1}, nil)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email:     "jane@example.com",
		Password:  "s3cret-pass",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	assertHTTPStatus(t, err, http.StatusConflict)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Register_ShortPassword(t *testing.T) {
	uc := usecase.NewAuthUsecase(new(UserRepoMock), "test-secret", time.Hour)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email:     "jane@example.com",
		Password:  "short",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestAuthUsecase_Login_Success(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, "test-secret", time.Hour)

	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	users.On("FindByEmail", mock.Anything, "jane@example.com").Return(&model.User{
		ID: 42, Email: "jane@example.com", PasswordHash: string(hash),
		Role: model.RoleStaff, TokenVersion: 3, IsActive: true,
	}, nil)

	out, err := uc.Login(context.Background(), usecase.LoginInput{
		Email:    "jane@example.com",
		Password: "s3cret-pass",
	})

	assert.NoError(t, err)
	assert.Equal(t, model.RoleStaff, out.User.Role)

	token, _ := jwt.Parse(out.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(3), claims["tv"])
}

func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, "test-secret", time.Hour)

	hash, _ := bcrypt.GenerateFromPassword([]byte("right-pass"), bcrypt.MinCost)
	users.On("FindByEmail", mock.Anything, "jane@example.com").Return(&model.User{
		ID: 42, PasswordHash: string(hash), IsActive: true,
	}, nil)

	_, err := uc.Login(context.Background(), usecase.LoginInput{
		Email:    "jane@example.com",
		Password: "wrong-pass",
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
	assertErrContains(t, err, "invalid email or password")
}

// 未登録メールでも同じ応答を返す。
func TestAuthUsecase_Login_UnknownEmailSameResponse(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, "test-secret", time.Hour)

	users.On("FindByEmail", mock.Anything, "ghost@example.com").Return((*model.User)(nil), nil)

	_, err := uc.Login(context.Background(), usecase.LoginInput{
		Email:    "ghost@example.com",
		Password: "whatever-pass",
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
	assertErrContains(t, err, "invalid email or password")
}
