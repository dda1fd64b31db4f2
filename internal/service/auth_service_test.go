package service

import (
	"errors"
	"testing"

	"storyline/internal/models"
	"storyline/internal/testutil"
	"storyline/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func registration(username, email string) *validation.RegistrationForm {
	return &validation.RegistrationForm{
		Username:        username,
		Email:           email,
		Password:        testutil.TestPassword,
		ConfirmPassword: testutil.TestPassword,
	}
}

func TestAuthService_Register(t *testing.T) {
	s := newServices(t)

	user, err := s.auth.Register(bg, registration(" alice ", "Alice@Example.com"))
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.DefaultImageFile, user.ImageFile)
	assert.NotEqual(t, testutil.TestPassword, user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(testutil.TestPassword)))
}

func TestAuthService_RegisterRejectsTakenIdentity(t *testing.T) {
	s := newServices(t)
	testutil.CreateUser(t, s.db, "alice")

	_, err := s.auth.Register(bg, registration("alice", "other@example.com"))
	var fe validation.FormErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "That username is taken. Please choose a different one.", fe["username"])

	_, err = s.auth.Register(bg, registration("alice2", "alice@example.com"))
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "That email is taken. Please choose a different one.", fe["email"])

	var count int64
	s.db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_RegisterInvalidForm(t *testing.T) {
	s := newServices(t)

	form := registration("alice", "not-an-email")
	form.ConfirmPassword = "something else"
	_, err := s.auth.Register(bg, form)

	var fe validation.FormErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "email")
	assert.Equal(t, "Passwords must match.", fe["confirm_password"])
}

func TestAuthService_Authenticate(t *testing.T) {
	s := newServices(t)
	alice := testutil.CreateUser(t, s.db, "alice")

	user, err := s.auth.Authenticate(bg, &validation.LoginForm{Email: "ALICE@example.com", Password: testutil.TestPassword})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "Wr0ng!Password#123"},
		{"unknown email", "nobody@example.com", testutil.TestPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.auth.Authenticate(bg, &validation.LoginForm{Email: tt.email, Password: tt.password})
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.CodeUnauthorized))
			assert.Equal(t, LoginFailedMessage, err.Error())
		})
	}
}
