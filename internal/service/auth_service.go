package service

import (
	"context"
	"log/slog"

	"storyline/internal/models"
	"storyline/internal/observability"
	"storyline/internal/repository"
	"storyline/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// LoginFailedMessage is shown for any unknown email or wrong password.
const LoginFailedMessage = "Login unsuccessful. Please check email and password"

const (
	usernameTakenMessage = "That username is taken. Please choose a different one."
	emailTakenMessage    = "That email is taken. Please choose a different one."
)

type AuthService struct {
	users repository.UserRepository
	cost  int
}

func NewAuthService(users repository.UserRepository) *AuthService {
	return &AuthService{users: users, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// Register validates the form, rejects taken usernames and emails, and stores
// the new user with a bcrypt password hash. Form problems come back as
// validation.FormErrors.
func (s *AuthService) Register(ctx context.Context, form *validation.RegistrationForm) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Register")
	defer func() { span.End(err) }()

	form.Normalize()
	fe := form.Validate()

	if _, bad := fe["username"]; !bad {
		existing, err := s.users.GetByUsername(ctx, form.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			fe.Add("username", usernameTakenMessage)
		}
	}
	if _, bad := fe["email"]; !bad {
		existing, err := s.users.GetByEmail(ctx, form.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			fe.Add("email", emailTakenMessage)
		}
	}
	if !fe.Valid() {
		observability.AuthEvents.WithLabelValues("register", "invalid").Inc()
		return nil, fe
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user = &models.User{
		Username: form.Username,
		Email:    form.Email,
		Password: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.AuthEvents.WithLabelValues("register", "success").Inc()
	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate checks the credentials of the login form. Any mismatch is
// reported as an UNAUTHORIZED error with LoginFailedMessage.
func (s *AuthService) Authenticate(ctx context.Context, form *validation.LoginForm) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Authenticate")
	defer func() { span.End(err) }()

	if fe := form.Validate(); !fe.Valid() {
		return nil, fe
	}

	user, err = s.users.GetByEmail(ctx, form.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !checkPassword(user.Password, form.Password) {
		observability.AuthEvents.WithLabelValues("login", "failure").Inc()
		slog.WarnContext(ctx, "login failed", "email", form.Email)
		return nil, models.NewUnauthorizedError(LoginFailedMessage)
	}

	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	observability.AuthEvents.WithLabelValues("login", "success").Inc()
	return user, nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
