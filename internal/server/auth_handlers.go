package server

import (
	"storyline/internal/models"
	"storyline/internal/observability"
	"storyline/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const registeredMessage = "Account created. Welcome!"

// RegisterPage shows the sign-up form.
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	if !identity(c).Anonymous() {
		return c.Redirect("/")
	}
	return s.render(c, "register", "Register", fiber.Map{"Form": validation.RegistrationForm{}})
}

// Register creates the account and sends the user to the login page.
func (s *Server) Register(c *fiber.Ctx) error {
	if !identity(c).Anonymous() {
		return c.Redirect("/")
	}

	var form validation.RegistrationForm
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	if _, err := s.authService.Register(c.UserContext(), &form); err != nil {
		if fe, ok := formErrors(err); ok {
			form.Password, form.ConfirmPassword = "", ""
			return s.render(c, "register", "Register", fiber.Map{"Form": form, "Errors": fe})
		}
		return err
	}

	flash(c, flashSuccess, registeredMessage)
	return c.Redirect("/login")
}

// LoginPage shows the sign-in form.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	if !identity(c).Anonymous() {
		return c.Redirect("/")
	}
	return s.render(c, "login", "Login", fiber.Map{
		"Form": validation.LoginForm{},
		"Next": c.Query("next"),
	})
}

// Login checks the credentials. A failed attempt re-renders the form with a
// flash message rather than an error status.
func (s *Server) Login(c *fiber.Ctx) error {
	if !identity(c).Anonymous() {
		return c.Redirect("/")
	}

	form := validation.LoginForm{
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
		Remember: c.FormValue("remember") != "",
	}
	next := c.Query("next", c.FormValue("next"))

	user, err := s.authService.Authenticate(c.UserContext(), &form)
	if err != nil {
		form.Password = ""
		data := fiber.Map{"Form": form, "Next": next}
		if fe, ok := formErrors(err); ok {
			data["Errors"] = fe
			return s.render(c, "login", "Login", data)
		}
		if models.HasCode(err, models.CodeUnauthorized) {
			flash(c, flashDanger, err.Error())
			return s.render(c, "login", "Login", data)
		}
		return err
	}

	if err := s.logIn(c, user, form.Remember); err != nil {
		return err
	}

	if target, ok := safeNext(next); ok {
		return c.Redirect(target)
	}
	return c.Redirect("/feed")
}

// Logout ends the session and returns to the home page.
func (s *Server) Logout(c *fiber.Ctx) error {
	if !identity(c).Anonymous() {
		observability.AuthEvents.WithLabelValues("logout", "success").Inc()
	}
	s.logOut(c)
	return c.Redirect("/")
}
