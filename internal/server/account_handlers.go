package server

import (
	"io"

	"storyline/internal/models"
	"storyline/internal/service"
	"storyline/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AccountPage shows the profile form filled with the current values.
func (s *Server) AccountPage(c *fiber.Ctx) error {
	user := currentUser(c)
	return s.render(c, "account", "Account", fiber.Map{
		"Form": validation.AccountForm{Username: user.Username, About: user.About},
		"User": user,
	})
}

// UpdateAccount saves the profile and, when one was uploaded, the new picture.
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	var form validation.AccountForm
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	picture, err := readPicture(c)
	if err != nil {
		return err
	}

	user, err := s.userService.UpdateAccount(c.UserContext(), identity(c), service.UpdateAccountInput{
		Form:    form,
		Picture: picture,
	})
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return s.render(c, "account", "Account", fiber.Map{
				"Form":   form,
				"User":   currentUser(c),
				"Errors": fe,
			})
		}
		return err
	}

	c.Locals(localUser, user)
	flash(c, flashSuccess, "Your account has been updated!")
	return c.Redirect("/account")
}

// readPicture returns the uploaded picture, or nil when the form carried none.
func readPicture(c *fiber.Ctx) (*service.AvatarUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	files := form.File["picture"]
	if len(files) == 0 || files[0].Filename == "" {
		return nil, nil
	}

	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &service.AvatarUpload{Filename: fh.Filename, Content: content}, nil
}
