package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"storyline/internal/middleware"
	"storyline/internal/models"
	"storyline/internal/service"
	"storyline/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// paramID extracts a route parameter as a positive id. Anything else is a missing page.
func paramID(c *fiber.Ctx, param string) (uint, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewNotFoundError("Page", raw)
	}
	return uint(id), nil
}

// pageNumber reads ?page=N, defaulting to the first page.
func pageNumber(c *fiber.Ctx) int {
	page := c.QueryInt("page", 1)
	if page < 1 {
		return 1
	}
	if page > service.MaxPage {
		return service.MaxPage
	}
	return page
}

// render executes a page inside the main layout with the values every page needs.
func (s *Server) render(c *fiber.Ctx, name, title string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["Title"] = title
	data["Identity"] = identity(c)
	data["CurrentUser"] = currentUser(c)
	data["Flashes"] = popFlashes(c)
	data["CSRFToken"] = csrfToken(c)
	data["CSRFField"] = csrfFormField
	return c.Render(name, data, mainLayout)
}

func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals(csrfLocalsKey).(string)
	return token
}

// formErrors converts a validation failure into per-field messages for re-rendering a form.
func formErrors(err error) (validation.FormErrors, bool) {
	var fe validation.FormErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
		field := appErr.Field
		if field == "" {
			field = "form"
		}
		return validation.FormErrors{field: appErr.Message}, true
	}
	return nil, false
}

// errorPageMessages are the headings of the error page per status.
var errorPageMessages = map[int]string{
	http.StatusBadRequest:          "Bad request",
	http.StatusNotFound:            "Oops. Page Not Found (404)",
	http.StatusForbidden:           "You don't have permission to do that (403)",
	http.StatusUnauthorized:        "Please log in to access this page.",
	http.StatusConflict:            "That action is not allowed right now",
	http.StatusTooManyRequests:     "Too many requests, please try again later.",
	http.StatusInternalServerError: "Something went wrong (500)",
}

// errorHandler renders every error returned by a handler as an HTML page with the mapped status.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)
	message := ""

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		if status != http.StatusNotFound && status != http.StatusMethodNotAllowed {
			message = fe.Message
		}
	}
	if msg, ok := errorPageMessages[status]; ok && message == "" {
		message = msg
	}
	if message == "" {
		message = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}

	c.Status(status)
	renderErr := c.Render("errors/error", fiber.Map{
		"Title":       message,
		"Status":      status,
		"Message":     message,
		"Identity":    identity(c),
		"CurrentUser": currentUser(c),
	}, mainLayout)
	if renderErr != nil {
		return c.Status(status).SendString(message)
	}
	return nil
}
