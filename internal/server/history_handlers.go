package server

import (
	"fmt"

	"storyline/internal/models"
	"storyline/internal/validation"

	"github.com/gofiber/fiber/v2"
)

func historyURL(id uint) string {
	return fmt.Sprintf("/history/%d", id)
}

func (s *Server) renderHistoryForm(c *fiber.Ctx, title, legend string, form validation.HistoryForm, errs validation.FormErrors) error {
	return s.render(c, "history_form", title, fiber.Map{
		"Form":   form,
		"Legend": legend,
		"Errors": errs,
	})
}

// HistoryPage shows a story and its characters.
func (s *Server) HistoryPage(c *fiber.Ctx) error {
	historyID, err := paramID(c, "history_id")
	if err != nil {
		return err
	}
	page, err := s.historyService.HistoryPage(c.UserContext(), historyID)
	if err != nil {
		return err
	}
	return s.render(c, "history", page.History.Title, fiber.Map{
		"History":    page.History,
		"Characters": page.Characters,
		"IsAuthor":   identity(c).UserID == page.History.UserID,
	})
}

func (s *Server) NewHistoryPage(c *fiber.Ctx) error {
	return s.renderHistoryForm(c, "New History", "New History", validation.HistoryForm{}, nil)
}

func (s *Server) CreateHistory(c *fiber.Ctx) error {
	var form validation.HistoryForm
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	history, err := s.historyService.CreateHistory(c.UserContext(), identity(c), form)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return s.renderHistoryForm(c, "New History", "New History", form, fe)
		}
		return err
	}

	flash(c, flashSuccess, "Your story has been created!")
	return c.Redirect(historyURL(history.ID))
}

// EditHistoryPage shows the update form filled with the story's current values.
func (s *Server) EditHistoryPage(c *fiber.Ctx) error {
	historyID, err := paramID(c, "history_id")
	if err != nil {
		return err
	}
	history, err := s.historyService.GetHistory(c.UserContext(), historyID)
	if err != nil {
		return err
	}
	if history.UserID != identity(c).UserID {
		return models.NewForbiddenError("You are not the author of this story")
	}
	form := validation.HistoryForm{Title: history.Title, Info: history.Info}
	return s.renderHistoryForm(c, "Update History", "Update History", form, nil)
}

func (s *Server) UpdateHistory(c *fiber.Ctx) error {
	historyID, err := paramID(c, "history_id")
	if err != nil {
		return err
	}
	var form validation.HistoryForm
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	history, err := s.historyService.UpdateHistory(c.UserContext(), identity(c), historyID, form)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return s.renderHistoryForm(c, "Update History", "Update History", form, fe)
		}
		return err
	}

	flash(c, flashSuccess, "Your story has been updated!")
	return c.Redirect(historyURL(history.ID))
}

// DeleteHistory removes a story. A story that still has characters is kept
// and the refusal is flashed on its page.
func (s *Server) DeleteHistory(c *fiber.Ctx) error {
	historyID, err := paramID(c, "history_id")
	if err != nil {
		return err
	}

	if err := s.historyService.DeleteHistory(c.UserContext(), identity(c), historyID); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			flash(c, flashDanger, err.Error())
			return c.Redirect(historyURL(historyID))
		}
		return err
	}

	flash(c, flashSuccess, "Story deleted")
	return c.Redirect("/")
}
