package server

import (
	"fmt"

	"storyline/internal/models"
	"storyline/internal/validation"

	"github.com/gofiber/fiber/v2"
)

func characterURL(historyID, characterID uint) string {
	return fmt.Sprintf("/history/%d/character/%d", historyID, characterID)
}

// characterParams parses both ids of a character route.
func characterParams(c *fiber.Ctx) (uint, uint, error) {
	historyID, err := paramID(c, "history_id")
	if err != nil {
		return 0, 0, err
	}
	characterID, err := paramID(c, "character_id")
	if err != nil {
		return 0, 0, err
	}
	return historyID, characterID, nil
}

func (s *Server) renderCharacterForm(c *fiber.Ctx, title string, history *models.History, form validation.CharacterForm, errs validation.FormErrors) error {
	return s.render(c, "character_form", title, fiber.Map{
		"Form":    form,
		"Legend":  title,
		"History": history,
		"Errors":  errs,
	})
}

// CharacterPage shows a character and the posts written about it.
func (s *Server) CharacterPage(c *fiber.Ctx) error {
	historyID, characterID, err := characterParams(c)
	if err != nil {
		return err
	}
	page, err := s.characterService.CharacterPage(c.UserContext(), historyID, characterID)
	if err != nil {
		return err
	}
	return s.render(c, "character", page.Character.Name, fiber.Map{
		"Character": page.Character,
		"Posts":     page.Posts,
		"IsAuthor":  identity(c).UserID == page.Character.UserID,
	})
}

func (s *Server) NewCharacterPage(c *fiber.Ctx) error {
	historyID, err := paramID(c, "history_id")
	if err != nil {
		return err
	}
	history, err := s.historyService.GetHistory(c.UserContext(), historyID)
	if err != nil {
		return err
	}
	return s.renderCharacterForm(c, "New Character", history, validation.CharacterForm{}, nil)
}

func (s *Server) CreateCharacter(c *fiber.Ctx) error {
	historyID, err := paramID(c, "history_id")
	if err != nil {
		return err
	}
	var form validation.CharacterForm
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	character, err := s.characterService.CreateCharacter(c.UserContext(), identity(c), historyID, form)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			history, herr := s.historyService.GetHistory(c.UserContext(), historyID)
			if herr != nil {
				return herr
			}
			return s.renderCharacterForm(c, "New Character", history, form, fe)
		}
		return err
	}

	flash(c, flashSuccess, "Your character has been created!")
	return c.Redirect(characterURL(historyID, character.ID))
}

func (s *Server) EditCharacterPage(c *fiber.Ctx) error {
	historyID, characterID, err := characterParams(c)
	if err != nil {
		return err
	}
	character, err := s.characterService.GetCharacter(c.UserContext(), historyID, characterID)
	if err != nil {
		return err
	}
	if character.UserID != identity(c).UserID {
		return models.NewForbiddenError("You are not the author of this character")
	}
	form := validation.CharacterForm{Name: character.Name, Info: character.Info}
	return s.renderCharacterForm(c, "Update Character", character.History, form, nil)
}

func (s *Server) UpdateCharacter(c *fiber.Ctx) error {
	historyID, characterID, err := characterParams(c)
	if err != nil {
		return err
	}
	var form validation.CharacterForm
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	character, err := s.characterService.UpdateCharacter(c.UserContext(), identity(c), historyID, characterID, form)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return s.renderCharacterForm(c, "Update Character", nil, form, fe)
		}
		return err
	}

	flash(c, flashSuccess, "Your character has been updated!")
	return c.Redirect(characterURL(historyID, character.ID))
}

// DeleteCharacter removes a character that has no posts and returns to its story.
func (s *Server) DeleteCharacter(c *fiber.Ctx) error {
	historyID, characterID, err := characterParams(c)
	if err != nil {
		return err
	}

	if err := s.characterService.DeleteCharacter(c.UserContext(), identity(c), historyID, characterID); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			flash(c, flashDanger, err.Error())
			return c.Redirect(characterURL(historyID, characterID))
		}
		return err
	}

	flash(c, flashSuccess, "Character deleted")
	return c.Redirect(historyURL(historyID))
}
