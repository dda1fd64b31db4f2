package server

import (
	"fmt"

	"storyline/internal/models"

	"github.com/gofiber/fiber/v2"
)

func userURL(id uint) string {
	return fmt.Sprintf("/user/%d", id)
}

// Users lists every author, one page at a time.
func (s *Server) Users(c *fiber.Ctx) error {
	page, err := s.userService.ListUsers(c.UserContext(), pageNumber(c))
	if err != nil {
		return err
	}
	return s.render(c, "users", "Authors", fiber.Map{"Page": page})
}

// UserPage shows a user's profile, stories and follow counts.
func (s *Server) UserPage(c *fiber.Ctx) error {
	userID, err := paramID(c, "user_id")
	if err != nil {
		return err
	}
	profile, err := s.userService.Profile(c.UserContext(), userID)
	if err != nil {
		return err
	}

	me := identity(c)
	following, err := s.followService.IsFollowing(c.UserContext(), me.UserID, profile.User.ID)
	if err != nil {
		return err
	}

	return s.render(c, "user", profile.User.Username, fiber.Map{
		"Profile":   profile,
		"IsSelf":    !me.Anonymous() && me.UserID == profile.User.ID,
		"Following": following,
	})
}

func (s *Server) Follow(c *fiber.Ctx) error {
	userID, err := paramID(c, "user_id")
	if err != nil {
		return err
	}

	target, err := s.followService.Follow(c.UserContext(), identity(c), userID)
	if err != nil {
		if models.HasCode(err, models.CodeConflict) {
			flash(c, flashDanger, err.Error())
			return c.Redirect(userURL(userID))
		}
		return err
	}

	flash(c, flashSuccess, fmt.Sprintf("You are now following %s!", target.Username))
	return c.Redirect(userURL(target.ID))
}

func (s *Server) Unfollow(c *fiber.Ctx) error {
	userID, err := paramID(c, "user_id")
	if err != nil {
		return err
	}

	target, err := s.followService.Unfollow(c.UserContext(), identity(c), userID)
	if err != nil {
		if models.HasCode(err, models.CodeConflict) {
			flash(c, flashDanger, err.Error())
			return c.Redirect(userURL(userID))
		}
		return err
	}

	flash(c, flashInfo, fmt.Sprintf("You have unfollowed %s.", target.Username))
	return c.Redirect(userURL(target.ID))
}
