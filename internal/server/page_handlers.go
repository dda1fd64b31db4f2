package server

import (
	"github.com/gofiber/fiber/v2"
)

// Home lists every post, newest first.
func (s *Server) Home(c *fiber.Ctx) error {
	page, err := s.postService.Home(c.UserContext(), pageNumber(c))
	if err != nil {
		return err
	}
	return s.render(c, "home", "", fiber.Map{
		"Page":    page,
		"BaseURL": "/home",
	})
}

func (s *Server) About(c *fiber.Ctx) error {
	return s.render(c, "about", "About", nil)
}

// Feed lists the posts of the users the caller follows.
func (s *Server) Feed(c *fiber.Ctx) error {
	page, err := s.followService.FollowedPosts(c.UserContext(), identity(c), pageNumber(c))
	if err != nil {
		return err
	}
	return s.render(c, "feed", "Feed", fiber.Map{
		"Page":    page,
		"BaseURL": "/feed",
	})
}
