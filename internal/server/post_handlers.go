package server

import (
	"fmt"

	"storyline/internal/models"
	"storyline/internal/validation"

	"github.com/gofiber/fiber/v2"
)

func postURL(id uint) string {
	return fmt.Sprintf("/post/%d", id)
}

func (s *Server) renderPostForm(c *fiber.Ctx, title string, character *models.Character, form validation.PostForm, errs validation.FormErrors) error {
	return s.render(c, "post_form", title, fiber.Map{
		"Form":      form,
		"Legend":    title,
		"Character": character,
		"Errors":    errs,
	})
}

// PostPage shows a single post.
func (s *Server) PostPage(c *fiber.Ctx) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return err
	}
	return s.render(c, "post", post.Title, fiber.Map{
		"Post":     post,
		"IsAuthor": identity(c).UserID == post.UserID,
	})
}

func (s *Server) NewPostPage(c *fiber.Ctx) error {
	historyID, characterID, err := characterParams(c)
	if err != nil {
		return err
	}
	character, err := s.characterService.GetCharacter(c.UserContext(), historyID, characterID)
	if err != nil {
		return err
	}
	return s.renderPostForm(c, "New Post", character, validation.PostForm{}, nil)
}

func (s *Server) CreatePost(c *fiber.Ctx) error {
	historyID, characterID, err := characterParams(c)
	if err != nil {
		return err
	}
	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	post, err := s.postService.CreatePost(c.UserContext(), identity(c), historyID, characterID, form)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			character, cerr := s.characterService.GetCharacter(c.UserContext(), historyID, characterID)
			if cerr != nil {
				return cerr
			}
			return s.renderPostForm(c, "New Post", character, form, fe)
		}
		return err
	}

	flash(c, flashSuccess, "Your post has been created!")
	return c.Redirect(postURL(post.ID))
}

func (s *Server) EditPostPage(c *fiber.Ctx) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return err
	}
	if post.UserID != identity(c).UserID {
		return models.NewForbiddenError("You are not the author of this post")
	}
	form := validation.PostForm{Title: post.Title, Content: post.Content}
	return s.renderPostForm(c, "Update Post", post.Character, form, nil)
}

func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}
	var form validation.PostForm
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	post, err := s.postService.UpdatePost(c.UserContext(), identity(c), postID, form)
	if err != nil {
		if fe, ok := formErrors(err); ok {
			return s.renderPostForm(c, "Update Post", nil, form, fe)
		}
		return err
	}

	flash(c, flashSuccess, "Your post has been updated!")
	return c.Redirect(postURL(post.ID))
}

// DeletePost removes the post and returns to its character.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := paramID(c, "post_id")
	if err != nil {
		return err
	}

	post, err := s.postService.DeletePost(c.UserContext(), identity(c), postID)
	if err != nil {
		return err
	}

	flash(c, flashSuccess, "Your post has been deleted!")
	return c.Redirect(characterURL(post.HistoryID, post.CharacterID))
}
