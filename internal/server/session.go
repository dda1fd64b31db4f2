package server

import (
	"encoding/json"
	"log/slog"

	"storyline/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	localSession   = "session"
	sessionUserKey = "user_id"
	sessionFlashes = "flashes"
)

// Flash categories understood by the layout.
const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// requestSession tracks changes to the session so it is only written back
// when something changed.
type requestSession struct {
	sess      *session.Session
	dirty     bool
	destroyed bool
}

func (r *requestSession) get(key string) interface{} {
	if r == nil || r.destroyed {
		return nil
	}
	return r.sess.Get(key)
}

func (r *requestSession) set(key string, val interface{}) {
	if r == nil || r.destroyed {
		return
	}
	r.sess.Set(key, val)
	r.dirty = true
}

func (r *requestSession) del(key string) {
	if r == nil || r.destroyed {
		return
	}
	r.sess.Delete(key)
	r.dirty = true
}

// regenerate issues a new session id, keeping the data. Used on login.
func (r *requestSession) regenerate() error {
	if r == nil || r.destroyed {
		return nil
	}
	r.dirty = true
	return r.sess.Regenerate()
}

func (r *requestSession) destroy() error {
	if r == nil || r.destroyed {
		return nil
	}
	r.destroyed = true
	return r.sess.Destroy()
}

// SessionMiddleware loads the session before the handler and saves it afterwards if it changed.
func (s *Server) SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.sessions.Get(c)
		if err != nil {
			return err
		}
		rs := &requestSession{sess: sess}
		c.Locals(localSession, rs)

		err = c.Next()

		if rs.dirty && !rs.destroyed {
			if serr := sess.Save(); serr != nil {
				middleware.Logger.ErrorContext(c.UserContext(), "failed to save session", slog.String("error", serr.Error()))
			}
		}
		return err
	}
}

func sessionOf(c *fiber.Ctx) *requestSession {
	rs, _ := c.Locals(localSession).(*requestSession)
	return rs
}

func readFlashes(rs *requestSession) []Flash {
	raw, ok := rs.get(sessionFlashes).(string)
	if !ok || raw == "" {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return nil
	}
	return flashes
}

// flash queues a message for the next rendered page.
func flash(c *fiber.Ctx, category, message string) {
	rs := sessionOf(c)
	if rs == nil {
		return
	}
	flashes := append(readFlashes(rs), Flash{Category: category, Message: message})
	b, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	rs.set(sessionFlashes, string(b))
}

// popFlashes returns the queued messages and clears them.
func popFlashes(c *fiber.Ctx) []Flash {
	rs := sessionOf(c)
	flashes := readFlashes(rs)
	if len(flashes) > 0 {
		rs.del(sessionFlashes)
	}
	return flashes
}
