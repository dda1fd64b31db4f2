package server

import (
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storyline/internal/cache"
	"storyline/internal/middleware"
	"storyline/internal/models"
	"storyline/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	rememberCookieName = "storyline_remember"
	rememberIssuer     = "storyline"
	rememberAudience   = "storyline-web"

	localIdentity = "identity"
	localUser     = "user"

	loginRequiredMessage = "Please log in to access this page."
)

// IdentityMiddleware resolves the logged-in user from the session, falling
// back to the remember-me cookie, and exposes it to handlers and the logger.
func (s *Server) IdentityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rs := sessionOf(c)
		ctx := c.UserContext()

		var user *models.User
		if uid, ok := rs.get(sessionUserKey).(uint); ok && uid != 0 {
			u, err := s.userService.GetUser(ctx, uid)
			switch {
			case err == nil:
				user = u
			case models.HasCode(err, models.CodeNotFound):
				rs.del(sessionUserKey)
			default:
				return err
			}
		}
		if user == nil {
			user = s.restoreRememberedUser(c, rs)
		}

		if user != nil {
			id := service.IdentityOf(user)
			c.Locals(localIdentity, id)
			c.Locals(localUser, user)
			c.Locals("userID", user.ID)
			ctx = middleware.WithUserID(ctx, user.ID)
			c.SetUserContext(ctx)
		}
		return c.Next()
	}
}

// LoginRequired redirects anonymous visitors to the login page, remembering where they were going.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !identity(c).Anonymous() {
			return c.Next()
		}
		flash(c, flashInfo, loginRequiredMessage)
		return c.Redirect("/login?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
	}
}

// identity returns the caller, or the anonymous identity.
func identity(c *fiber.Ctx) service.Identity {
	id, _ := c.Locals(localIdentity).(service.Identity)
	return id
}

func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}

// safeNext accepts only local absolute paths, so a crafted link cannot send
// the user to another site after logging in.
func safeNext(next string) (string, bool) {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "", false
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return next, true
}

// logIn binds the user to a fresh session id.
func (s *Server) logIn(c *fiber.Ctx, user *models.User, remember bool) error {
	rs := sessionOf(c)
	if err := rs.regenerate(); err != nil {
		return models.NewInternalError(err)
	}
	rs.set(sessionUserKey, user.ID)

	if remember {
		token, expires, err := s.issueRememberToken(user.ID)
		if err != nil {
			return models.NewInternalError(err)
		}
		c.Cookie(&fiber.Cookie{
			Name:     rememberCookieName,
			Value:    token,
			Path:     "/",
			Expires:  expires,
			HTTPOnly: true,
			Secure:   s.config.IsProduction(),
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return nil
}

// logOut destroys the session and revokes the remember-me token, if any.
func (s *Server) logOut(c *fiber.Ctx) {
	ctx := c.UserContext()
	if raw := c.Cookies(rememberCookieName); raw != "" {
		if claims, err := s.parseRememberToken(raw); err == nil && claims.ExpiresAt != nil {
			if err := cache.RevokeToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
				middleware.Logger.WarnContext(ctx, "failed to revoke remember token", slog.String("error", err.Error()))
			}
		}
		s.clearRememberCookie(c)
	}
	if err := sessionOf(c).destroy(); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to destroy session", slog.String("error", err.Error()))
	}
}

func (s *Server) clearRememberCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     rememberCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) rememberTTL() time.Duration {
	days := s.config.RememberTTLDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

func (s *Server) issueRememberToken(userID uint) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.rememberTTL())
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    rememberIssuer,
		Audience:  jwt.ClaimStrings{rememberAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SessionSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func (s *Server) parseRememberToken(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.config.SessionSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(rememberIssuer),
		jwt.WithAudience(rememberAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("remember token has no id")
	}
	return claims, nil
}

// restoreRememberedUser logs the user back in from a valid remember-me cookie.
func (s *Server) restoreRememberedUser(c *fiber.Ctx, rs *requestSession) *models.User {
	raw := c.Cookies(rememberCookieName)
	if raw == "" {
		return nil
	}
	ctx := c.UserContext()

	claims, err := s.parseRememberToken(raw)
	if err != nil {
		s.clearRememberCookie(c)
		return nil
	}
	revoked, err := cache.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		s.clearRememberCookie(c)
		return nil
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil
	}
	user, err := s.userService.GetUser(ctx, uint(uid))
	if err != nil {
		return nil
	}

	rs.set(sessionUserKey, user.ID)
	middleware.Logger.InfoContext(ctx, "session restored from remember cookie", slog.Uint64("user_id", uint64(user.ID)))
	return user
}
