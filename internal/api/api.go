// Package api exposes contacts and account operations as JSON over gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// SessionCookie carries the session token for browser callers.
const SessionCookie = "celerix_session"

const (
	ownerKey = "celerix.owner"
	tokenKey = "celerix.token"
)

// Sandbox resets the shared sandbox pool.
type Sandbox interface {
	ResetSandbox(ctx context.Context) error
}

type Handler struct {
	Contacts *contact.Service
	Accounts *account.Service
	Sandbox  Sandbox
	Logger   *zap.Logger
	// SecureCookies marks the session cookie Secure (set when serving TLS).
	SecureCookies bool
}

// Routes registers every endpoint on g.
func (h *Handler) Routes(g *gin.RouterGroup) {
	g.Use(h.Identify)

	contacts := g.Group("/contacts")
	{
		contacts.GET("", h.ListContacts)
		contacts.GET("/search", h.SearchContacts)
		contacts.POST("", h.CreateContact)
		contacts.POST("/reset", h.ResetSandbox)
		contacts.GET("/:id", h.GetContact)
		contacts.PUT("/:id", h.UpdateContact)
		contacts.DELETE("/:id", h.DeleteContact)
	}

	acct := g.Group("/account")
	{
		acct.POST("/register", h.Register)
		acct.POST("/login", h.Login)
		acct.POST("/logout", h.Logout)
		acct.GET("/me", h.Me)
	}
}

// Identify resolves the caller from the session cookie or a bearer token.
func (h *Handler) Identify(c *gin.Context) {
	token := requestToken(c)
	c.Set(tokenKey, token)
	c.Set(ownerKey, h.Accounts.Identify(c.Request.Context(), token))
	c.Next()
}

func requestToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

func owner(c *gin.Context) contact.Owner {
	if v, ok := c.Get(ownerKey); ok {
		if o, ok := v.(contact.Owner); ok {
			return o
		}
	}
	return contact.Anonymous()
}

// --- contacts ---

func (h *Handler) ListContacts(c *gin.Context) {
	page, err := h.Contacts.List(c.Request.Context(), owner(c), c.Query("sortBy"), pageParam(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) SearchContacts(c *gin.Context) {
	page, err := h.Contacts.Search(c.Request.Context(), owner(c), c.Query("searchUserInput"), pageParam(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetContact(c *gin.Context) {
	ct, err := h.Contacts.Get(c.Request.Context(), owner(c), idParam(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) CreateContact(c *gin.Context) {
	var in schema.Contact
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	created, err := h.Contacts.Create(c.Request.Context(), owner(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateContact(c *gin.Context) {
	id := idParam(c)
	if id <= 0 {
		h.writeError(c, contact.ErrNotFound)
		return
	}
	var in schema.Contact
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	in.ID = id
	updated, err := h.Contacts.Update(c.Request.Context(), owner(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteContact(c *gin.Context) {
	if err := h.Contacts.Delete(c.Request.Context(), owner(c), idParam(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ResetSandbox(c *gin.Context) {
	if err := h.Sandbox.ResetSandbox(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// --- account ---

type credentials struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	RememberMe      bool   `json:"remember_me"`
}

func (h *Handler) Register(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		h.writeError(c, &account.RegistrationError{
			Problems: []string{"The password and confirmation password do not match."},
		})
		return
	}

	ctx := c.Request.Context()
	u, err := h.Accounts.Register(ctx, in.Email, in.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sess, err := h.Accounts.StartSession(u.ID, false)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setSessionCookie(c, sess)
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) Login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sess, err := h.Accounts.Login(c.Request.Context(), in.Email, in.Password, in.RememberMe)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setSessionCookie(c, sess)
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Accounts.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		h.writeError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.SecureCookies, true)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Me(c *gin.Context) {
	o := owner(c)
	c.JSON(http.StatusOK, schema.Identity{
		Authenticated: !o.IsAnonymous(),
		UserID:        o.UserID(),
	})
}

// setSessionCookie writes a browser-session cookie, or a persistent one when the
// caller asked to be remembered.
func (h *Handler) setSessionCookie(c *gin.Context, sess schema.Session) {
	maxAge := 0
	if sess.Remember {
		maxAge = int(time.Until(sess.ExpiresAt).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sess.Token, maxAge, "/", "", h.SecureCookies, true)
}

// --- helpers ---

func pageParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// idParam returns 0 for ids that do not parse, which every operation treats as
// not found.
func idParam(c *gin.Context) int64 {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		verr   *contact.ValidationError
		regErr *account.RegistrationError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.As(err, &regErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "registration failed", "errors": regErr.Problems})
	case errors.Is(err, contact.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
	case errors.Is(err, account.ErrInvalidLogin):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid login attempt."})
	default:
		h.logger().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Stringer("owner", owner(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": contact.ErrStore.Error()})
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
