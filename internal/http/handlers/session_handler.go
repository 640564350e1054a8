package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feed-sync/internal/domain"
	"github.com/tbourn/go-feed-sync/internal/services"
)

// LoginRequest is the JSON payload for signing in.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64" example:"emilys"`
	Email    string `json:"email" binding:"omitempty,max=254" example:"emily.johnson@x.dummyjson.com"`
}

// SessionResponse describes the local session. The token is never exposed.
type SessionResponse struct {
	SignedIn bool                `json:"signedIn"`
	User     *domain.SessionUser `json:"user,omitempty"`
}

// GetSession godoc
// @ID          getSession
// @Summary     Current session
// @Description A missing or unreadable session reads as signed out.
// @Tags        Session
// @Produce     json
// @Success     200  {object}  handlers.SessionResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /session [get]
func (h *Handlers) GetSession(c *gin.Context) {
	sess, err := h.sessSvc.Current(c.Request.Context())
	if err != nil {
		c.Header("Retry-After", strconv.Itoa(retryAfterStore))
		fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "could not read session")
		return
	}
	ok(c, http.StatusOK, sessionResponse(sess))
}

// Login godoc
// @ID          login
// @Summary     Sign in
// @Description Stores a local session for username. Comments are authored under this name.
// @Tags        Session
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
// @Success     201  {object}  handlers.SessionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /session [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username required")
		return
	}
	sess, err := h.sessSvc.Login(c.Request.Context(), req.Username, req.Email)
	if errors.Is(err, services.ErrNoIdentity) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username required")
		return
	}
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, sessionResponse(sess))
}

// Logout godoc
// @ID          logout
// @Summary     Sign out
// @Tags        Session
// @Success     204  {string}  string  "No Content"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /session [delete]
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.sessSvc.Logout(c.Request.Context()); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

func sessionResponse(s *domain.Session) SessionResponse {
	if s == nil {
		return SessionResponse{}
	}
	u := s.User
	return SessionResponse{SignedIn: true, User: &u}
}
