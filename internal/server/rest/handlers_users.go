package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/services"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string          `json:"accessToken"`
	User        models.SafeUser `json:"user"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// refreshResponse is sent without the envelope.
type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (s *Server) register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.users.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, "user registered", registerResponse{ID: u.ID, Email: u.Email})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	s.setRefreshCookie(c, res.RefreshToken, int(s.users.RefreshTTL().Seconds()))
	respond(c, http.StatusOK, "login successful", loginResponse{AccessToken: res.AccessToken, User: res.User})
}

func (s *Server) refresh(c *gin.Context) {
	token, _ := c.Cookie(common.RefreshTokenCookieName)

	access, err := s.users.Refresh(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, refreshResponse{AccessToken: access})
}

func (s *Server) logout(c *gin.Context) {
	token, _ := c.Cookie(common.RefreshTokenCookieName)

	err := s.users.Logout(c.Request.Context(), token)
	switch {
	case errors.Is(err, common.ErrMissingToken):
		fail(c, http.StatusBadRequest, "no session cookie")
		return
	case err != nil:
		writeError(c, err)
		return
	}

	s.setRefreshCookie(c, "", -1)
	respond(c, http.StatusOK, "logged out", nil)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.users.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", users)
}

func (s *Server) getUser(c *gin.Context) {
	u, err := s.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", u)
}

func (s *Server) updateUser(c *gin.Context) {
	var req services.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.users.UpdateUser(c.Request.Context(), currentUser(c).ID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "user updated", u)
}

func (s *Server) deleteUser(c *gin.Context) {
	if err := s.users.DeleteUser(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "user deleted", nil)
}

// setRefreshCookie writes the session cookie. maxAge < 0 deletes it.
func (s *Server) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if s.opts.Production {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: sameSite,
	})
}
