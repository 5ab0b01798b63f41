package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gophnotes/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *Server) listNotes(c *gin.Context) {
	notes, err := s.notes.List(c.Request.Context(), currentUser(c).ID, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", notes)
}

func (s *Server) createNote(c *gin.Context) {
	var req services.NoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := s.notes.Create(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, "note created", n)
}

func (s *Server) updateNote(c *gin.Context) {
	var req services.NoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := s.notes.Update(c.Request.Context(), currentUser(c).ID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "note updated", n)
}

func (s *Server) deleteNote(c *gin.Context) {
	if err := s.notes.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "note deleted", nil)
}
