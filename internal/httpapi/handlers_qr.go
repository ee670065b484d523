package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qrforge/qrforge/internal/qr"
)

type createQRRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Color   string `json:"color"`
}

func (s *Server) handleCreateQR(c *gin.Context) {
	var req createQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	code, err := s.qr.Create(c.Request.Context(), currentUser(c).ID, qr.CreateParams{
		Title:   req.Title,
		Content: req.Content,
		Color:   req.Color,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "qr code created", toQRPayload(code))
}

func (s *Server) handleQRHistory(c *gin.Context) {
	codes, err := s.qr.History(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", toQRPayloads(codes))
}

func (s *Server) handleQRDetails(c *gin.Context) {
	code, err := s.qr.Details(c.Request.Context(), currentUser(c).ID, c.Param("idOrSlug"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", toQRPayload(code))
}

type updateQRRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Color   string `json:"color"`
}

func (s *Server) handleUpdateQR(c *gin.Context) {
	var req updateQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	code, err := s.qr.Update(c.Request.Context(), currentUser(c).ID, c.Param("idOrSlug"), qr.UpdateParams{
		Title:   req.Title,
		Content: req.Content,
		Color:   req.Color,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "qr code updated", toQRPayload(code))
}

func (s *Server) handleDeleteQR(c *gin.Context) {
	if err := s.qr.Delete(c.Request.Context(), currentUser(c).ID, c.Param("idOrSlug")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "qr code deleted", nil)
}

// handleScan is the public target encoded into every image. It counts the
// scan and forwards to the stored content when it is a URL; otherwise the
// content is returned inline.
func (s *Server) handleScan(c *gin.Context) {
	code, err := s.qr.Scan(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	if strings.HasPrefix(code.Content, "http://") || strings.HasPrefix(code.Content, "https://") {
		c.Redirect(http.StatusFound, code.Content)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"content": code.Content})
}
