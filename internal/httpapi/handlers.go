package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stepjourney/internal/domain"
)

type tokenRequest struct {
	ActorID string `json:"actorId"`
	Name    string `json:"name"`
}

type tokenResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// issueToken is the local sign-in: any non-empty actor id gets a token.
func (s *Server) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ActorID) == "" {
		respondError(c, http.StatusBadRequest, "bad_request", errors.New("actorId is required"))
		return
	}
	token, exp, err := s.issuer.Issue(strings.TrimSpace(req.ActorID), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondOK(c, tokenResponse{AccessToken: token, ExpiresAt: exp})
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (s *Server) me(c *gin.Context) {
	claims := claimsFrom(c)
	respondOK(c, user{ID: claims.Subject, Name: claims.Name})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.issuer.Revoke(c.Request.Context(), claimsFrom(c)); err != nil {
		s.fail(c, err)
		return
	}
	respondMessage(c, "logged out")
}

func (s *Server) listJourneys(c *gin.Context) {
	all, err := s.journeys.ListJourneys(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	page, limit := pageParams(c)
	items, p := paginate(all, page, limit)
	respondPage(c, items, p)
}

type stepsResponse struct {
	Journey domain.Block           `json:"journey"`
	Steps   []domain.FlattenedStep `json:"steps"`
}

func (s *Server) journeySteps(c *gin.Context) {
	root, steps, err := s.journeys.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondOK(c, stepsResponse{Journey: root, Steps: steps})
}

type blockResponse struct {
	Block    *domain.Block  `json:"block"`
	Children []domain.Block `json:"children"`
}

func (s *Server) getBlock(c *gin.Context) {
	ctx := c.Request.Context()
	b, err := s.blocks.GetBlock(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	children, err := s.blocks.ListChildren(ctx, b.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondOK(c, blockResponse{Block: b, Children: children})
}

type moveRequest struct {
	ParentID string `json:"parentId"`
	Index    *int   `json:"index"`
}

func (s *Server) moveBlock(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := s.blocks.MoveBlock(ctx, id, req.ParentID, index); err != nil {
		s.fail(c, err)
		return
	}
	b, err := s.blocks.GetBlock(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondOK(c, b)
}

func (s *Server) deleteBlock(c *gin.Context) {
	if err := s.blocks.DeleteBlock(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondMessage(c, "deleted")
}
