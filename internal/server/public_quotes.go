package server

import (
	"errors"
	"net/http"
	"strings"

	publicquotedomain "github.com/fieldserve/tradebill/internal/publicquote/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetPublicQuote(c *gin.Context) {
	orgID, token, ok := publicQuoteParams(c)
	if !ok {
		s.respondPublicQuoteUnavailable(c)
		return
	}
	if !s.publicQuoteLimiter.Allow(publicQuoteRateKey(orgID, token, c.ClientIP())) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	view, err := s.publicQuoteSvc.GetQuote(c.Request.Context(), orgID, token)
	if err != nil {
		s.handlePublicQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type publicAcceptPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) AcceptPublicQuote(c *gin.Context) {
	orgID, token, ok := publicQuoteParams(c)
	if !ok {
		s.respondPublicQuoteUnavailable(c)
		return
	}
	if !s.publicQuoteLimiter.Allow(publicQuoteRateKey(orgID, token, c.ClientIP())) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	var payload publicAcceptPayload
	if err := c.BindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.publicQuoteSvc.Accept(c.Request.Context(), publicquotedomain.AcceptRequest{
		OrgID: orgID,
		Token: token,
		Name:  payload.Name,
		Email: payload.Email,
	})
	if err != nil {
		s.handlePublicQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type publicRejectPayload struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectPublicQuote(c *gin.Context) {
	orgID, token, ok := publicQuoteParams(c)
	if !ok {
		s.respondPublicQuoteUnavailable(c)
		return
	}
	if !s.publicQuoteLimiter.Allow(publicQuoteRateKey(orgID, token, c.ClientIP())) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	var payload publicRejectPayload
	if err := c.ShouldBindJSON(&payload); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.publicQuoteSvc.Reject(c.Request.Context(), publicquotedomain.RejectRequest{
		OrgID:  orgID,
		Token:  token,
		Reason: payload.Reason,
	})
	if err != nil {
		s.handlePublicQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func publicQuoteParams(c *gin.Context) (string, string, bool) {
	orgID := strings.TrimSpace(c.Param("org_id"))
	token := strings.TrimSpace(c.Param("quote_token"))
	if orgID == "" || token == "" {
		return "", "", false
	}
	return orgID, token, true
}

func publicQuoteRateKey(orgID, token, ip string) string {
	if orgID == "" || token == "" {
		return ""
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	return orgID + ":" + token + ":" + ip
}

func (s *Server) handlePublicQuoteError(c *gin.Context, err error) {
	if errors.Is(err, publicquotedomain.ErrQuoteUnavailable) {
		s.respondPublicQuoteUnavailable(c)
		return
	}
	AbortWithError(c, err)
}

func (s *Server) respondPublicQuoteUnavailable(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, publicQuoteErrorResponse{
		Code:    "QUOTE_NOT_AVAILABLE",
		Message: "This quote link is no longer available.",
	})
}

type publicQuoteErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
