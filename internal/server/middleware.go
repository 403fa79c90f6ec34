package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/orgcontext"
	"github.com/gin-gonic/gin"
)

const (
	HeaderOrg   = "X-Org-ID"
	HeaderActor = "X-Actor"
)

// OrgContext resolves the acting organization from the X-Org-ID header and
// injects it, together with the optional actor identity, into the request
// context. Every service operation reads the organization from there.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if raw == "" && s.cfg.DefaultOrgID != 0 {
			raw = snowflake.ID(s.cfg.DefaultOrgID).String()
		}
		if raw == "" {
			AbortWithError(c, ErrOrgRequired)
			return
		}

		orgID, err := snowflake.ParseString(raw)
		if err != nil || orgID == 0 {
			AbortWithError(c, ErrOrgRequired)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), int64(orgID))
		if actor := strings.TrimSpace(c.GetHeader(HeaderActor)); actor != "" {
			ctx = orgcontext.WithActor(ctx, actor)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
