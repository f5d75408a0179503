package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/mediscan/internal/knowledge"
)

// KnowledgeResponse lists the guidance records for one organ.
type KnowledgeResponse struct {
	Organ   knowledge.OrganType        `json:"organ"`
	Records []knowledge.GuidanceRecord `json:"records"`
}

func (c *Controller) initKnowledgeRoutes() {
	c.Group.GET("/knowledge/:organ", c.GetKnowledge)
}

// GetKnowledge handles GET /api/v2/knowledge/:organ.
func (c *Controller) GetKnowledge(ctx echo.Context) error {
	organ, err := knowledge.ParseOrganType(ctx.Param("organ"))
	if err != nil {
		return c.HandleError(ctx, err)
	}

	if cached, ok := c.knowledgeCache.Get(organ.String()); ok {
		if resp, ok := cached.(*KnowledgeResponse); ok {
			return ctx.JSON(http.StatusOK, resp)
		}
	}

	records, err := knowledge.Records(organ)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	resp := &KnowledgeResponse{Organ: organ, Records: records}
	c.knowledgeCache.Set(organ.String(), resp, cache.DefaultExpiration)
	return ctx.JSON(http.StatusOK, resp)
}
