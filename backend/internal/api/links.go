package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linklander/backend/internal/entity"
	apperrors "linklander/backend/pkg/errors"
)

type addLinkRequest struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type patchLinkRequest struct {
	Name  *string `json:"name"`
	URL   *string `json:"url"`
	Title *string `json:"title"`
}

type scoreRequest struct {
	Score *float64 `json:"score" binding:"required"`
}

type linkTagsRequest struct {
	Tags []string `json:"tags"`
}

type updateRequest struct {
	Property string `json:"property" binding:"required"`
	Match    string `json:"match"`
	Value    string `json:"value"`
}

func (h *Handler) listLinks(c *gin.Context) {
	links, err := h.gateway.GetAllLinks(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

func (h *Handler) addLink(c *gin.Context) {
	var req addLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	title := req.Title
	if title == "" && h.titles != nil && strings.TrimSpace(req.URL) != "" {
		title = h.titles.ResolveOrEmpty(ctx, req.URL)
	}

	id, err := h.gateway.AddLink(ctx, req.Name, req.URL, title)
	if err != nil {
		h.respondError(c, err)
		return
	}

	link, err := h.gateway.GetLinkByUUID(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *Handler) getLink(c *gin.Context) {
	link, err := h.gateway.GetLinkByUUID(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *Handler) patchLink(c *gin.Context) {
	var req patchLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	changes := make(map[string]string, 3)
	if req.Name != nil {
		changes[entity.LinkName.Key()] = *req.Name
	}
	if req.URL != nil {
		changes[entity.LinkURL.Key()] = *req.URL
	}
	if req.Title != nil {
		changes[entity.LinkTitle.Key()] = *req.Title
	}
	if len(changes) == 0 {
		badRequest(c, "no fields to update")
		return
	}

	ctx := c.Request.Context()
	id := c.Param("uuid")
	if err := h.gateway.SetLinkProperties(ctx, id, changes); err != nil {
		h.respondError(c, err)
		return
	}

	link, err := h.gateway.GetLinkByUUID(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *Handler) deleteLink(c *gin.Context) {
	if err := h.gateway.DeleteLink(c.Request.Context(), c.Param("uuid")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteLinks(c *gin.Context) {
	property, err := entity.ParseLinkProperty(c.Query("property"))
	if err != nil {
		h.respondError(c, apperrors.NewUnsupportedField("link", c.Query("property")))
		return
	}
	mode, err := parseMode(c.DefaultQuery("mode", "EXACT"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	deleted, err := h.gateway.DeleteLinks(c.Request.Context(), property, c.Query("value"), mode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) findLinks(c *gin.Context) {
	field, err := entity.ParseLinkProperty(c.DefaultQuery("field", "NAME"))
	if err != nil {
		h.respondError(c, apperrors.NewUnsupportedField("link", c.Query("field")))
		return
	}

	links, err := h.gateway.SearchLinks(c.Request.Context(), field, c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

func (h *Handler) updateLink(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	property, err := entity.ParseLinkProperty(req.Property)
	if err != nil {
		h.respondError(c, apperrors.NewUnsupportedField("link", req.Property))
		return
	}

	if err := h.gateway.UpdateLink(c.Request.Context(), property, req.Match, req.Value); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) setScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.gateway.UpdateLinkScore(c.Request.Context(), c.Param("uuid"), *req.Score); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// visitLink counts the click and redirects to the stored url
func (h *Handler) visitLink(c *gin.Context) {
	ctx := c.Request.Context()
	link, err := h.gateway.GetLinkByUUID(ctx, c.Param("uuid"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.gateway.RecordLinkClick(ctx, link.UUID)
	c.Redirect(http.StatusFound, link.URL)
}

func (h *Handler) linkTags(c *gin.Context) {
	tags, err := h.gateway.GetTagsForLink(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *Handler) setLinkTags(c *gin.Context) {
	var req linkTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id := c.Param("uuid")
	if err := h.gateway.SetLinkTags(ctx, id, req.Tags); err != nil {
		h.respondError(c, err)
		return
	}

	tags, err := h.gateway.GetTagsForLink(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *Handler) tagLink(c *gin.Context) {
	if err := h.gateway.AddTagToLink(c.Request.Context(), c.Param("uuid"), c.Param("tag")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) untagLink(c *gin.Context) {
	if err := h.gateway.RemoveTagFromLink(c.Request.Context(), c.Param("uuid"), c.Param("tag")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// searchLinks runs the configured provider and returns hits in display order
func (h *Handler) searchLinks(c *gin.Context) {
	query := c.Query("q")
	hits, err := h.search.Search(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   hits.Len(),
		"results": hits.Ranked(),
	})
}

func parseMode(raw string) (entity.DeletionMode, error) {
	mode, err := entity.ParseDeletionMode(raw)
	if err != nil {
		return 0, apperrors.NewValidation("mode", "must be EXACT or SOFT")
	}
	return mode, nil
}
