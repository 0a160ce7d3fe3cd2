package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linklander/backend/internal/entity"
	apperrors "linklander/backend/pkg/errors"
)

type addTagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type clickTagRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) listTags(c *gin.Context) {
	tags, err := h.gateway.GetAllTags(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *Handler) addTag(c *gin.Context) {
	var req addTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id, err := h.gateway.AddTag(ctx, req.Name, req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}

	tag, err := h.gateway.GetTagByUUID(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *Handler) getTag(c *gin.Context) {
	tag, err := h.gateway.GetTagByUUID(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (h *Handler) deleteTag(c *gin.Context) {
	if err := h.gateway.DeleteTag(c.Request.Context(), c.Param("uuid")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteTags(c *gin.Context) {
	property, err := entity.ParseTagProperty(c.DefaultQuery("property", "NAME"))
	if err != nil {
		h.respondError(c, apperrors.NewUnsupportedField("tag", c.Query("property")))
		return
	}
	mode, err := parseMode(c.DefaultQuery("mode", "EXACT"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	deleted, err := h.gateway.DeleteTags(c.Request.Context(), property, c.Query("value"), mode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) updateTag(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	property, err := entity.ParseTagProperty(req.Property)
	if err != nil {
		h.respondError(c, apperrors.NewUnsupportedField("tag", req.Property))
		return
	}

	if err := h.gateway.UpdateTag(c.Request.Context(), property, req.Match, req.Value); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) clickTag(c *gin.Context) {
	var req clickTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.gateway.IncrementTagClick(c.Request.Context(), req.Name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// linksForTag groups the links of every tag whose name contains q
func (h *Handler) linksForTag(c *gin.Context) {
	result, err := h.gateway.SearchLinksForTagName(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
