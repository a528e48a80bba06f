package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"coinboard/internal/domain"
)

func (h *handlers) listRootCategories(c *gin.Context) {
	roots, err := h.deps.CategorySvc.ListRoots(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categoryList(roots))
}

func (h *handlers) categoryTree(c *gin.Context) {
	tree, err := h.deps.CategorySvc.ListTree(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if tree == nil {
		tree = []domain.CategoryNode{}
	}
	c.JSON(http.StatusOK, gin.H{"results": tree})
}

func (h *handlers) categoryByName(c *gin.Context) {
	cat, err := h.deps.CategorySvc.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *handlers) getCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cat, err := h.deps.CategorySvc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *handlers) listChildCategories(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	kids, err := h.deps.CategorySvc.ListChildren(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categoryList(kids))
}

func (h *handlers) createCategory(c *gin.Context) {
	var req domain.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cat, err := h.deps.CategorySvc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *handlers) updateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req domain.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cat, err := h.deps.CategorySvc.Update(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *handlers) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	mode, err := domain.ParseDeleteMode(c.Query("mode"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.deps.CategorySvc.Delete(c.Request.Context(), id, mode); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type categoryListResponse struct {
	Count   int               `json:"count"`
	Results []domain.Category `json:"results"`
}

func categoryList(cs []domain.Category) categoryListResponse {
	if cs == nil {
		cs = []domain.Category{}
	}
	return categoryListResponse{Count: len(cs), Results: cs}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
