package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	upbitsvc "coinboard/internal/service/upbit"
)

func (h *handlers) getUpbitAccount(c *gin.Context) {
	u, _ := currentUser(c)
	view, err := h.deps.UpbitSvc.Get(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// upbitAccountExists answers 204 when the caller has a linked account and 404 otherwise.
func (h *handlers) upbitAccountExists(c *gin.Context) {
	u, _ := currentUser(c)
	ok, err := h.deps.UpbitSvc.Exists(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) linkUpbitAccount(c *gin.Context) {
	u, _ := currentUser(c)
	var req upbitsvc.LinkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	view, err := h.deps.UpbitSvc.Link(c.Request.Context(), u.ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) unlinkUpbitAccount(c *gin.Context) {
	u, _ := currentUser(c)
	if err := h.deps.UpbitSvc.Unlink(c.Request.Context(), u.ID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
