package profile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ASTXRTYS/picket-mvp/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// GET /profiles/me
	r.GET("/profiles/me", h.GetMe)
	// PUT /profiles/me
	r.PUT("/profiles/me", h.UpdateMe)
}

func (h *Handler) GetMe(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.svc.Update(c.Request.Context(), c.GetString(auth.CtxUserIDKey), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
