package session

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ASTXRTYS/picket-mvp/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// POST /sessions (check-in)
	r.POST("/sessions", h.CheckIn)
	// POST /sessions/:session_ulid/close (clock-out)
	r.POST("/sessions/:session_ulid/close", h.ClockOut)
	// GET /sessions/open
	r.GET("/sessions/open", h.FindOpen)
	// GET /sessions/today
	r.GET("/sessions/today", h.Today)
}

// RegisterCoordinatorRoutes mounts the read-only dashboard; callers gate
// it behind the admin role.
func RegisterCoordinatorRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/sites/:site_ulid/dashboard", h.Dashboard)
}

func (h *Handler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.CheckIn(c.Request.Context(), c.GetString(auth.CtxUserIDKey), req.SiteID)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	c.Header("Location", "/sessions/"+res.SessionULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ClockOut(c *gin.Context) {
	// Every field is optional, so a bare POST with no body is valid.
	var req ClockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.ClockOut(c.Request.Context(), c.GetString(auth.CtxUserIDKey), c.Param("session_ulid"), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) FindOpen(c *gin.Context) {
	res, err := h.svc.FindOpen(c.Request.Context(), c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, gin.H{"session": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": res})
}

func (h *Handler) Today(c *gin.Context) {
	res, err := h.svc.Today(c.Request.Context(), c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Dashboard(c *gin.Context) {
	res, err := h.svc.Dashboard(c.Request.Context(), c.Param("site_ulid"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
