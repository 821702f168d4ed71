package user

import (
	"net/http"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/gin-gonic/gin"
)

// Handler 认证相关 HTTP 入口。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Signup POST /api/auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var in SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body"))
		return
	}
	result, err := h.svc.Signup(c.Request.Context(), in)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Role       string `json:"role"`
}

// Login POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body"))
		return
	}
	result, err := h.svc.Login(c.Request.Context(), req.Identifier, req.Password, req.Role)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
