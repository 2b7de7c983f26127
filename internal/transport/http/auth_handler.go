package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mailadmin/backend/internal/auth"
	"mailadmin/backend/internal/auth/jwt"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService *auth.Service
	jwtManager  *jwt.Manager
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, jwtManager *jwt.Manager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtManager:  jwtManager,
	}
}

// loginRequest 登录请求
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary 登录
// @Description 校验用户名密码并签发访问令牌与刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录凭据"
// @Success 200 {object} Response{data=jwt.TokenPair}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.authService.Login(auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrAccountInactive):
			Unauthorized(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	pair, err := h.jwtManager.GenerateTokenPair(account.ID, account.Username, string(account.Role))
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}

	c.SetCookie("access_token", pair.AccessToken, int(pair.ExpiresIn), "/", "", false, true)
	Success(c, pair)
}

// refreshRequest 刷新令牌请求
type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh godoc
// @Summary 刷新访问令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "刷新令牌"
// @Success 200 {object} Response{data=jwt.TokenPair}
// @Failure 401 {object} Response
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	pair, err := h.jwtManager.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		Unauthorized(c, "刷新令牌无效或已过期")
		return
	}
	Success(c, pair)
}

// Me godoc
// @Summary 当前账户信息
// @Tags Auth
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	accountID := c.GetString("accountID")
	if accountID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	account, err := h.authService.GetAccountByID(accountID)
	if err != nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	Success(c, gin.H{
		"id":         account.ID,
		"username":   account.Username,
		"first_name": account.FirstName,
		"last_name":  account.LastName,
		"role":       account.Role,
		"is_active":  account.IsActive,
	})
}
