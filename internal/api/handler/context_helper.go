package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-planner/internal/api/middleware"
	"campus-planner/internal/planner"
	pkgerrors "campus-planner/pkg/errors"
	"campus-planner/pkg/jwt"
	"campus-planner/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetClaims 提取当前 Access Token 的声明（注销时需要 jti 与过期时间）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.ContextClaims)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// handleCommonError 输入校验与版本冲突在各模块中含义相同；已处理时返回 true
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, planner.ErrValidation):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 10006, "输入校验失败", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, 10007, err.Error())
	default:
		return false
	}
	return true
}
