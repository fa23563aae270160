package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"villasun/backend/internal/model"
	"villasun/backend/pkg/jwt"
	"villasun/backend/pkg/response"
)

// 上下文键
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxTokenJTI = "token_jti"
	CtxTokenExp = "token_exp"
)

var (
	ErrMissingToken = errors.New("缺少认证头")
	ErrRevokedToken = errors.New("Token 已吊销")
)

// TokenChecker Token 黑名单查询（Redis 实现，可为 nil）
type TokenChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// BearerToken 从 Authorization: Bearer <token> 中提取 Token
func BearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", jwt.ErrTokenInvalid
	}
	return parts[1], nil
}

// ParseSession 校验 Access Token 并检查黑名单
// 黑名单不可用时降级放行，只记录告警
func ParseSession(ctx context.Context, token string, jwtMgr *jwt.Manager, checker TokenChecker, logger *zap.Logger) (*jwt.Claims, error) {
	claims, err := jwtMgr.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != jwt.TokenTypeAccess {
		return nil, jwt.ErrTokenInvalid
	}
	if checker != nil {
		revoked, err := checker.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			logger.Warn("Token 黑名单查询失败，降级放行", zap.String("user_id", claims.UserID), zap.Error(err))
		} else if revoked {
			return nil, ErrRevokedToken
		}
	}
	return claims, nil
}

// JWTAuth JWT 认证中间件
func JWTAuth(jwtMgr *jwt.Manager, checker TokenChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c)
		if err != nil {
			response.Unauthorized(c, 10002, err.Error())
			c.Abort()
			return
		}

		claims, err := ParseSession(c.Request.Context(), token, jwtMgr, checker, logger)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, 10002, "Token 已过期")
			} else {
				response.Unauthorized(c, 10002, "Token 无效或已吊销")
			}
			c.Abort()
			return
		}

		var exp time.Time
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxTokenJTI, claims.ID)
		c.Set(CtxTokenExp, exp)

		c.Next()
	}
}

// TokenFromQuery EventSource 无法设置请求头，允许用 ?access_token= 传递
func TokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if token := c.Query("access_token"); token != "" {
				c.Request.Header.Set("Authorization", "Bearer "+token)
			}
		}
		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}

// AdminOnly 仅管理员
func AdminOnly() gin.HandlerFunc {
	return RoleAuth(model.RoleAdmin)
}
