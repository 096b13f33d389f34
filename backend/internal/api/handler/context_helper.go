package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"wedly/backend/internal/api/middleware"
	pkgerrors "wedly/backend/pkg/errors"
	"wedly/backend/pkg/i18n"
	"wedly/backend/pkg/jwt"
	"wedly/backend/pkg/response"
)

// MustGetWeddingID 从 Gin 上下文中安全提取 wedding_id。
// 如果 OwnerAuth 中间件未正确注入 wedding_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetWeddingID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextWeddingID)
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

// pathID 解析路径参数 :id；非 UUID 一律按对应模块的"不存在"处理
func pathID(c *gin.Context, notFound error, handle func(*gin.Context, error)) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handle(c, notFound)
		return "", false
	}
	return id.String(), true
}

// GetOwnerClaims 提取主人会话声明；以管理密钥直连时不存在
func GetOwnerClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.ContextOwnerClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok && claims != nil
}

// requestLocale ?lang= 优先，其次 Accept-Language
func requestLocale(c *gin.Context) string {
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return lang
	}
	return i18n.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
}

// RegisterValidatorTagNames 校验错误中的字段名使用 json 标签
func RegisterValidatorTagNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}

// writeBindError 绑定失败统一出口：超限 413，字段错误 400 + details
func writeBindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		ve := &pkgerrors.ValidationError{}
		for _, fe := range verrs {
			ve.Add(fieldPath(fe), "%s", ruleMessage(fe))
		}
		response.Validation(c, ve)
		return
	}
	response.Validation(c, pkgerrors.NewValidation("body", "请求体格式错误"))
}

// fieldPath 去掉顶层结构体名，如 SubmitRSVPRequest.guest_name → guest_name
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "email":
		return "邮箱格式无效"
	case "max":
		return "超出最大长度或取值 " + fe.Param()
	case "min":
		return "低于最小长度或取值 " + fe.Param()
	case "len":
		return "长度必须为 " + fe.Param()
	case "oneof":
		return "取值必须为 " + fe.Param() + " 之一"
	default:
		return "校验失败: " + fe.Tag()
	}
}

// writeCommonError 各模块共享的兜底映射：字段校验、乐观锁，其余 500
func writeCommonError(c *gin.Context, err error) {
	if ve, ok := pkgerrors.AsValidation(err); ok {
		response.Validation(c, ve)
		return
	}
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		response.Conflict(c, 20006, err.Error())
		return
	}
	response.InternalError(c)
}
