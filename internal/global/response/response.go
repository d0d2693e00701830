package response

import (
	"errors"
	"extension-portal/config"
	"extension-portal/internal/global/sentry"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrInvalidRequest         = newError(40000, http.StatusBadRequest, "请求参数错误")
	ErrValidation             = newError(40001, http.StatusBadRequest, "缺少必填内容")
	ErrInvalidPassword        = newError(40002, http.StatusBadRequest, "账号或密码错误")
	ErrTokenInvalid           = newError(40100, http.StatusUnauthorized, "登录状态无效")
	ErrAuthExpired            = newError(40101, http.StatusUnauthorized, "登录已过期，请重新登录")
	ErrUnauthorized           = newError(40300, http.StatusForbidden, "权限不足")
	ErrForbidden              = newError(40301, http.StatusForbidden, "无权操作该资源")
	ErrNotFound               = newError(40400, http.StatusNotFound, "资源不存在")
	ErrAlreadyExists          = newError(40900, http.StatusConflict, "资源已存在")
	ErrInvalidStateTransition = newError(40901, http.StatusConflict, "当前评审状态不允许该操作")
	ErrDatabase               = newError(50000, http.StatusInternalServerError, "数据库错误")
	ErrServerInternal         = newError(50001, http.StatusInternalServerError, "服务器内部错误")
	ErrStorage                = newError(50002, http.StatusInternalServerError, "文件存储失败")
	ErrTransport              = newError(50200, http.StatusBadGateway, "后端服务不可用")
)

var registry = map[int32]*Error{}

func init() {
	for _, e := range []*Error{
		ErrInvalidRequest, ErrValidation, ErrInvalidPassword, ErrTokenInvalid, ErrAuthExpired,
		ErrUnauthorized, ErrForbidden, ErrNotFound, ErrAlreadyExists, ErrInvalidStateTransition,
		ErrDatabase, ErrServerInternal, ErrStorage, ErrTransport,
	} {
		registry[e.Code] = e
	}
}

func lookup(code int32) (*Error, bool) {
	e, ok := registry[code]
	return e, ok
}

// ResponseBody 统一响应体，失败时 detail 与 msg 相同
type ResponseBody struct {
	Code   int32  `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Origin string `json:"origin,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data ...any) {
	body := ResponseBody{Code: 200, Msg: "success"}
	if len(data) > 0 {
		body.Data = data[0]
	}
	c.JSON(http.StatusOK, body)
}

// Fail 写出错误响应，非 *Error 类型按服务器内部错误处理
func Fail(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = ErrServerInternal.WithOrigin(err)
	}

	c.Set(ErrorContextKey, e)
	sentry.CaptureException(c, e)

	body := ResponseBody{Code: e.Code, Msg: e.Message, Detail: e.Message}
	if config.Get().Mode == config.ModeDebug {
		body.Origin = e.Origin
	}
	c.AbortWithStatusJSON(e.HTTPStatus(), body)
}

// Recovery 捕获 panic 并返回服务器内部错误
func Recovery(c *gin.Context) {
	if r := recover(); r != nil {
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", r)
		}
		Fail(c, ErrServerInternal.WithOrigin(err))
	}
}
