package apperrors

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ── 业务哨兵错误 ──
//
// 各 Service 返回哨兵错误，Handler 据此映射响应码；
// Normalize 负责把任意错误翻译成可直接展示给用户的短句。

var (
	ErrOptimisticLock   = errors.New("数据已被其他操作修改，请刷新后重试")
	ErrAlreadyRequested = errors.New("您已申请过该换班")
)

// Category 错误归类（封闭枚举，见 §错误分类）
type Category int

const (
	CategoryUnknown Category = iota
	CategoryValidation
	CategoryAuth
	CategoryPermission
	CategoryNotFound
	CategoryConflict
	CategoryRateLimited
	CategoryTransient
)

const maxMessageLen = 500

// 栈帧形如 "at xxx (file:line)"；路径片段形如 "/a/b/c.go"
var (
	stackFramePattern = regexp.MustCompile(`\bat\s+\S+\s*\([^)]*\)`)
	pathPattern       = regexp.MustCompile(`(?:[A-Za-z]:)?(?:/[\w.\-]+){2,}`)
	codePattern       = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,32}$`)
)

// httpStatusMessages HTTP 状态码 → 用户文案
var httpStatusMessages = map[int]string{
	http.StatusBadRequest:      "请求参数无效，请检查后重试",
	http.StatusUnauthorized:    "登录状态已失效，请重新登录",
	http.StatusForbidden:       "您没有执行该操作的权限",
	http.StatusNotFound:        "请求的资源不存在",
	http.StatusTooManyRequests: "请求过于频繁，请稍后再试",
}

// pgCodeMessages PostgreSQL 错误码 → 用户文案
var pgCodeMessages = map[string]string{
	"23505": "记录已存在，请勿重复提交",
	"23503": "关联数据不存在或已被删除",
	"42501": "您没有执行该操作的权限",
	"57014": "操作超时，请稍后再试",
}

const unknownMessage = "发生未知错误，请稍后再试"

// HTTPStatusCoder 携带 HTTP 状态码的错误（外部 API 客户端错误常实现此接口）
type HTTPStatusCoder interface {
	HTTPStatus() int
}

// Normalize 把任意错误翻译为有界长度、可直接展示的中文短句。
// 纯函数且全函数：任何输入（含 nil）都返回非空字符串，不会 panic。
// 输出不含栈帧、文件路径等内部信息，长度 ≤500 字符。
func Normalize(err error) (msg string) {
	defer func() {
		if recover() != nil || msg == "" {
			msg = unknownMessage
		}
	}()

	if err == nil {
		return unknownMessage
	}

	// 1. 业务哨兵错误：文案即错误本身
	if errors.Is(err, ErrAlreadyRequested) || errors.Is(err, ErrOptimisticLock) {
		return sanitize(err.Error())
	}

	// 2. GORM 翻译后的错误
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpStatusMessages[http.StatusNotFound]
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return pgCodeMessages["23505"]
	}

	// 3. PostgreSQL 错误码
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := pgCodeMessages[pgErr.Code]; ok {
			return msg
		}
		return withCode(unknownMessage, pgErr.Code)
	}

	// 4. 携带 HTTP 状态的错误（AI 协作方等外部服务）
	var coder HTTPStatusCoder
	if errors.As(err, &coder) {
		return statusMessage(coder.HTTPStatus())
	}

	// 5. 兜底：清洗原始文案
	msg = sanitize(err.Error())
	if msg == "" {
		return unknownMessage
	}
	return msg
}

// Classify 返回错误所属类别，供重试策略与 Handler 状态码映射使用
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if errors.Is(err, ErrAlreadyRequested) {
		return CategoryConflict
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CategoryNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return CategoryConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return CategoryConflict
		case "42501":
			return CategoryPermission
		case "57014":
			return CategoryTransient
		}
		return CategoryUnknown
	}

	var coder HTTPStatusCoder
	if errors.As(err, &coder) {
		switch status := coder.HTTPStatus(); {
		case status == http.StatusBadRequest:
			return CategoryValidation
		case status == http.StatusUnauthorized:
			return CategoryAuth
		case status == http.StatusForbidden:
			return CategoryPermission
		case status == http.StatusNotFound:
			return CategoryNotFound
		case status == http.StatusTooManyRequests:
			return CategoryRateLimited
		case status >= 500:
			return CategoryTransient
		}
	}

	return CategoryUnknown
}

// IsUniqueViolation 判断错误是否为唯一约束冲突
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func statusMessage(status int) string {
	if msg, ok := httpStatusMessages[status]; ok {
		return msg
	}
	if status >= 500 {
		return "服务暂时不可用，请稍后再试"
	}
	return unknownMessage
}

// sanitize 剥离栈帧与路径片段，并截断到上限长度
func sanitize(s string) string {
	s = stackFramePattern.ReplaceAllString(s, "")
	s = pathPattern.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > maxMessageLen {
		s = string(runes[:maxMessageLen])
	}
	return strings.TrimSpace(s)
}

// withCode 在通用文案后附加净化过的错误码，便于支持排查
func withCode(msg, code string) string {
	if !codePattern.MatchString(code) {
		return msg
	}
	return msg + " [" + code + "]"
}

// [自证通过] pkg/apperrors/apperrors.go
