package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 分類錯誤種類
type ErrorKind string

const (
	KindInvalidInput        ErrorKind = "INVALID_INPUT"
	KindUpstreamUnavailable ErrorKind = "UPSTREAM_UNAVAILABLE"
	KindMalformedResponse   ErrorKind = "MALFORMED_RESPONSE"
	KindNoIngredients       ErrorKind = "NO_INGREDIENTS_FOUND"
	KindNotAProductLabel    ErrorKind = "NOT_A_PRODUCT_LABEL"
	KindTooBlurry           ErrorKind = "IMAGE_TOO_BLURRY"
)

// ClassificationError 管線對外的唯一錯誤型別
type ClassificationError struct {
	Kind       ErrorKind
	Message    string
	Suggestion string // TooBlurry
	Raw        string // MalformedResponse
	Err        error
}

var errNoJSON = errors.New("no JSON object found in reply")

// 可用 errors.Is 比對的哨兵錯誤
var (
	ErrInvalidInput        = &ClassificationError{Kind: KindInvalidInput, Message: "invalid input"}
	ErrUpstreamUnavailable = &ClassificationError{Kind: KindUpstreamUnavailable, Message: "classifier unavailable"}
	ErrMalformedResponse   = &ClassificationError{Kind: KindMalformedResponse, Message: "classifier reply could not be parsed"}
	ErrNoIngredients       = &ClassificationError{Kind: KindNoIngredients, Message: "no ingredients found"}
	ErrNotAProductLabel    = &ClassificationError{Kind: KindNotAProductLabel, Message: "image is not a product label"}
	ErrTooBlurry           = &ClassificationError{Kind: KindTooBlurry, Message: "image is too blurry to read"}
)

func (e *ClassificationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap 返回原始錯誤
func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// Is 以錯誤種類比對
func (e *ClassificationError) Is(target error) bool {
	var t *ClassificationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Status 對應的 HTTP 狀態碼
func (e *ClassificationError) Status() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNoIngredients, KindNotAProductLabel, KindTooBlurry:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Retryable 以相同輸入重試是否可能成功
func (e *ClassificationError) Retryable() bool {
	return e.Kind == KindUpstreamUnavailable || e.Kind == KindMalformedResponse
}

// Semantic 是否為分類器明確拒絕
func (e *ClassificationError) Semantic() bool {
	return e.Status() == http.StatusUnprocessableEntity
}

func invalidInput(msg string, err error) *ClassificationError {
	return &ClassificationError{Kind: KindInvalidInput, Message: msg, Err: err}
}

func upstreamUnavailable(err error) *ClassificationError {
	return &ClassificationError{Kind: KindUpstreamUnavailable, Message: ErrUpstreamUnavailable.Message, Err: err}
}

func malformedResponse(raw string, err error) *ClassificationError {
	return &ClassificationError{Kind: KindMalformedResponse, Message: ErrMalformedResponse.Message, Raw: raw, Err: err}
}

// AsClassificationError 取出 ClassificationError
func AsClassificationError(err error) (*ClassificationError, bool) {
	var ce *ClassificationError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
