package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

const (
	ServerInternalError = 500

	ArgsError          = 1001 // malformed request
	UnauthenticatedErr = 1002 // missing/invalid token
	NoPermissionError  = 1003 // acting identity lacks role or ownership
	RecordNotFoundErr  = 1004 // target message/conversation/user absent
	PersistenceErr     = 1005 // durable write or read failed
	DuplicateErr       = 1006 // record id already taken
)

var (
	ErrBadRequest      = NewCodeError(ArgsError, "bad request")
	ErrUnauthenticated = NewCodeError(UnauthenticatedErr, "unauthenticated")
	ErrUnauthorized    = NewCodeError(NoPermissionError, "unauthorized")
	ErrNotFound        = NewCodeError(RecordNotFoundErr, "not found")
	ErrPersistence     = NewCodeError(PersistenceErr, "persistence failure")
	ErrDuplicate       = NewCodeError(DuplicateErr, "duplicate record")
	ErrInternal        = NewCodeError(ServerInternalError, "internal server error")
)

var httpStatus = map[int]int{
	ServerInternalError: http.StatusInternalServerError,
	ArgsError:           http.StatusBadRequest,
	UnauthenticatedErr:  http.StatusUnauthorized,
	NoPermissionError:   http.StatusForbidden,
	RecordNotFoundErr:   http.StatusNotFound,
	PersistenceErr:      http.StatusInternalServerError,
	DuplicateErr:        http.StatusConflict,
}

func NewCodeError(code int, msg string) CodeError {
	return CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e CodeError) WithDetail(detail string) CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

// Wrap attaches a stack trace.
func (e CodeError) Wrap() error {
	return pkgerrors.WithStack(e)
}

func (e CodeError) WrapMsg(msg string, kv ...any) error {
	if msg != "" || len(kv) > 0 {
		e = e.WithDetail(toString(msg, kv))
	}
	return pkgerrors.WithStack(e)
}

// Is matches on code only, so errors.Is(err, ErrNotFound) holds whatever the detail.
func (e CodeError) Is(target error) bool {
	var t CodeError
	switch v := target.(type) {
	case CodeError:
		t = v
	case *CodeError:
		if v == nil {
			return false
		}
		t = *v
	default:
		return false
	}
	return e.Code == t.Code
}

const initialCapacity = 3

func (e CodeError) Error() string {
	v := make([]string, 0, initialCapacity)
	v = append(v, strconv.Itoa(e.Code), e.Msg)

	if e.Detail != "" {
		v = append(v, e.Detail)
	}

	return strings.Join(v, " ")
}

// New returns a plain error with a stack; kv pairs are appended to msg.
func New(msg string, kv ...any) error {
	return pkgerrors.New(toString(msg, kv))
}

// Wrap attaches a stack to an arbitrary error; nil stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, toString(msg, kv))
}

// Persistence wraps a driver error as ErrPersistence, keeping the cause reachable.
func Persistence(err error, op string) error {
	if err == nil {
		return nil
	}
	return &persistenceError{code: ErrPersistence.WithDetail(op), cause: pkgerrors.WithStack(err)}
}

type persistenceError struct {
	code  CodeError
	cause error
}

func (p *persistenceError) Error() string { return p.code.Error() + ": " + p.cause.Error() }
func (p *persistenceError) Unwrap() []error {
	return []error{p.code, p.cause}
}

// AsCode extracts the CodeError carried by err; unknown errors map to ErrInternal.
func AsCode(err error) CodeError {
	var ce CodeError
	if errors.As(err, &ce) {
		return ce
	}
	var pce *CodeError
	if errors.As(err, &pce) && pce != nil {
		return *pce
	}
	return ErrInternal
}

// HTTPStatus maps err onto a response status.
func HTTPStatus(err error) int {
	if s, ok := httpStatus[AsCode(err).Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}
