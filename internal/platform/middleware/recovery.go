package middleware

import (
	"fmt"
	"runtime"

	"github.com/labstack/echo/v4"
)

// PanicError carries a recovered panic to ErrorHandler, which logs it with
// the request fields and answers 500.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recovery turns a panic in the handler chain into a *PanicError.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := make([]byte, 4096)
					stack = stack[:runtime.Stack(stack, false)]
					err = &PanicError{Value: r, Stack: stack}
				}
			}()
			return next(c)
		}
	}
}
