package service

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their JSON name.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return field.Name
		}
		return name
	})
	return v
}

// txRunner scopes a unit of work in a transaction.
type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// directRunner executes work without a transaction. Used when no TxManager is wired.
type directRunner struct{}

func (directRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// DeletePolicy decides what happens to live enrollments when a student or course is deleted.
type DeletePolicy int

const (
	// DeleteRestrict rejects the delete with a conflict error.
	DeleteRestrict DeletePolicy = iota
	// DeleteCascade removes the dependent enrollments in the same transaction.
	DeleteCascade
)

// DeletePolicyFor maps the cascade flag from configuration.
func DeletePolicyFor(cascade bool) DeletePolicy {
	if cascade {
		return DeleteCascade
	}
	return DeleteRestrict
}

func (p DeletePolicy) String() string {
	if p == DeleteCascade {
		return "cascade"
	}
	return "restrict"
}
