package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "[cardinality] expected one row", New(ErrKindCardinality, "expected one row").Error())

	cause := errors.New("dial tcp: refused")
	err := Wrap(ErrKindConnectionFailed, "connect failed", cause)
	assert.Equal(t, "[connection_failed] connect failed: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", New(ErrKindNotFound, "x"), IsNotFound},
		{"timeout", New(ErrKindTimeout, "x"), IsTimeout},
		{"connection", New(ErrKindConnectionFailed, "x"), IsConnectionFailed},
		{"query", New(ErrKindQueryFailed, "x"), IsQueryFailed},
		{"input", New(ErrKindInvalidInput, "x"), IsInvalidInput},
		{"permission", New(ErrKindPermissionDenied, "x"), IsPermissionDenied},
		{"config", New(ErrKindConfigLoad, "x"), IsConfigLoad},
		{"introspection", New(ErrKindIntrospection, "x"), IsIntrospection},
		{"cardinality", New(ErrKindCardinality, "x"), IsCardinality},
		{"wrapped by fmt", fmt.Errorf("outer: %w", Newf(ErrKindNotFound, "oid %d", 7)), IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
	assert.Equal(t, "unknown", ErrKindUnknown.String())
}

func TestErrKind_String(t *testing.T) {
	assert.Equal(t, "introspection", ErrKindIntrospection.String())
	assert.Equal(t, "unknown", ErrKind(99).String())
	assert.True(t, Is(Wrap(ErrKindTimeout, "x", errors.New("y")), ErrKindTimeout))
}
