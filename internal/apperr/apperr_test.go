package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsKeepMessageVerbatim(t *testing.T) {
	v := NewValidation("Discount is 100% off")
	assert.Equal(t, Validation, v.Kind)
	assert.Equal(t, "Discount is 100% off", v.Error())
	assert.Equal(t, http.StatusBadRequest, v.HTTPStatus())

	nf := NewNotFound("User data not found")
	assert.Equal(t, NotFound, nf.Kind)
	assert.Equal(t, http.StatusNotFound, nf.HTTPStatus())

	assert.Equal(t, http.StatusUnauthorized, Unauthorized("Unauthorized").HTTPStatus())
}

func TestAsAndIs(t *testing.T) {
	wrapped := fmt.Errorf("gateway: %w", NewNotFound("User data not found"))
	assert.True(t, Is(wrapped, NotFound))
	assert.False(t, Is(wrapped, Validation))
	assert.Equal(t, "User data not found", As(wrapped, "fallback").Message)

	plain := errors.New("boom")
	ae := As(plain, "Something went wrong")
	assert.Equal(t, Internal, ae.Kind)
	assert.ErrorIs(t, ae, plain)
	assert.Equal(t, http.StatusInternalServerError, ae.HTTPStatus())

	assert.Equal(t, http.StatusConflict, NewValidation("x").WithStatus(http.StatusConflict).HTTPStatus())
}
