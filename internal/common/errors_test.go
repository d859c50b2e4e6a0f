package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", Invalid("price", "не может быть отрицательной"), ErrValidation},
		{"not found", NotFound("товар", "SWD"), ErrNotFound},
		{"conflict", &ConflictError{Entity: "товар", Key: "SWD", Reason: "уже существует"}, ErrConflict},
		{"stock", &InsufficientStockError{ProductCode: "SWD", Requested: 2, Available: 1}, ErrInsufficientStock},
		{"balance", &InsufficientBalanceError{GrowID: "bob", Currency: "WL", Balance: 1, Amount: 3}, ErrInsufficientBalance},
		{"persistence", Persistence("op", errors.New("conn reset")), ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("контекст: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
			assert.True(t, Classified(wrapped))
		})
	}
}

func TestPersistenceKeepsClassifiedErrors(t *testing.T) {
	nf := NotFound("товар", "X")
	assert.Same(t, nf, Persistence("op", nf))
	assert.Nil(t, Persistence("op", nil))

	raw := errors.New("boom")
	err := Persistence("insert", raw)
	var pe *PersistenceError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, "insert", pe.Op)
	assert.ErrorIs(t, err, raw)
}

func TestInsufficientStockDetails(t *testing.T) {
	err := fmt.Errorf("allocate: %w", &InsufficientStockError{ProductCode: "SWD", Requested: 5, Available: 2})
	var se *InsufficientStockError
	if assert.ErrorAs(t, err, &se) {
		assert.Equal(t, 2, se.Available)
	}
}
