package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/shared"
)

type sample struct {
	Email  string  `json:"email" validate:"required,email"`
	Amount float64 `json:"amount" validate:"gte=0"`
	Method string  `json:"paymentMethod" validate:"oneof=Cash Card"`
}

func TestStructReportsJSONNames(t *testing.T) {
	err := Struct(sample{Email: "nope", Amount: -1, Method: "Cheque"})
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrValidation))

	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "must be a valid email", verr.Fields["email"])
	require.Equal(t, "must be at least 0", verr.Fields["amount"])
	require.Equal(t, "must be one of Cash Card", verr.Fields["paymentMethod"])
}

func TestStructAcceptsValid(t *testing.T) {
	require.NoError(t, Struct(sample{Email: "a@b.co", Amount: 3, Method: "Card"}))
}
