package checkout

import "errors"

var (
	ErrEmptyCart      = errors.New("cart is empty, nothing to checkout")
	ErrMissingPayment = errors.New("payment details are required")
)
