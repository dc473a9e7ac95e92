package gateway

import "errors"

var (
	ErrInvalidAmount   = errors.New("the order amount is incorrect, please contact customer support")
	ErrOrderExpired    = errors.New("the order has expired, please place another order")
	ErrOrderNotPayable = errors.New("order not payable")
	ErrPayeeMismatch   = errors.New("callback payee does not match configured payee")
)
