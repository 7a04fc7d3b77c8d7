package core

import "errors"

var (
	// bid errors
	ErrBidTooLow      = errors.New("bid too low")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAuctionNotOpen = errors.New("auction not open")
	ErrInvalidCaller  = errors.New("invalid caller")
	ErrPaymentFailed  = errors.New("payment failed")

	// finalize errors
	ErrAuctionAlreadyFinalized = errors.New("auction already finalized")
	ErrAuctionNotYetEnded      = errors.New("auction not yet ended")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrTransferFailed          = errors.New("transfer failed")

	// withdraw errors
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
	ErrWithdrawalFailed  = errors.New("withdrawal failed")

	// construction errors
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidConfig   = errors.New("invalid auction config")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrBidTooLow, "bid_too_low"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrAuctionNotOpen, "auction_not_open"},
	{ErrInvalidCaller, "invalid_caller"},
	{ErrPaymentFailed, "payment_failed"},
	{ErrAuctionAlreadyFinalized, "auction_already_finalized"},
	{ErrAuctionNotYetEnded, "auction_not_yet_ended"},
	{ErrUnauthorized, "unauthorized"},
	{ErrTransferFailed, "transfer_failed"},
	{ErrNothingToWithdraw, "nothing_to_withdraw"},
	{ErrWithdrawalFailed, "withdrawal_failed"},
	{ErrInvalidDuration, "invalid_duration"},
	{ErrInvalidConfig, "invalid_config"},
}

// ErrorCode returns a stable machine-readable code for auction errors.
// Returns "" for nil and "internal" for errors that are not auction errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
