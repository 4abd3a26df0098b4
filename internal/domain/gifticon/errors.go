package gifticon

import "errors"

var (
	ErrGifticonNotFound   = errors.New("gifticon not found")
	ErrRedemptionNotFound = errors.New("redemption not found")
	ErrOutOfStock         = errors.New("gifticon out of stock")
	ErrAlreadyDecided     = errors.New("redemption already decided")
	ErrInvalidSortKey     = errors.New("invalid sort key")
)
