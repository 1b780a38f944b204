package types

import "github.com/pkg/errors"

// Sentinel error kinds. Callers wrap these with context via pkg/errors
// and test for them with errors.Is; the kind survives wrapping.
var (
	ErrInvalidLink      = errors.New("invalid profile link")
	ErrProfilePrivate   = errors.New("profile is private")
	ErrInventoryPrivate = errors.New("inventory is private")
	ErrSteamIDMissing   = errors.New("steam id not linked")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrUnavailable      = errors.New("upstream unavailable")
	ErrStorage          = errors.New("storage failure")
)

// Code maps an error to its wire code for HTTP bodies and logs.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidLink):
		return "INVALID_LINK"
	case errors.Is(err, ErrProfilePrivate):
		return "PROFILE_PRIVATE"
	case errors.Is(err, ErrInventoryPrivate):
		return "INVENTORY_PRIVATE"
	case errors.Is(err, ErrSteamIDMissing):
		return "STEAM_ID_MISSING"
	case errors.Is(err, ErrPriceUnavailable):
		return "PRICE_UNAVAILABLE"
	case errors.Is(err, ErrStorage):
		return "STORAGE_ERROR"
	default:
		return "UNAVAILABLE"
	}
}
