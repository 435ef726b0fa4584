package engine

import "errors"

var (
	ErrOutOfBounds          = errors.New("position out of bounds")
	ErrTileOccupied         = errors.New("tile occupied")
	ErrNotWalkable          = errors.New("tile not walkable")
	ErrInsufficientMovement = errors.New("insufficient movement")
	ErrInvalidSelection     = errors.New("invalid selection")
	ErrNoUnitsConfigured    = errors.New("no units configured")
	ErrNoActiveSelection    = errors.New("no active selection")
	ErrUnreachable          = errors.New("target not reachable")
	ErrUnknownUnit          = errors.New("unknown unit")
	ErrNotPlayerTurn        = errors.New("not the player's turn")
	ErrRoundNotStarted      = errors.New("round not started")
	ErrInvalidConfig        = errors.New("invalid battle configuration")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrOutOfBounds, "out_of_bounds"},
	{ErrTileOccupied, "tile_occupied"},
	{ErrNotWalkable, "not_walkable"},
	{ErrInsufficientMovement, "insufficient_movement"},
	{ErrInvalidSelection, "invalid_selection"},
	{ErrNoUnitsConfigured, "no_units_configured"},
	{ErrNoActiveSelection, "no_active_selection"},
	{ErrUnreachable, "unreachable"},
	{ErrUnknownUnit, "unknown_unit"},
	{ErrNotPlayerTurn, "not_player_turn"},
	{ErrRoundNotStarted, "round_not_started"},
	{ErrInvalidConfig, "invalid_config"},
}

// ErrorCode maps an engine error to a stable machine-friendly code.
// Errors that are not engine rejections map to "internal".
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

// IsRejection reports whether err is a recoverable rejection of a single
// intent, as opposed to a configuration fault.
func IsRejection(err error) bool {
	switch ErrorCode(err) {
	case "", "internal", "no_units_configured", "invalid_config":
		return false
	}
	return true
}
