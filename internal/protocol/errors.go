package protocol

// Rejection codes. The wire protocol has no negative acknowledgement; these
// only feed logs, metrics and the tick log.
const (
	RejectNotAction   = "E_NOT_ACTION"
	RejectBadRequest  = "E_BAD_REQUEST"
	RejectOutOfBounds = "E_OUT_OF_BOUNDS"
	RejectOccupied    = "E_OCCUPIED"
	RejectNotFound    = "E_NOT_FOUND"
	RejectNoResource  = "E_NO_RESOURCE"
	RejectFull        = "E_INVENTORY_FULL"
	RejectRateLimit   = "E_RATE_LIMIT"
	RejectUnknownType = "E_UNKNOWN_TYPE"
)

var knownCodes = map[string]struct{}{
	RejectNotAction:   {},
	RejectBadRequest:  {},
	RejectOutOfBounds: {},
	RejectOccupied:    {},
	RejectNotFound:    {},
	RejectNoResource:  {},
	RejectFull:        {},
	RejectRateLimit:   {},
	RejectUnknownType: {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
