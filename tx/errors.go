package tx

// Error code constants, carried as stable strings in the response
// envelope's errorCode field (spec §7).
const (
	// Envelope (400, not cached)
	ErrInstanceMismatch = "INSTANCE_MISMATCH"

	// Auth (401/403)
	ErrUnauthorized         = "UNAUTHORIZED"
	ErrOwnershipViolation   = "OWNERSHIP_VIOLATION"

	// Business (200, accepted=false)
	ErrAlreadyExists           = "ALREADY_EXISTS"
	ErrDuplicateAPIKey         = "DUPLICATE_API_KEY"
	ErrInvalidConfigReference  = "INVALID_CONFIG_REFERENCE"
	ErrGearNotFound            = "GEAR_NOT_FOUND"
	ErrGearAlreadyEquipped     = "GEAR_ALREADY_EQUIPPED"
	ErrGearNotEquipped         = "GEAR_NOT_EQUIPPED"
	ErrCharacterNotFound       = "CHARACTER_NOT_FOUND"
	ErrCharacterMismatch       = "CHARACTER_MISMATCH"
	ErrCharacterRequired       = "CHARACTER_REQUIRED"
	ErrSlotOccupied            = "SLOT_OCCUPIED"
	ErrInvalidSlot             = "INVALID_SLOT"
	ErrPatternMismatch         = "PATTERN_MISMATCH"
	ErrRestrictionFailed       = "RESTRICTION_FAILED"
	ErrMaxLevelReached         = "MAX_LEVEL_REACHED"
	ErrInsufficientResources   = "INSUFFICIENT_RESOURCES"
	ErrInvalidCostResourceKey  = "INVALID_COST_RESOURCE_KEY"
	ErrUnsupportedTxType       = "UNSUPPORTED_TX_TYPE"
	ErrPlayerNotFound          = "PLAYER_NOT_FOUND"

	// Infrastructure (500, cached)
	ErrConfigNotFound = "CONFIG_NOT_FOUND"
)
