package validation

const (
	// String lengths
	MaxTitleLength       = 200
	MaxDescriptionLength = 4000
	MaxTagLength         = 40
	MaxTags              = 20
	MaxMessageLength     = 2000
	MaxTermsLength       = 4000

	// Estimated values are informational; the cap only rejects garbage input.
	MaxEstimatedValue = 1000000.00

	// Password requirements
	MinPasswordLength = 8
	MaxPasswordLength = 72
)
