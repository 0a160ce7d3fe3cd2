package constants

// Node labels
const (
	LabelLink = "Link"
	LabelTag  = "Tag"
)

// Edge kinds
const (
	// EdgeTagged points from a Tag to a Link it applies to
	EdgeTagged = "TAGGED"
)

// Property keys shared by the stored entities
const (
	PropUUID        = "uuid"
	PropName        = "name"
	PropURL         = "url"
	PropTitle       = "title"
	PropDescription = "description"
	PropClicks      = "clicks"
	PropScore       = "score"
)

// Limits
const (
	// TagDescriptionMaxLength is the maximum number of characters in a tag description
	TagDescriptionMaxLength = 255
)

// Search constants
const (
	// BaselineScore is assigned to every link when the query is empty
	BaselineScore = 1.0

	// MatchIncrement is added to a link's score for each match event
	MatchIncrement = 1.0
)
