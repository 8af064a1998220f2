package entities

// Intent is the coarse purpose of a search query, used to pick a reranking strategy.
type Intent string

const (
	IntentNavigational  Intent = "navigational"  // e.g. "contact us", "login"
	IntentInformational Intent = "informational" // e.g. "how do I recycle batteries"
	IntentTransactional Intent = "transactional" // e.g. "hire a plumber", "download brochure"
	IntentGeneral       Intent = "general"
)

// IsValid checks if the intent value is one of the defined constants.
func (i Intent) IsValid() bool {
	switch i {
	case IntentNavigational, IntentInformational, IntentTransactional, IntentGeneral:
		return true
	}
	return false
}
