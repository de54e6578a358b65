package model

// Outcome is the tagged result of classifying one transaction. Callers switch
// on the concrete type instead of probing optional fields.
type Outcome interface {
	Status() TransactionStatus
}

// AutoCoded means the transaction received a nominal code without review.
type AutoCoded struct {
	NominalCode string
	RuleID      string
	Confidence  float64
}

// Status implements Outcome.
func (AutoCoded) Status() TransactionStatus { return StatusAutoCoded }

// Exception means no candidate cleared the threshold. BestCandidates retains
// whatever evidence was found so a review surface can display it.
type Exception struct {
	BestCandidates []MatchCandidate
}

// Status implements Outcome.
func (Exception) Status() TransactionStatus { return StatusException }

// Overridden means a user correction supplied the code.
type Overridden struct {
	NominalCode string
	OverrideID  string
}

// Status implements Outcome.
func (Overridden) Status() TransactionStatus { return StatusOverridden }
