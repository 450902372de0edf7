package callflow

import "strings"

// TransferPolicy decides whether a completed exchange should hand the call
// to a human. It sees the assistant's reply and the caller's utterance that
// prompted it.
type TransferPolicy interface {
	ShouldTransfer(userText, assistantText string) bool
}

// TransferPolicyFunc adapts a function to a TransferPolicy.
type TransferPolicyFunc func(userText, assistantText string) bool

func (f TransferPolicyFunc) ShouldTransfer(userText, assistantText string) bool {
	return f(userText, assistantText)
}

// defaultTransferMarkers are case-insensitive substrings that trigger a
// transfer when they appear in either side of the exchange.
var defaultTransferMarkers = []string{
	"transfer",
	"human",
	"talk to someone",
	"representative",
}

// KeywordTransferPolicy matches a fixed marker set against both texts. This
// is a keyword heuristic, not intent classification: false positives and
// negatives are expected, which is why the policy is pluggable.
type KeywordTransferPolicy struct {
	markers []string
}

// NewKeywordTransferPolicy builds a policy over the given markers, or the
// default marker set when none are given.
func NewKeywordTransferPolicy(markers ...string) *KeywordTransferPolicy {
	if len(markers) == 0 {
		markers = defaultTransferMarkers
	}
	return &KeywordTransferPolicy{markers: markers}
}

func (p *KeywordTransferPolicy) ShouldTransfer(userText, assistantText string) bool {
	user := strings.ToLower(userText)
	assistant := strings.ToLower(assistantText)
	for _, marker := range p.markers {
		if strings.Contains(user, marker) || strings.Contains(assistant, marker) {
			return true
		}
	}
	return false
}
