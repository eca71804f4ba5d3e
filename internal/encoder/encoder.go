// Package encoder proposes backbone codes for free text. It is a
// deterministic keyword classifier standing in for a smarter generator;
// its only contract is "zero or more candidate codes with a confidence
// score", and the engine treats its output like any other proposer's.
package encoder

import (
	"strings"

	"github.com/HendryAvila/episodic/internal/bitmap"
	"github.com/HendryAvila/episodic/internal/engine"
)

// Source identifies this encoder as a proposer.
const Source = "encoder"

var greetings = []string{"hello", "hi", "hey", "sophia"}

var acks = map[string]bool{
	"yes": true, "no": true, "okay": true, "ok": true, "good": true, "bad": true,
}

type intent int

const (
	intentUnknown intent = iota
	intentGreeting
	intentAck
)

func classify(text string) intent {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return intentUnknown
	}
	for _, g := range greetings {
		if t == g || (len(t) < 10 && strings.HasPrefix(t, g)) {
			return intentGreeting
		}
	}
	if acks[t] {
		return intentAck
	}
	// A short single word that triggered nothing above is treated as a
	// low-level acknowledgment rather than an observation.
	if len(strings.Fields(t)) == 1 && len(t) < 10 {
		return intentAck
	}
	return intentUnknown
}

// Generate proposes candidates for the text. Greetings and
// acknowledgments bypass semantic analysis with an all-unspecified code
// at full confidence; keyword hits propose shaped codes; anything else
// falls back to an all-unspecified code at low confidence so a human
// reviews it.
func Generate(text string) []engine.ProposeItem {
	switch classify(text) {
	case intentGreeting:
		return []engine.ProposeItem{{
			ProposedBy: Source, Bits: 0x0000, Note: "Conversation", Confidence: 100,
		}}
	case intentAck:
		return []engine.ProposeItem{{
			ProposedBy: Source, Bits: 0x0000, Note: "Acknowledgment", Confidence: 100,
		}}
	}

	lower := strings.ToLower(text)
	var items []engine.ProposeItem

	if strings.Contains(lower, "plan") || strings.Contains(lower, "roadmap") {
		items = append(items, engine.ProposeItem{
			ProposedBy: Source,
			Bits:       int(bitmap.Compose(bitmap.AProcess, bitmap.BHypothetical, bitmap.CSequence, bitmap.DCompositional)),
			Facets: []engine.FacetSetting{
				{ID: bitmap.FacetCertainty, Value: bitmap.CertaintyPending},
				{ID: bitmap.FacetAbstraction, Value: bitmap.AbstractionPattern},
				{ID: bitmap.FacetSource, Value: bitmap.SourceDocument},
			},
			Note:       "Detected planning context",
			Confidence: 80,
		})
	}

	if strings.Contains(lower, "rule") || strings.Contains(lower, "must") || strings.Contains(lower, "principle") {
		items = append(items, engine.ProposeItem{
			ProposedBy: Source,
			Bits:       int(bitmap.Compose(bitmap.APrinciple, bitmap.BStructural, bitmap.CTimeless, bitmap.DEquivalence)),
			Facets: []engine.FacetSetting{
				{ID: bitmap.FacetCertainty, Value: bitmap.CertaintyPending},
				{ID: bitmap.FacetAbstraction, Value: bitmap.AbstractionAxiom},
				{ID: bitmap.FacetSource, Value: bitmap.SourceDocument},
			},
			Note:       "Detected axiomatic rule",
			Confidence: 85,
		})
	}

	if len(items) == 0 {
		items = append(items, engine.ProposeItem{
			ProposedBy: Source,
			Bits:       0x0000,
			Facets: []engine.FacetSetting{
				{ID: bitmap.FacetCertainty, Value: bitmap.CertaintyPending},
			},
			Note:       "Default fallback",
			Confidence: 20,
		})
	}
	return items
}
