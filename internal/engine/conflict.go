package engine

import (
	"fmt"

	"github.com/HendryAvila/episodic/internal/bitmap"
)

// Conflict rules are purely mechanical: two active backbones on the same
// episode conflict when a rule's chunk holds the rule's two values, one
// on each side. No semantic interpretation happens here.

// RuleID identifies a conflict rule. The high nibble names the chunk.
type RuleID uint8

const (
	RuleStateVsProcess          RuleID = 0xA1
	RuleTimelessVsSnapshot      RuleID = 0xC1
	RuleEquivalenceVsOpposition RuleID = 0xD1
)

type conflictRule struct {
	id    RuleID
	chunk bitmap.Chunk
	left  uint8
	right uint8
}

// conflictRules is the complete rule table. Adding a rule here is the
// only step needed to extend detection.
var conflictRules = []conflictRule{
	{RuleStateVsProcess, bitmap.ChunkA, bitmap.AState, bitmap.AProcess},
	{RuleTimelessVsSnapshot, bitmap.ChunkC, bitmap.CTimeless, bitmap.CSnapshot},
	{RuleEquivalenceVsOpposition, bitmap.ChunkD, bitmap.DEquivalence, bitmap.DOppositional},
}

// Conflict records one rule firing between two active backbones.
type Conflict struct {
	Rule      RuleID       `json:"rule"`
	Chunk     bitmap.Chunk `json:"chunk"`
	BackboneA string       `json:"backbone_a"`
	BackboneB string       `json:"backbone_b"`
	ValueA    uint8        `json:"value_a"`
	ValueB    uint8        `json:"value_b"`
}

// Describe renders the conflict for event payloads and notifications.
func (c Conflict) Describe() string {
	return fmt.Sprintf("rule 0x%X: chunk %s %s (%s) vs %s (%s)",
		uint8(c.Rule), c.Chunk,
		bitmap.ValueName(c.Chunk, c.ValueA), c.BackboneA,
		bitmap.ValueName(c.Chunk, c.ValueB), c.BackboneB)
}

func chunkValue(code bitmap.Code, chunk bitmap.Chunk) uint8 {
	switch chunk {
	case bitmap.ChunkA:
		return code.A
	case bitmap.ChunkB:
		return code.B
	case bitmap.ChunkC:
		return code.C
	case bitmap.ChunkD:
		return code.D
	}
	return 0
}

// DetectConflicts runs every rule over every unordered pair of the given
// backbones and returns all firings. It evaluates from scratch each
// call: callers pass the full current active set, and a cleared pair
// simply stops appearing in the result.
func DetectConflicts(backbones []Backbone) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(backbones); i++ {
		for j := i + 1; j < len(backbones); j++ {
			for _, rule := range conflictRules {
				vi := chunkValue(backbones[i].Code, rule.chunk)
				vj := chunkValue(backbones[j].Code, rule.chunk)
				if (vi == rule.left && vj == rule.right) || (vi == rule.right && vj == rule.left) {
					conflicts = append(conflicts, Conflict{
						Rule:      rule.id,
						Chunk:     rule.chunk,
						BackboneA: backbones[i].ID,
						BackboneB: backbones[j].ID,
						ValueA:    vi,
						ValueB:    vj,
					})
				}
			}
		}
	}
	return conflicts
}
