package engine_test

import (
	"testing"

	"github.com/HendryAvila/episodic/internal/bitmap"
	"github.com/HendryAvila/episodic/internal/engine"
)

func backboneWithCode(id string, a, b, c, d uint8) engine.Backbone {
	return engine.Backbone{
		ID:        id,
		EpisodeID: "ep_test",
		Code: bitmap.Code{
			Bits: bitmap.Compose(a, b, c, d),
			A:    a, B: b, C: c, D: d,
		},
	}
}

func TestDetectConflicts_FewerThanTwo(t *testing.T) {
	if got := engine.DetectConflicts(nil); len(got) != 0 {
		t.Errorf("empty set: got %d conflicts", len(got))
	}
	one := []engine.Backbone{backboneWithCode("bb_1", bitmap.AState, 0, 0, 0)}
	if got := engine.DetectConflicts(one); len(got) != 0 {
		t.Errorf("single backbone: got %d conflicts", len(got))
	}
}

func TestDetectConflicts_EquivalenceVsOppositional(t *testing.T) {
	set := []engine.Backbone{
		backboneWithCode("bb_1", 0, 0, 0, bitmap.DEquivalence),
		backboneWithCode("bb_2", 0, 0, 0, bitmap.DOppositional),
	}
	got := engine.DetectConflicts(set)
	if len(got) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(got))
	}
	c := got[0]
	if c.Rule != engine.RuleEquivalenceVsOpposition {
		t.Errorf("rule = 0x%X, want 0xD1", uint8(c.Rule))
	}
	if c.Chunk != bitmap.ChunkD {
		t.Errorf("chunk = %s, want D", c.Chunk)
	}
	if c.BackboneA != "bb_1" || c.BackboneB != "bb_2" {
		t.Errorf("pair = %s/%s", c.BackboneA, c.BackboneB)
	}
}

func TestDetectConflicts_OrderIndependent(t *testing.T) {
	set := []engine.Backbone{
		backboneWithCode("bb_1", bitmap.AProcess, 0, 0, 0),
		backboneWithCode("bb_2", bitmap.AState, 0, 0, 0),
	}
	got := engine.DetectConflicts(set)
	if len(got) != 1 || got[0].Rule != engine.RuleStateVsProcess {
		t.Fatalf("reversed value order should still fire: got %+v", got)
	}
}

func TestDetectConflicts_AllPairsAllRules(t *testing.T) {
	// bb_1 vs bb_2 conflicts on A and C; bb_1 vs bb_3 conflicts on D.
	set := []engine.Backbone{
		backboneWithCode("bb_1", bitmap.AState, 0, bitmap.CTimeless, bitmap.DEquivalence),
		backboneWithCode("bb_2", bitmap.AProcess, 0, bitmap.CSnapshot, 0),
		backboneWithCode("bb_3", 0, 0, 0, bitmap.DOppositional),
	}
	got := engine.DetectConflicts(set)
	if len(got) != 3 {
		t.Fatalf("got %d conflicts, want 3: %+v", len(got), got)
	}

	rules := map[engine.RuleID]int{}
	for _, c := range got {
		rules[c.Rule]++
	}
	if rules[engine.RuleStateVsProcess] != 1 ||
		rules[engine.RuleTimelessVsSnapshot] != 1 ||
		rules[engine.RuleEquivalenceVsOpposition] != 1 {
		t.Errorf("rule counts = %v", rules)
	}
}

func TestDetectConflicts_UnspecifiedNeverFires(t *testing.T) {
	set := []engine.Backbone{
		backboneWithCode("bb_1", bitmap.AUnknown, 0, 0, 0),
		backboneWithCode("bb_2", bitmap.AState, 0, 0, 0),
	}
	if got := engine.DetectConflicts(set); len(got) != 0 {
		t.Errorf("unspecified chunk should not conflict: %+v", got)
	}
}
