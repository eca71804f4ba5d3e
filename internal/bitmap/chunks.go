// Package bitmap defines the 16-bit structured backbone code and its
// validator.
//
// A backbone code packs four 4-bit chunks:
//
//	bits 12-15  chunk A  existence mode   (what is the mode of being?)
//	bits  8-11  chunk B  perspective mode (whose view is this?)
//	bits  4-7   chunk C  temporal mode    (what is the temporal nature?)
//	bits  0-3   chunk D  relation mode    (how are targets combined?)
//
// Each chunk has a fixed allow-list of legal values. 0x0 is the universal
// "unspecified" sentinel and is legal in every chunk; the remaining legal
// values are a strict subset of 0x1-0xF, and everything outside that subset
// is reserved and rejected by Validate.
package bitmap

// Chunk identifies one of the four 4-bit fields of a backbone code.
type Chunk string

const (
	ChunkA Chunk = "A"
	ChunkB Chunk = "B"
	ChunkC Chunk = "C"
	ChunkD Chunk = "D"
)

// --- Chunk A: existence mode ---

const (
	AUnknown        uint8 = 0x0
	AState          uint8 = 0x1
	AEvent          uint8 = 0x2
	AProcess        uint8 = 0x3
	APrinciple      uint8 = 0x4
	AConcept        uint8 = 0x5
	AArtifact       uint8 = 0x6
	ARelationBundle uint8 = 0x7
	// 0x8-0xF reserved
)

// --- Chunk B: perspective mode ---

const (
	BUnknown      uint8 = 0x0
	BFirstPerson  uint8 = 0x1
	BObserved     uint8 = 0x2
	BReported     uint8 = 0x3
	BStructural   uint8 = 0x4
	BHypothetical uint8 = 0x5
	BExternal     uint8 = 0x6
	BReflective   uint8 = 0x7
	// 0x8-0xF reserved
)

// --- Chunk C: temporal mode ---

const (
	CUnknown      uint8 = 0x0
	CTimeless     uint8 = 0x1
	CSnapshot     uint8 = 0x2
	CDuration     uint8 = 0x3
	CSequence     uint8 = 0x4
	CRecurring    uint8 = 0x5
	CTransitional uint8 = 0x6
	// 0x7-0xF reserved
)

// --- Chunk D: relation mode ---

const (
	DUnknown       uint8 = 0x0
	DCausal        uint8 = 0x1
	DCompositional uint8 = 0x2
	DSequential    uint8 = 0x3
	DOppositional  uint8 = 0x4
	DConditional   uint8 = 0x5
	DEquivalence   uint8 = 0x6
	DAttribute     uint8 = 0x7
	DDependency    uint8 = 0x8
	// 0x9-0xF reserved
)

// allowedA..allowedD are the legal value sets per chunk. Kept as maps so
// membership reads the same way the validator reports it.
var (
	allowedA = allowSet(AUnknown, AState, AEvent, AProcess, APrinciple, AConcept, AArtifact, ARelationBundle)
	allowedB = allowSet(BUnknown, BFirstPerson, BObserved, BReported, BStructural, BHypothetical, BExternal, BReflective)
	allowedC = allowSet(CUnknown, CTimeless, CSnapshot, CDuration, CSequence, CRecurring, CTransitional)
	allowedD = allowSet(DUnknown, DCausal, DCompositional, DSequential, DOppositional, DConditional, DEquivalence, DAttribute, DDependency)
)

func allowSet(values ...uint8) map[uint8]bool {
	set := make(map[uint8]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// Allowed reports whether value is legal for the given chunk.
func Allowed(chunk Chunk, value uint8) bool {
	switch chunk {
	case ChunkA:
		return allowedA[value]
	case ChunkB:
		return allowedB[value]
	case ChunkC:
		return allowedC[value]
	case ChunkD:
		return allowedD[value]
	}
	return false
}

var chunkANames = map[uint8]string{
	AUnknown: "UNKNOWN", AState: "STATE", AEvent: "EVENT", AProcess: "PROCESS",
	APrinciple: "PRINCIPLE", AConcept: "CONCEPT", AArtifact: "ARTIFACT", ARelationBundle: "RELATION_BUNDLE",
}

var chunkBNames = map[uint8]string{
	BUnknown: "UNKNOWN", BFirstPerson: "FIRST_PERSON", BObserved: "OBSERVED", BReported: "REPORTED",
	BStructural: "STRUCTURAL", BHypothetical: "HYPOTHETICAL", BExternal: "EXTERNAL", BReflective: "REFLECTIVE",
}

var chunkCNames = map[uint8]string{
	CUnknown: "UNKNOWN", CTimeless: "TIMELESS", CSnapshot: "SNAPSHOT", CDuration: "DURATION",
	CSequence: "SEQUENCE", CRecurring: "RECURRING", CTransitional: "TRANSITIONAL",
}

var chunkDNames = map[uint8]string{
	DUnknown: "UNKNOWN", DCausal: "CAUSAL", DCompositional: "COMPOSITIONAL", DSequential: "SEQUENTIAL",
	DOppositional: "OPPOSITIONAL", DConditional: "CONDITIONAL", DEquivalence: "EQUIVALENCE",
	DAttribute: "ATTRIBUTE", DDependency: "DEPENDENCY",
}

// ValueName returns the symbolic name of a chunk value, or "RESERVED" for
// values outside the chunk's allow-list.
func ValueName(chunk Chunk, value uint8) string {
	var name string
	switch chunk {
	case ChunkA:
		name = chunkANames[value]
	case ChunkB:
		name = chunkBNames[value]
	case ChunkC:
		name = chunkCNames[value]
	case ChunkD:
		name = chunkDNames[value]
	}
	if name == "" {
		return "RESERVED"
	}
	return name
}
