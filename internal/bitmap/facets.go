package bitmap

import "fmt"

// FacetID identifies a 4-bit facet annotation on an episode.
type FacetID uint8

const (
	FacetCertainty   FacetID = 0x1
	FacetAbstraction FacetID = 0x2
	FacetSource      FacetID = 0x3
	FacetAlignment   FacetID = 0x4
)

// --- Facet 0x1: certainty ---

const (
	CertaintyUnknown   uint8 = 0x0
	CertaintyPending   uint8 = 0x1
	CertaintyConfirmed uint8 = 0x2
	CertaintyConflict  uint8 = 0x3
)

// --- Facet 0x2: abstraction level ---

const (
	AbstractionUnknown  uint8 = 0x0
	AbstractionAxiom    uint8 = 0x1
	AbstractionPattern  uint8 = 0x2
	AbstractionInstance uint8 = 0x3
)

// --- Facet 0x3: source type ---

const (
	SourceUnknown      uint8 = 0x0
	SourceConversation uint8 = 0x1
	SourceDocument     uint8 = 0x2
	SourceMemo         uint8 = 0x3
	SourceExternal     uint8 = 0x4
)

// Facet 0x4 alignment values are 0x1-0x6, mapping to advisory finding
// codes EPI-01 through EPI-06 directly.

// singletonFacets holds the facet ids that are single-row per episode:
// a later write on the same id overwrites instead of appending. All other
// facet ids may co-exist as multiple rows.
var singletonFacets = map[FacetID]bool{
	FacetCertainty:   true,
	FacetAbstraction: true,
	FacetSource:      true,
	FacetAlignment:   true,
}

// Singleton reports whether the facet id is single-row per episode.
func Singleton(id FacetID) bool {
	return singletonFacets[id]
}

var facetValueRanges = map[FacetID]uint8{
	FacetCertainty:   CertaintyConflict,
	FacetAbstraction: AbstractionInstance,
	FacetSource:      SourceExternal,
	FacetAlignment:   0x6,
}

// ValidateFacet checks that the facet id and value fit their 4-bit fields
// and, for the fixed facet ids, that the value is within the id's
// enumeration.
func ValidateFacet(id FacetID, value uint8) error {
	if id == 0 || id > 0xF {
		return fmt.Errorf("facet id 0x%X out of 4-bit range", uint8(id))
	}
	if value > 0xF {
		return fmt.Errorf("facet 0x%X value 0x%X out of 4-bit range", uint8(id), value)
	}
	if max, known := facetValueRanges[id]; known && value > max {
		return fmt.Errorf("facet 0x%X value 0x%X outside its enumeration (max 0x%X)", uint8(id), value, max)
	}
	return nil
}
