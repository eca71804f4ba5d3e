package bitmap

import (
	"errors"
	"testing"
)

// --- Compose / Validate round-trip ---

func TestComposeDecompose_Identity(t *testing.T) {
	// Every 16-bit value decomposes and recomposes to itself, whether or
	// not it passes the allow-lists.
	for bits := 0; bits <= 0xFFFF; bits++ {
		a := uint8(bits >> 12 & 0xF)
		b := uint8(bits >> 8 & 0xF)
		c := uint8(bits >> 4 & 0xF)
		d := uint8(bits & 0xF)
		if got := Compose(a, b, c, d); got != uint16(bits) {
			t.Fatalf("Compose(decompose(0x%04X)) = 0x%04X", bits, got)
		}
	}
}

func TestValidate_DecomposesChunks(t *testing.T) {
	code, err := Validate(0x3142)
	if err != nil {
		t.Fatalf("Validate(0x3142) error: %v", err)
	}
	if code.A != 0x3 || code.B != 0x1 || code.C != 0x4 || code.D != 0x2 {
		t.Errorf("chunks = %X/%X/%X/%X, want 3/1/4/2", code.A, code.B, code.C, code.D)
	}
	if code.Bits != 0x3142 {
		t.Errorf("Bits = 0x%04X, want 0x3142", code.Bits)
	}
}

// --- Range ---

func TestValidate_Negative(t *testing.T) {
	_, err := Validate(-1)
	assertReason(t, err, ReasonInvalidRange)
}

func TestValidate_TooLarge(t *testing.T) {
	_, err := Validate(0x10000)
	assertReason(t, err, ReasonInvalidRange)
}

// --- Allow-lists: every legal value accepted, every reserved rejected ---

func TestValidate_ChunkAllowLists(t *testing.T) {
	cases := []struct {
		chunk  Chunk
		shift  uint
		max    uint8 // highest legal value
		reason Reason
	}{
		{ChunkA, 12, ARelationBundle, ReasonInvalidChunkA},
		{ChunkB, 8, BReflective, ReasonInvalidChunkB},
		{ChunkC, 4, CTransitional, ReasonInvalidChunkC},
		{ChunkD, 0, DDependency, ReasonInvalidChunkD},
	}

	for _, tc := range cases {
		for v := uint8(0); v <= 0xF; v++ {
			bits := int(v) << tc.shift
			_, err := Validate(bits)
			if v <= tc.max {
				if err != nil {
					t.Errorf("chunk %s value 0x%X should be legal, got %v", tc.chunk, v, err)
				}
			} else {
				assertReason(t, err, tc.reason)
			}
		}
	}
}

func TestValidate_AllZero(t *testing.T) {
	if _, err := Validate(0x0000); err != nil {
		t.Errorf("all-unspecified code should be legal, got %v", err)
	}
}

func TestValidate_ReservedChunkA(t *testing.T) {
	_, err := Validate(0xF000)
	assertReason(t, err, ReasonInvalidChunkA)
}

// --- Error typing ---

func TestValidate_ErrorCarriesChunk(t *testing.T) {
	_, err := Validate(0x0009) // chunk D reserved (0x9)
	var ice *InvalidCodeError
	if !errors.As(err, &ice) {
		t.Fatalf("error is %T, want *InvalidCodeError", err)
	}
	if ice.Chunk != ChunkD {
		t.Errorf("Chunk = %s, want D", ice.Chunk)
	}
	if ice.Bits != 0x0009 {
		t.Errorf("Bits = 0x%04X, want 0x0009", ice.Bits)
	}
}

// --- Names ---

func TestValueName_Known(t *testing.T) {
	if got := ValueName(ChunkA, AProcess); got != "PROCESS" {
		t.Errorf("ValueName(A, PROCESS) = %s", got)
	}
	if got := ValueName(ChunkD, DEquivalence); got != "EQUIVALENCE" {
		t.Errorf("ValueName(D, EQUIVALENCE) = %s", got)
	}
}

func TestValueName_Reserved(t *testing.T) {
	if got := ValueName(ChunkC, 0xE); got != "RESERVED" {
		t.Errorf("ValueName(C, 0xE) = %s, want RESERVED", got)
	}
}

// --- Facets ---

func TestValidateFacet_CertaintyRange(t *testing.T) {
	for v := uint8(0); v <= CertaintyConflict; v++ {
		if err := ValidateFacet(FacetCertainty, v); err != nil {
			t.Errorf("certainty value 0x%X should be legal: %v", v, err)
		}
	}
	if err := ValidateFacet(FacetCertainty, CertaintyConflict+1); err == nil {
		t.Error("certainty value past CONFLICT should be rejected")
	}
}

func TestValidateFacet_UnknownIDAllowsAnyNibble(t *testing.T) {
	if err := ValidateFacet(FacetID(0x9), 0xF); err != nil {
		t.Errorf("non-enumerated facet id should accept any nibble: %v", err)
	}
	if err := ValidateFacet(FacetID(0x9), 0x10); err == nil {
		t.Error("value past 4 bits should be rejected")
	}
}

func TestSingleton_FixedSet(t *testing.T) {
	for _, id := range []FacetID{FacetCertainty, FacetAbstraction, FacetSource, FacetAlignment} {
		if !Singleton(id) {
			t.Errorf("facet 0x%X should be singleton", uint8(id))
		}
	}
	if Singleton(FacetID(0x9)) {
		t.Error("facet 0x9 should allow multiple rows")
	}
}

func assertReason(t *testing.T, err error, want Reason) {
	t.Helper()
	var ice *InvalidCodeError
	if !errors.As(err, &ice) {
		t.Fatalf("error is %T (%v), want *InvalidCodeError", err, err)
	}
	if ice.Reason != want {
		t.Errorf("Reason = %s, want %s", ice.Reason, want)
	}
}
