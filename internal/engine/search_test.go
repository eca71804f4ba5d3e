package engine_test

import (
	"testing"

	"github.com/HendryAvila/episodic/internal/bitmap"
	"github.com/HendryAvila/episodic/internal/engine"
)

func uint8p(v uint8) *uint8 { return &v }

// decidedEpisode ingests, proposes and adopts one code, returning the
// episode and backbone ids.
func decidedEpisode(t *testing.T, eng *engine.Engine, bits int, facets []engine.FacetSetting) (string, string) {
	t.Helper()
	ep := ingestEpisode(t, eng)
	cands, err := eng.Propose(ep.ID, []engine.ProposeItem{
		{ProposedBy: "encoder", Bits: bits, Confidence: 90, Facets: facets},
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	res, err := eng.Adopt(ep.ID, cands[0].ID)
	if err != nil {
		t.Fatalf("adopt: %v", err)
	}
	return ep.ID, res.BackboneID
}

func searchIDs(t *testing.T, store *engine.Store, q engine.SearchQuery) map[string]bool {
	t.Helper()
	eps, err := store.SearchEpisodes(q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	ids := make(map[string]bool, len(eps))
	for _, ep := range eps {
		ids[ep.ID] = true
	}
	return ids
}

func TestSearchEpisodes_ChunkFilter(t *testing.T) {
	eng, store, _ := newTestEngine(t)

	process, _ := decidedEpisode(t, eng, int(bitmap.Compose(bitmap.AProcess, 0, 0, 0)), nil)
	state, _ := decidedEpisode(t, eng, int(bitmap.Compose(bitmap.AState, 0, 0, 0)), nil)

	ids := searchIDs(t, store, engine.SearchQuery{ChunkA: uint8p(bitmap.AProcess)})
	if !ids[process] || ids[state] {
		t.Errorf("chunk A filter matched %v", ids)
	}
}

func TestSearchEpisodes_UnfilteredChunksAreWildcards(t *testing.T) {
	eng, store, _ := newTestEngine(t)

	a, _ := decidedEpisode(t, eng, int(bitmap.Compose(bitmap.AProcess, bitmap.BObserved, 0, 0)), nil)
	b, _ := decidedEpisode(t, eng, int(bitmap.Compose(bitmap.AProcess, bitmap.BReported, 0, 0)), nil)

	ids := searchIDs(t, store, engine.SearchQuery{ChunkA: uint8p(bitmap.AProcess)})
	if !ids[a] || !ids[b] {
		t.Errorf("wildcard chunks should match both, got %v", ids)
	}

	ids = searchIDs(t, store, engine.SearchQuery{
		ChunkA: uint8p(bitmap.AProcess),
		ChunkB: uint8p(bitmap.BObserved),
	})
	if !ids[a] || ids[b] {
		t.Errorf("two-chunk filter matched %v", ids)
	}
}

func TestSearchEpisodes_FacetFilter(t *testing.T) {
	eng, store, _ := newTestEngine(t)

	doc, _ := decidedEpisode(t, eng, 0x1000, []engine.FacetSetting{
		{ID: bitmap.FacetSource, Value: bitmap.SourceDocument},
	})
	conv, _ := decidedEpisode(t, eng, 0x1000, []engine.FacetSetting{
		{ID: bitmap.FacetSource, Value: bitmap.SourceConversation},
	})

	ids := searchIDs(t, store, engine.SearchQuery{
		Facets: []engine.FacetSetting{{ID: bitmap.FacetSource, Value: bitmap.SourceDocument}},
	})
	if !ids[doc] || ids[conv] {
		t.Errorf("facet filter matched %v", ids)
	}
}

func TestSearchEpisodes_BothStagesCompose(t *testing.T) {
	eng, store, _ := newTestEngine(t)

	match, _ := decidedEpisode(t, eng, int(bitmap.Compose(bitmap.APrinciple, 0, 0, 0)), []engine.FacetSetting{
		{ID: bitmap.FacetAbstraction, Value: bitmap.AbstractionAxiom},
	})
	wrongChunk, _ := decidedEpisode(t, eng, int(bitmap.Compose(bitmap.AEvent, 0, 0, 0)), []engine.FacetSetting{
		{ID: bitmap.FacetAbstraction, Value: bitmap.AbstractionAxiom},
	})
	wrongFacet, _ := decidedEpisode(t, eng, int(bitmap.Compose(bitmap.APrinciple, 0, 0, 0)), []engine.FacetSetting{
		{ID: bitmap.FacetAbstraction, Value: bitmap.AbstractionInstance},
	})

	ids := searchIDs(t, store, engine.SearchQuery{
		ChunkA: uint8p(bitmap.APrinciple),
		Facets: []engine.FacetSetting{{ID: bitmap.FacetAbstraction, Value: bitmap.AbstractionAxiom}},
	})
	if !ids[match] {
		t.Error("conjunctive match missing")
	}
	if ids[wrongChunk] || ids[wrongFacet] {
		t.Errorf("stages must AND together, got %v", ids)
	}
}

func TestSearchEpisodes_DeprecatedBackboneExcluded(t *testing.T) {
	eng, store, _ := newTestEngine(t)

	ep, bb := decidedEpisode(t, eng, int(bitmap.Compose(bitmap.AArtifact, 0, 0, 0)), nil)
	if _, err := eng.Deprecate(ep, bb); err != nil {
		t.Fatal(err)
	}

	ids := searchIDs(t, store, engine.SearchQuery{ChunkA: uint8p(bitmap.AArtifact)})
	if ids[ep] {
		t.Error("deprecated backbone should not satisfy chunk filters")
	}
}

func TestSearchEpisodes_NoFiltersReturnsAll(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	a, _ := decidedEpisode(t, eng, 0x1000, nil)
	b := ingestEpisode(t, eng)

	ids := searchIDs(t, store, engine.SearchQuery{})
	if !ids[a] || !ids[b.ID] {
		t.Errorf("no-filter search should list every episode, got %v", ids)
	}
}
