package encoder_test

import (
	"testing"

	"github.com/HendryAvila/episodic/internal/bitmap"
	"github.com/HendryAvila/episodic/internal/encoder"
)

func TestGenerate_Greeting(t *testing.T) {
	for _, text := range []string{"hello", "Hi there", "hey"} {
		items := encoder.Generate(text)
		if len(items) != 1 {
			t.Fatalf("%q: got %d items", text, len(items))
		}
		if items[0].Bits != 0x0000 || items[0].Confidence != 100 {
			t.Errorf("%q: bits=0x%04X conf=%d, want 0x0000/100", text, items[0].Bits, items[0].Confidence)
		}
		if items[0].Note != "Conversation" {
			t.Errorf("%q: note = %q", text, items[0].Note)
		}
	}
}

func TestGenerate_Acknowledgment(t *testing.T) {
	for _, text := range []string{"yes", "ok", "done"} {
		items := encoder.Generate(text)
		if len(items) != 1 || items[0].Note != "Acknowledgment" {
			t.Errorf("%q: items = %+v", text, items)
		}
	}
}

func TestGenerate_PlanKeyword(t *testing.T) {
	items := encoder.Generate("here is the roadmap for the quarter")
	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}
	want := int(bitmap.Compose(bitmap.AProcess, bitmap.BHypothetical, bitmap.CSequence, bitmap.DCompositional))
	if items[0].Bits != want {
		t.Errorf("bits = 0x%04X, want 0x%04X", items[0].Bits, want)
	}
	if items[0].Confidence != 80 {
		t.Errorf("confidence = %d", items[0].Confidence)
	}
}

func TestGenerate_RuleKeyword(t *testing.T) {
	items := encoder.Generate("every request must carry a trace id, that is the rule")
	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}
	want := int(bitmap.Compose(bitmap.APrinciple, bitmap.BStructural, bitmap.CTimeless, bitmap.DEquivalence))
	if items[0].Bits != want {
		t.Errorf("bits = 0x%04X, want 0x%04X", items[0].Bits, want)
	}
}

func TestGenerate_BothKeywords(t *testing.T) {
	items := encoder.Generate("the plan encodes one rule per stage")
	if len(items) != 2 {
		t.Errorf("got %d items, want one per keyword class", len(items))
	}
}

func TestGenerate_Fallback(t *testing.T) {
	items := encoder.Generate("the deployment pipeline stalled again this afternoon")
	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Bits != 0x0000 || items[0].Confidence != 20 {
		t.Errorf("fallback = 0x%04X conf %d, want 0x0000 conf 20", items[0].Bits, items[0].Confidence)
	}
}

func TestGenerate_ItemsPassValidation(t *testing.T) {
	for _, text := range []string{"hello", "the plan", "a rule", "something else entirely happened"} {
		for _, item := range encoder.Generate(text) {
			if _, err := bitmap.Validate(item.Bits); err != nil {
				t.Errorf("%q: generated invalid code 0x%04X: %v", text, item.Bits, err)
			}
		}
	}
}
