package state

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/chorusml/chorus/agent/contract"
)

func newTestState() *RequestState {
	return New("what is our leave policy?", "u1", "c1", time.Now())
}

func TestSetOutputSingleWriter(t *testing.T) {
	t.Parallel()

	st := newTestState()
	if err := st.SetOutput(contractx.UnitGeneral, "first"); err != nil {
		t.Fatalf("SetOutput() error = %v", err)
	}

	err := st.SetOutput(contractx.UnitGeneral, "second")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("second SetOutput() error = %v, want ErrValidation", err)
	}
	if st.GeneralOutput != "first" {
		t.Fatalf("GeneralOutput = %q, want %q", st.GeneralOutput, "first")
	}
}

func TestSetOutputUnknownUnit(t *testing.T) {
	t.Parallel()

	st := newTestState()
	if err := st.SetOutput(contractx.UnitName("mystery"), "x"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("SetOutput(unknown) error = %v, want ErrValidation", err)
	}
}

func TestOutputFieldsAreDisjoint(t *testing.T) {
	t.Parallel()

	st := newTestState()
	for _, unit := range contractx.AllUnits() {
		if err := st.SetOutput(unit, "out-"+string(unit)); err != nil {
			t.Fatalf("SetOutput(%s) error = %v", unit, err)
		}
	}
	for _, unit := range contractx.AllUnits() {
		got, ok := st.Output(unit)
		if !ok {
			t.Fatalf("Output(%s) not set", unit)
		}
		if got != "out-"+string(unit) {
			t.Fatalf("Output(%s) = %q, want %q", unit, got, "out-"+string(unit))
		}
	}
}

func TestSetRouteOnce(t *testing.T) {
	t.Parallel()

	st := newTestState()
	decision := contractx.RouteDecision{
		Intent:        "policy question",
		SelectedUnits: []contractx.UnitName{contractx.UnitKnowledge, contractx.UnitGeneral},
	}
	if err := st.SetRoute(decision); err != nil {
		t.Fatalf("SetRoute() error = %v", err)
	}
	if err := st.SetRoute(decision); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("second SetRoute() error = %v, want ErrValidation", err)
	}
}

func TestMarkExecutedGuardsReentry(t *testing.T) {
	t.Parallel()

	st := newTestState()
	if err := st.MarkExecuted(contractx.UnitResearch); err != nil {
		t.Fatalf("MarkExecuted() error = %v", err)
	}
	if !st.HasExecuted(contractx.UnitResearch) {
		t.Fatal("HasExecuted() = false after MarkExecuted")
	}
	if err := st.MarkExecuted(contractx.UnitResearch); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("second MarkExecuted() error = %v, want ErrValidation", err)
	}
}

func TestExecutedGenerativeExcludesRetrieval(t *testing.T) {
	t.Parallel()

	st := newTestState()
	for _, u := range []contractx.UnitName{contractx.UnitKnowledge, contractx.UnitResearch, contractx.UnitMemory, contractx.UnitCode} {
		if err := st.MarkExecuted(u); err != nil {
			t.Fatalf("MarkExecuted(%s) error = %v", u, err)
		}
	}

	got := st.ExecutedGenerative()
	want := []contractx.UnitName{contractx.UnitResearch, contractx.UnitCode}
	if len(got) != len(want) {
		t.Fatalf("ExecutedGenerative() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ExecutedGenerative()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestGenerativeOutputsSkipsEmptyAndRetrieval(t *testing.T) {
	t.Parallel()

	st := newTestState()
	if err := st.SetOutput(contractx.UnitKnowledge, "policy doc"); err != nil {
		t.Fatalf("SetOutput() error = %v", err)
	}
	if err := st.SetOutput(contractx.UnitWriting, "an essay"); err != nil {
		t.Fatalf("SetOutput() error = %v", err)
	}

	outs := st.GenerativeOutputs()
	if len(outs) != 1 {
		t.Fatalf("GenerativeOutputs() len = %d, want 1", len(outs))
	}
	if outs[0].Unit != contractx.UnitWriting || outs[0].Text != "an essay" {
		t.Fatalf("GenerativeOutputs()[0] = %+v", outs[0])
	}
}

func TestSetFinalOutputOnce(t *testing.T) {
	t.Parallel()

	st := newTestState()
	if err := st.SetFinalOutput("answer"); err != nil {
		t.Fatalf("SetFinalOutput() error = %v", err)
	}
	if err := st.SetFinalOutput("another"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("second SetFinalOutput() error = %v, want ErrValidation", err)
	}
	if st.FinalOutput != "answer" {
		t.Fatalf("FinalOutput = %q, want %q", st.FinalOutput, "answer")
	}
}

func TestContextCarriesOnlyRetrievalOutputs(t *testing.T) {
	t.Parallel()

	st := newTestState()
	if err := st.SetOutput(contractx.UnitMemory, "remembered"); err != nil {
		t.Fatalf("SetOutput() error = %v", err)
	}
	if err := st.SetOutput(contractx.UnitGeneral, "generated"); err != nil {
		t.Fatalf("SetOutput() error = %v", err)
	}

	ctx := st.Context()
	if ctx.Memory != "remembered" {
		t.Fatalf("Context().Memory = %q", ctx.Memory)
	}
	if ctx.Knowledge != "" {
		t.Fatalf("Context().Knowledge = %q, want empty", ctx.Knowledge)
	}
}
