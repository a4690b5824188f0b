package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letteros/letteros/internal/assembler"
	"github.com/letteros/letteros/internal/domain"
)

func TestFireIllegalLeavesSessionUnchanged(t *testing.T) {
	s := Session{ID: "w1", State: StateProductSelect}
	for _, ev := range []Event{EventSetCount, EventPropose, EventConfirmPlan, EventAssemble, EventSave, EventBack} {
		out, err := Fire(s, ev)
		assert.ErrorIs(t, err, ErrIllegalTransition, ev)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, s, out)
	}
}

func TestFireGuards(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		event   Event
		want    State
		wantErr bool
	}{
		{"product required", Session{State: StateProductSelect}, EventSelectProduct, StateProductSelect, true},
		{"product selected", Session{State: StateProductSelect, ProductID: "p1"}, EventSelectProduct, StateCountSuggest, false},
		{"count zero", Session{State: StateCountSuggest, MaxCount: 12}, EventSetCount, StateCountSuggest, true},
		{"count too high", Session{State: StateCountSuggest, Count: 13, MaxCount: 12}, EventSetCount, StateCountSuggest, true},
		{"count ok", Session{State: StateCountSuggest, Count: 3, MaxCount: 12}, EventSetCount, StateChatPlan, false},
		{"question stays", Session{State: StateChatPlan}, EventAsk, StateChatPlan, false},
		{"short proposal", Session{State: StateChatPlan, Count: 2, Plans: []domain.NewsletterPlan{{Number: 1}}}, EventPropose, StateChatPlan, true},
		{"full proposal", Session{State: StateChatPlan, Count: 1, Plans: []domain.NewsletterPlan{{Number: 1}}}, EventPropose, StateConfirm, false},
		{"unknown plan", Session{State: StateConfirm, Chosen: 4, Plans: []domain.NewsletterPlan{{Number: 1}}}, EventConfirmPlan, StateConfirm, true},
		{"plan chosen", Session{State: StateConfirm, Chosen: 1, Plans: []domain.NewsletterPlan{{Number: 1}}}, EventConfirmPlan, StateGenerate, false},
		{"no variants", Session{State: StateGenerate}, EventVariantsReady, StateGenerate, true},
		{"variants", Session{State: StateGenerate, Variants: &domain.VariantSet{}}, EventVariantsReady, StateSelect, false},
		{"incomplete selection", Session{State: StateSelect}, EventAssemble, StateSelect, true},
		{"untitled save", Session{State: StateFinalEdit, Draft: &assembler.Draft{}}, EventSave, StateFinalEdit, true},
		{"save", Session{State: StateFinalEdit, Draft: &assembler.Draft{Title: "t"}}, EventSave, StateDone, false},
		{"done is terminal", Session{State: StateDone}, EventBack, StateDone, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Fire(tt.session, tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIllegalTransition)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, out.State)
		})
	}
}

func TestAssembleGuardReportsMissingSlots(t *testing.T) {
	s := Session{State: StateSelect}
	s.Selection.Subject = &domain.GeneratedVariant{Content: "s"}
	_, err := Fire(s, EventAssemble)
	assert.ErrorIs(t, err, assembler.ErrSelectionIncomplete)
	assert.Contains(t, err.Error(), "introduction")
}

func TestAllowed(t *testing.T) {
	assert.Equal(t, []Event{EventSelectProduct}, Allowed(StateProductSelect))
	assert.Equal(t, []Event{EventPick, EventRegenerate, EventAssemble, EventBack}, Allowed(StateSelect))
	assert.Empty(t, Allowed(StateDone))
}
