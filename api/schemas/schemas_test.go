package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageObservationElementLookup(t *testing.T) {
	obs := &PageObservation{
		InteractiveElements: []InteractiveElement{
			{Selector: "button#search.btn", Kind: ElementButton, Text: "Search"},
			{Selector: "input#date", Kind: ElementInput, InputType: "date"},
		},
	}

	el, ok := obs.Element("input#date")
	require.True(t, ok)
	assert.Equal(t, ElementInput, el.Kind)

	_, ok = obs.Element("select#players")
	assert.False(t, ok)

	var nilObs *PageObservation
	_, ok = nilObs.Element("anything")
	assert.False(t, ok)
}

func TestObservationWireNames(t *testing.T) {
	// Callers resubmit the observation verbatim, so the field names are part of the contract.
	raw, err := json.Marshal(PageObservation{URL: "https://x", Title: "T", TextContent: "body"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"textContent":"body"`)
	assert.Contains(t, string(raw), `"interactiveElements":null`)
}

func TestActionString(t *testing.T) {
	cases := map[string]Action{
		"navigateTo(https://a.example)":        {Type: ActionNavigate, URL: "https://a.example"},
		`fillInput(input#name, "Pat")`:         {Type: ActionFillInput, Selector: "input#name", Value: "Pat"},
		"setNumPlayers(select#players, 4)":     {Type: ActionSetPlayerCount, Selector: "select#players", Players: 4},
		"findTeeTimesOnPage()":                 {Type: ActionExtractTeeTimes},
		"clickSubmitBookingSearch(button.go)":  {Type: ActionSubmitSearch, Selector: "button.go"},
	}
	for want, action := range cases {
		assert.Equal(t, want, action.String())
	}
	assert.False(t, Action{Type: ActionExtractTeeTimes}.Mutates())
	assert.True(t, Action{Type: ActionClick}.Mutates())
}
