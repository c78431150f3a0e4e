package oracle

import (
	"fmt"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

// Flow selects which action subset the oracle may choose from.
type Flow string

const (
	FlowDiscovery Flow = "discovery"
	FlowBooking   Flow = "booking"
)

func selectorParam() schemas.ToolParameter {
	return schemas.ToolParameter{Name: "selector", Type: schemas.ParamString, Required: true,
		Description: "CSS selector of the target element, copied from the interactive element list."}
}

var (
	navigateTool = schemas.ToolDefinition{
		Name:        string(schemas.ActionNavigate),
		Description: "Navigates the browser to a given URL.",
		Parameters:  []schemas.ToolParameter{{Name: "url", Type: schemas.ParamString, Required: true, Description: "Absolute URL to open."}},
	}
	clickTool = schemas.ToolDefinition{
		Name:        string(schemas.ActionClick),
		Description: "Clicks an element on the current page using a CSS selector.",
		Parameters:  []schemas.ToolParameter{selectorParam()},
	}
	fillTool = schemas.ToolDefinition{
		Name:        string(schemas.ActionFillInput),
		Description: "Fills an input field on the current page using a CSS selector and a value.",
		Parameters: []schemas.ToolParameter{selectorParam(),
			{Name: "value", Type: schemas.ParamString, Required: true, Description: "Text to enter."}},
	}
	selectTool = schemas.ToolDefinition{
		Name:        string(schemas.ActionSelectOption),
		Description: "Selects an option from a dropdown (select) element using a CSS selector and a value.",
		Parameters: []schemas.ToolParameter{selectorParam(),
			{Name: "value", Type: schemas.ParamString, Required: true, Description: "Option value or visible label."}},
	}
	selectDateTool = schemas.ToolDefinition{
		Name:        string(schemas.ActionSelectDate),
		Description: "Selects a specific date in a date picker element.",
		Parameters: []schemas.ToolParameter{selectorParam(),
			{Name: "date", Type: schemas.ParamString, Required: true, Description: "Date to select, as shown by the site or YYYY-MM-DD."}},
	}
	setPlayersTool = schemas.ToolDefinition{
		Name:        string(schemas.ActionSetPlayerCount),
		Description: "Sets the number of players in a numerical input or selector.",
		Parameters: []schemas.ToolParameter{selectorParam(),
			{Name: "numPlayers", Type: schemas.ParamInteger, Required: true, Description: "Party size."}},
	}
	selectTimeTool = schemas.ToolDefinition{
		Name:        string(schemas.ActionSelectTime),
		Description: "Selects a specific time from a time picker or list of time slots.",
		Parameters: []schemas.ToolParameter{selectorParam(),
			{Name: "time", Type: schemas.ParamString, Required: true, Description: "Time to select."}},
	}
	submitSearchTool = schemas.ToolDefinition{
		Name:        string(schemas.ActionSubmitSearch),
		Description: "Clicks the button to submit the booking criteria form.",
		Parameters:  []schemas.ToolParameter{selectorParam()},
	}
	completeBookingTool = schemas.ToolDefinition{
		Name: string(schemas.ActionCompleteBookingForm),
		Description: "Indicates that all user details have been filled and the final booking button should be clicked. " +
			"This implies the next step is actual confirmation.",
	}
)

// Catalogue is the closed set of tools offered to the oracle for one flow.
type Catalogue struct {
	Flow  Flow
	Tools []schemas.ToolDefinition
}

// DiscoveryCatalogue returns the discovery tools. The extraction tool's description
// names the party size and date being searched for.
func DiscoveryCatalogue(date string, players int) Catalogue {
	extract := schemas.ToolDefinition{
		Name: string(schemas.ActionExtractTeeTimes),
		Description: fmt.Sprintf("Call this when you believe you have navigated to the correct page for displaying tee times, "+
			"and the tee times for %d players on %s are visible or can be extracted. If a direct list of times is not found "+
			"but form elements (date picker, time picker, player count) are present, the tool will return an empty list, "+
			"and you should then use other tools to interact with the form.", players, date),
	}
	return Catalogue{
		Flow: FlowDiscovery,
		Tools: []schemas.ToolDefinition{
			navigateTool, clickTool, fillTool, selectTool, extract,
			selectDateTool, setPlayersTool, selectTimeTool, submitSearchTool,
		},
	}
}

// BookingCatalogue returns the booking tools.
func BookingCatalogue() Catalogue {
	return Catalogue{
		Flow:  FlowBooking,
		Tools: []schemas.ToolDefinition{clickTool, fillTool, selectTool, completeBookingTool},
	}
}

// Lookup returns the tool definition with the given name, if the catalogue offers it.
func (c Catalogue) Lookup(name string) (schemas.ToolDefinition, bool) {
	for _, t := range c.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return schemas.ToolDefinition{}, false
}
