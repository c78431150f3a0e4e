package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

func TestConfirmationControl(t *testing.T) {
	obs := &schemas.PageObservation{InteractiveElements: []schemas.InteractiveElement{
		{Selector: "a.home", Kind: schemas.ElementLink, Text: "Home"},
		{Selector: "input#email", Kind: schemas.ElementInput},
		{Selector: "a.book-more", Kind: schemas.ElementLink, Text: "Book another round"},
		{Selector: "button#submit", Kind: schemas.ElementButton, Text: "Submit"},
		{Selector: "button.confirm", Kind: schemas.ElementButton, Text: "Confirm Booking"},
	}}
	el, ok := confirmationControl(obs)
	assert.True(t, ok)
	assert.Equal(t, "button.confirm", el.Selector)

	_, ok = confirmationControl(&schemas.PageObservation{InteractiveElements: []schemas.InteractiveElement{
		{Selector: "a.home", Kind: schemas.ElementLink, Text: "Home"},
	}})
	assert.False(t, ok)
}

func TestIsConfirmed(t *testing.T) {
	assert.True(t, isConfirmed(&schemas.PageObservation{URL: "https://golf.example/booking/Confirmation?id=9"}))
	assert.True(t, isConfirmed(&schemas.PageObservation{URL: "https://golf.example/done", TextContent: "Thanks! Booking Confirmed for 4."}))
	assert.False(t, isConfirmed(&schemas.PageObservation{URL: "https://golf.example/checkout", TextContent: "Enter card"}))
	assert.False(t, isConfirmed(nil))
}

func TestErrorMessage(t *testing.T) {
	html := `<html><body>
<div class="alert">Heads up</div>
<p class="form-error-message-hint">ignored</p>
<div class="payment error-message">  Card   declined </div>
<div role="alert">Generic alert</div>
</body></html>`
	assert.Equal(t, "Card declined", errorMessage(html))

	assert.Equal(t, "Session expired", errorMessage(`<div role="alert">Session expired</div>`))
	assert.Equal(t, "", errorMessage(`<p>All good</p>`))
}

func TestErrorMessage_SkipsHiddenTemplates(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{
			name: "Inline display none",
			html: `<div class="error-message" style="display: none">Please fill in all fields</div>
<div class="error-message">Tee time no longer available</div>`,
			want: "Tee time no longer available",
		},
		{
			name: "Hidden attribute on ancestor",
			html: `<section hidden><p class="error-message">Invalid phone</p></section>
<div role="alert">Payment required</div>`,
			want: "Payment required",
		},
		{
			name: "Aria hidden and visibility hidden",
			html: `<div class="error-message" aria-hidden="true">template</div>
<span class="error" style="visibility:hidden">also template</span>
<span class="error">Only 2 spots left</span>`,
			want: "Only 2 spots left",
		},
		{
			name: "Template element",
			html: `<template><div class="error-message">{{message}}</div></template><p>Done</p>`,
			want: "",
		},
		{
			name: "Only hidden errors",
			html: `<div class="error-message" style="DISPLAY: None;color:red">Card declined</div>`,
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errorMessage("<html><body>"+tc.html+"</body></html>"))
		})
	}
}
