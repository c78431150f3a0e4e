// internal/browser/session_test.go
package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

const searchPage = `<!doctype html><html><head><title>Pine Valley Tee Sheet</title></head>
<body>
  <h1>Book a tee time</h1>
  <form>
    <input id="date" type="date" placeholder="Date">
    <select id="players"><option value="1">1</option><option value="2">2</option><option value="4">4 golfers</option></select>
    <button id="search" type="button" onclick="document.getElementById('results').style.display='block'">Search</button>
  </form>
  <input type="hidden" name="csrf" value="x">
  <button style="display:none">Invisible</button>
  <div id="results" style="display:none">
    <div class="tee-time-slot"><span class="time">8:00 AM</span><span class="price">$45</span><span class="spots">4 spots</span><a href="/book/800">Book</a></div>
    <div class="tee-time-slot"><span class="time">2:00 PM</span><span class="price">$35</span><span class="spots">4 spots</span><a href="/book/1400">Book</a></div>
  </div>
</body></html>`

const emptyPage = `<!doctype html><html><head><title>Nothing</title></head><body><p>No times today.</p></body></html>`

func TestSession_NavigateAndObserve(t *testing.T) {
	f := newTestFixture(t)
	server := createStaticTestServer(t, map[string]string{"/": searchPage})

	obs, err := f.Session.Navigate(f.Ctx, server.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, "Pine Valley Tee Sheet", obs.Title)
	assert.Contains(t, obs.TextContent, "Book a tee time")
	assert.NotContains(t, obs.TextContent, "Invisible")

	search, ok := obs.Element("button#search")
	require.True(t, ok)
	assert.Equal(t, schemas.ElementButton, search.Kind)
	players, ok := obs.Element("select#players")
	require.True(t, ok)
	assert.Equal(t, schemas.ElementSelect, players.Kind)
	assert.Len(t, players.Options, 3)
	for _, el := range obs.InteractiveElements {
		assert.NotEqual(t, "Invisible", el.Text, "hidden controls must not be observed")
	}
}

func TestSession_ClickRevealsResults(t *testing.T) {
	f := newTestFixture(t)
	server := createStaticTestServer(t, map[string]string{"/": searchPage})

	_, err := f.Session.Navigate(f.Ctx, server.URL+"/")
	require.NoError(t, err)

	before, err := f.Session.ExtractTeeTimes(f.Ctx, "", 4)
	require.NoError(t, err)
	// Slots exist in the DOM even while hidden; extraction is DOM based.
	assert.Len(t, before, 2)

	obs, err := f.Session.Click(f.Ctx, "button#search")
	require.NoError(t, err)
	assert.Contains(t, obs.TextContent, "8:00 AM")

	records, err := f.Session.ExtractTeeTimes(f.Ctx, "", 4)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "8:00 AM", records[0].Time)
	assert.Equal(t, "2:00 PM", records[1].Time)
	assert.Equal(t, server.URL+"/book/800", records[0].BookingURL)
}

func TestSession_MissingElement(t *testing.T) {
	f := newTestFixture(t)
	server := createStaticTestServer(t, map[string]string{"/": searchPage})

	_, err := f.Session.Navigate(f.Ctx, server.URL+"/")
	require.NoError(t, err)

	_, err = f.Session.Click(f.Ctx, "button#does-not-exist")
	assert.ErrorIs(t, err, ErrElementNotFound)

	_, err = f.Session.Fill(f.Ctx, "input#nope", "x")
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestSession_FillAndSelect(t *testing.T) {
	f := newTestFixture(t)
	server := createStaticTestServer(t, map[string]string{"/": searchPage})

	_, err := f.Session.Navigate(f.Ctx, server.URL+"/")
	require.NoError(t, err)

	obs, err := f.Session.Fill(f.Ctx, "input#date", "2025-06-14")
	require.NoError(t, err)
	date, ok := obs.Element("input#date")
	require.True(t, ok)
	assert.Equal(t, "2025-06-14", date.Value)

	obs, err = f.Session.SelectOption(f.Ctx, "select#players", "4 golfers")
	require.NoError(t, err)
	players, ok := obs.Element("select#players")
	require.True(t, ok)
	assert.Equal(t, "4", players.Value)

	_, err = f.Session.SelectOption(f.Ctx, "select#players", "9")
	assert.Error(t, err)
}

func TestSession_NoTeeTimes(t *testing.T) {
	f := newTestFixture(t)
	server := createStaticTestServer(t, map[string]string{"/": emptyPage})

	_, err := f.Session.Navigate(f.Ctx, server.URL+"/")
	require.NoError(t, err)

	records, err := f.Session.ExtractTeeTimes(f.Ctx, "2025-06-14", 2)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSession_NavigationFailure(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.Session.Navigate(f.Ctx, "http://127.0.0.1:1/unreachable")
	assert.ErrorIs(t, err, ErrNavigation)
}

func TestSession_Lifecycle(t *testing.T) {
	f := newTestFixture(t)

	assert.NoError(t, f.Session.Open(f.Ctx), "Open on an open session is a no-op")

	f.Session.Close(context.Background())
	f.Session.Close(context.Background())

	_, err := f.Session.Observe(f.Ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, f.Session.Open(f.Ctx), ErrSessionClosed)

	// The slot is released, so a fresh session can be opened.
	next, err := f.Manager.NewSession(f.Ctx, "second")
	require.NoError(t, err)
	next.Close(context.Background())
}

func TestSession_ClosedWhenPageDies(t *testing.T) {
	f := newTestFixture(t)
	assert.False(t, f.Session.Closed())

	// Simulates the target going away without an explicit Close.
	f.Session.mu.Lock()
	cancel := f.Session.pageCancel
	f.Session.mu.Unlock()
	cancel()

	assert.True(t, f.Session.Closed())
	_, err := f.Session.Observe(f.Ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
	f.Session.Close(context.Background())
}

func TestManager_RelaunchesDeadBrowser(t *testing.T) {
	f := newTestFixture(t)
	f.Session.Close(context.Background())

	f.Manager.launchMu.Lock()
	dead := f.Manager.browserCtx
	f.Manager.browserCancel()
	f.Manager.launchMu.Unlock()
	require.Error(t, dead.Err())

	s, err := f.Manager.NewSession(f.Ctx, "after-crash")
	require.NoError(t, err)
	defer s.Close(context.Background())
	assert.False(t, s.Closed())

	server := createStaticTestServer(t, map[string]string{"/": emptyPage})
	obs, err := s.Navigate(f.Ctx, server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "Nothing", obs.Title)
}
