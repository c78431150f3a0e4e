package session

import (
	"context"

	"github.com/bmstoss13/HoleNOne/internal/agent"
	"github.com/bmstoss13/HoleNOne/internal/browser"
)

// BrowserFactory creates sessions on a shared browser manager.
func BrowserFactory(bm *browser.Manager) Factory[*browser.Session] {
	return bm.NewSession
}

// ForAgent exposes a browser session manager as the agent's SessionProvider.
func ForAgent(m *Manager[*browser.Session]) agent.SessionProvider {
	return agent.SessionProviderFunc(func(ctx context.Context, id string) (agent.BrowserSession, func(), error) {
		s, release, err := m.Acquire(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return s, release, nil
	})
}
