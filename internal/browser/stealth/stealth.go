// Package stealth makes the automated browser look like an ordinary visitor.
package stealth

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/internal/config"
)

// evasionsScript runs before any page script on every new document.
const evasionsScript = `(() => {
  Object.defineProperty(Navigator.prototype, 'webdriver', { get: () => undefined });
  if (!window.chrome) { window.chrome = { runtime: {} }; }
  const langs = %s;
  Object.defineProperty(Navigator.prototype, 'languages', { get: () => langs });
})();`

// Persona defines the browser characteristics to emulate.
type Persona struct {
	UserAgent string
	Languages []string
	Timezone  string
	Locale    string
}

// PersonaFromConfig derives a persona from the browser settings. The language
// list follows the locale.
func PersonaFromConfig(cfg config.BrowserConfig) Persona {
	p := Persona{UserAgent: cfg.UserAgent, Timezone: cfg.Timezone, Locale: cfg.Locale}
	if p.Locale == "" {
		p.Locale = "en-US"
	}
	p.Languages = []string{p.Locale}
	if base, _, ok := strings.Cut(p.Locale, "-"); ok {
		p.Languages = append(p.Languages, base)
	}
	return p
}

// AcceptLanguage renders the persona's languages as an Accept-Language value.
func (p Persona) AcceptLanguage() string {
	var b strings.Builder
	for i, lang := range p.Languages {
		if i > 0 {
			fmt.Fprintf(&b, ",%s;q=0.%d", lang, 10-i)
			continue
		}
		b.WriteString(lang)
	}
	return b.String()
}

// Script returns the evasion script specialized for the persona.
func (p Persona) Script() string {
	quoted := make([]string, len(p.Languages))
	for i, lang := range p.Languages {
		quoted[i] = fmt.Sprintf("%q", lang)
	}
	return fmt.Sprintf(evasionsScript, "["+strings.Join(quoted, ",")+"]")
}

// Apply returns the CDP actions that install the persona on a page. It must
// run before the first navigation.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying browser persona.",
		zap.String("locale", p.Locale),
		zap.String("timezone", p.Timezone),
	)

	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(p.Script()).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),
		emulation.SetLocaleOverride().WithLocale(p.Locale),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": p.AcceptLanguage()}),
	}
	if p.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(p.UserAgent).WithAcceptLanguage(p.AcceptLanguage()))
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	return tasks
}
