// internal/browser/scripts.go
package browser

import (
	"encoding/json"
	"fmt"
)

// observeScript collects URL, title, rendered text and every candidate control.
// Element fields line up with extract.RawElement.
const observeScript = `(() => {
  const esc = (s) => (window.CSS && CSS.escape) ? CSS.escape(s) : s;
  const selectorFor = (el) => {
    let s = el.tagName.toLowerCase();
    if (el.id) s += '#' + esc(el.id);
    for (const c of el.classList) s += '.' + esc(c);
    return s;
  };
  const pathFor = (el) => {
    const parts = [];
    for (let n = el; n && n.nodeType === 1 && n !== document.documentElement; n = n.parentElement) {
      let i = 1;
      for (let sib = n.previousElementSibling; sib; sib = sib.previousElementSibling) {
        if (sib.tagName === n.tagName) i++;
      }
      parts.unshift(n.tagName.toLowerCase() + ':nth-of-type(' + i + ')');
    }
    return 'html > ' + parts.join(' > ');
  };
  const visible = (el) => {
    const style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden') return false;
    return el.getClientRects().length > 0;
  };
  const elements = [];
  for (const el of document.querySelectorAll('button, a, input, select, textarea')) {
    let firstMatch = false;
    try { firstMatch = document.querySelector(selectorFor(el)) === el; } catch (e) {}
    elements.push({
      tag: el.tagName.toLowerCase(),
      id: el.id || '',
      classes: Array.from(el.classList),
      inputType: el.getAttribute('type') || '',
      text: (el.innerText || el.textContent || '').trim(),
      value: typeof el.value === 'string' ? el.value : '',
      placeholder: el.getAttribute('placeholder') || '',
      ariaLabel: el.getAttribute('aria-label') || '',
      labelText: el.labels && el.labels.length ? el.labels[0].innerText : '',
      options: el.tagName === 'SELECT' ? Array.from(el.options).map((o) => o.value || o.text) : [],
      disabled: !!el.disabled,
      hidden: !visible(el),
      path: pathFor(el),
      firstMatch: firstMatch,
    });
  }
  return {
    url: location.href,
    title: document.title,
    text: document.body ? document.body.innerText : '',
    elements: elements,
  };
})()`

// domReadyScript is true once the document has been parsed.
const domReadyScript = `document.readyState !== 'loading'`

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func existsScript(selector string) string {
	return fmt.Sprintf(`(() => { try { return document.querySelector(%s) !== null; } catch (e) { return false; } })()`,
		jsString(selector))
}

func clickScript(selector string) string {
	return fmt.Sprintf(`(() => {
  let el = null;
  try { el = document.querySelector(%s); } catch (e) { return 'missing'; }
  if (!el) return 'missing';
  el.scrollIntoView({block: 'center'});
  el.click();
  return 'ok';
})()`, jsString(selector))
}

// fillScript uses the native value setter so framework-managed inputs see the change,
// then fires input and change.
func fillScript(selector, value string) string {
	return fmt.Sprintf(`(() => {
  let el = null;
  try { el = document.querySelector(%s); } catch (e) { return 'missing'; }
  if (!el) return 'missing';
  const value = %s;
  el.focus();
  if (el instanceof HTMLInputElement || el instanceof HTMLTextAreaElement) {
    const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
    Object.getOwnPropertyDescriptor(proto, 'value').set.call(el, value);
  } else if (el.isContentEditable) {
    el.textContent = value;
  } else if ('value' in el) {
    el.value = value;
  } else {
    return 'unsupported';
  }
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  el.blur();
  return 'ok';
})()`, jsString(selector), jsString(value))
}

// selectScript matches an option by value, then by visible text, case-insensitively.
// Non-select controls fall back to fill semantics.
func selectScript(selector, value string) string {
	return fmt.Sprintf(`(() => {
  let el = null;
  try { el = document.querySelector(%s); } catch (e) { return 'missing'; }
  if (!el) return 'missing';
  const want = %s;
  if (!(el instanceof HTMLSelectElement)) {
    if (!('value' in el)) return 'unsupported';
    const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
    const desc = Object.getOwnPropertyDescriptor(proto, 'value');
    if (desc && desc.set && (el instanceof HTMLInputElement || el instanceof HTMLTextAreaElement)) desc.set.call(el, want); else el.value = want;
  } else {
    const norm = (s) => (s || '').trim().toLowerCase();
    const opts = Array.from(el.options);
    const match = opts.find((o) => o.value === want) ||
      opts.find((o) => norm(o.value) === norm(want)) ||
      opts.find((o) => norm(o.text) === norm(want));
    if (!match) return 'nooption';
    el.value = match.value;
  }
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return 'ok';
})()`, jsString(selector), jsString(value))
}
