package browser

import (
	"encoding/json"
	"fmt"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// Page commands are fixed scripts. Only selectors from a closed set, integer
// indices and JSON-encoded strings are ever formatted into them.

func selectorFor(kind audit.ElementKind) (string, error) {
	switch kind {
	case audit.ElementButton:
		return "button", nil
	case audit.ElementInput:
		return "input", nil
	default:
		return "", fmt.Errorf("%w: element kind %q", sharedErrors.ErrInvalidInput, kind)
	}
}

const queryElementsScript = `Array.from(document.querySelectorAll(%q)).map((el, i) => ({
  index: i,
  text: ((el.innerText || el.textContent || "").trim()).slice(0, 200),
  type: el.getAttribute("type") || "",
  name: el.getAttribute("name") || "",
  placeholder: el.getAttribute("placeholder") || "",
  value: typeof el.value === "string" ? el.value : ""
}))`

func queryElementsJS(kind audit.ElementKind) (string, error) {
	sel, err := selectorFor(kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(queryElementsScript, sel), nil
}

const clickScript = `(() => {
  const el = document.querySelectorAll(%q)[%d];
  if (!el) return false;
  el.click();
  return true;
})()`

func clickJS(kind audit.ElementKind, index int) (string, error) {
	sel, err := selectorFor(kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(clickScript, sel, index), nil
}

const setValueScript = `(() => {
  const el = document.querySelectorAll("input")[%d];
  if (!el) return {found: false, before: "", after: ""};
  const before = typeof el.value === "string" ? el.value : "";
  el.focus();
  el.value = %s;
  el.dispatchEvent(new Event("input", {bubbles: true}));
  el.dispatchEvent(new Event("change", {bubbles: true}));
  return {found: true, before: before, after: typeof el.value === "string" ? el.value : ""};
})()`

type setValueResult struct {
	Found  bool   `json:"found"`
	Before string `json:"before"`
	After  string `json:"after"`
}

func setValueJS(index int, value string) (string, error) {
	literal, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}
	return fmt.Sprintf(setValueScript, index, literal), nil
}

// metricsScript resolves after a short settle so buffered observers can
// report LCP, layout shifts and long tasks.
const metricsScript = `new Promise(resolve => {
  const acc = {lcp: 0, cls: 0, tbt: 0};
  const observe = (type, fn) => {
    try {
      new PerformanceObserver(list => list.getEntries().forEach(fn)).observe({type: type, buffered: true});
    } catch (e) {}
  };
  observe("largest-contentful-paint", e => { acc.lcp = Math.max(acc.lcp, e.startTime); });
  observe("layout-shift", e => { if (!e.hadRecentInput) acc.cls += e.value; });
  observe("longtask", e => { acc.tbt += Math.max(0, e.duration - 50); });
  setTimeout(() => {
    const nav = performance.getEntriesByType("navigation")[0] || {};
    const paint = performance.getEntriesByType("paint").find(p => p.name === "first-contentful-paint");
    const fcp = paint ? paint.startTime : 0;
    resolve({
      ttfb: nav.responseStart || 0,
      fcp: fcp,
      lcp: acc.lcp || fcp,
      cls: acc.cls,
      tbt: acc.tbt,
      domContentLoaded: nav.domContentLoadedEventEnd || 0,
      load: nav.loadEventEnd || 0,
      transferSize: nav.transferSize || 0,
      resourceCount: performance.getEntriesByType("resource").length
    });
  }, 500);
})`

const serviceWorkerScript = `(async () => {
  if (!("serviceWorker" in navigator)) return false;
  try {
    const regs = await navigator.serviceWorker.getRegistrations();
    return regs.length > 0;
  } catch (e) {
    return false;
  }
})()`

// Chrome's own error page has body text, so it counts as empty.
const bodyTextLengthScript = `(() => {
  if (document.URL.startsWith("chrome-error://")) return 0;
  return document.body ? document.body.innerText.trim().length : 0;
})()`
