package browser

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Scripts evaluated in the page. Selectors are embedded as JSON string literals.
const (
	countScript = `document.querySelectorAll(%s).length`

	textScript = `(() => {
	const el = document.querySelector(%s);
	return el ? { found: true, value: el.textContent } : { found: false, value: "" };
})()`

	textsScript = `Array.from(document.querySelectorAll(%s), el => el.textContent)`

	attributeScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return { found: false, present: false, value: "" };
	const name = %s;
	return el.hasAttribute(name)
		? { found: true, present: true, value: el.getAttribute(name) }
		: { found: true, present: false, value: "" };
})()`
)

// lookup is the shape returned by textScript and attributeScript.
type lookup struct {
	Found   bool   `json:"found"`
	Present bool   `json:"present"`
	Value   string `json:"value"`
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// A string always marshals.
		panic(fmt.Sprintf("quote %q: %v", s, err))
	}
	return string(b)
}

func script(format string, args ...string) string {
	quoted := make([]any, len(args))
	for i, a := range args {
		quoted[i] = jsString(a)
	}
	return fmt.Sprintf(format, quoted...)
}
