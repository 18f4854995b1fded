package notify

import "strings"

// Render substitutes {{name}} placeholders from the context into the
// template. Templates are operator-configured strings with plain
// variable substitution only; there is deliberately no conditional or
// loop syntax. Unknown placeholders are left in place so a template typo
// is visible in the delivered mail instead of silently vanishing.
func Render(template string, context map[string]string) string {
	if len(context) == 0 {
		return template
	}
	pairs := make([]string, 0, len(context)*2)
	for key, value := range context {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
