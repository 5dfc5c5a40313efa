package columnar

import (
	"fmt"
	"strconv"

	"github.com/kbukum/pipedata/validation"
)

// HasPlaceholder reports whether template numbers its files, with {i} or a
// zero padded form such as {i:04d}.
func HasPlaceholder(template string) bool {
	return validation.HasPlaceholder(template)
}

// FormatPath replaces every placeholder of template with n.
func FormatPath(template string, n int) string {
	return validation.Placeholder.ReplaceAllStringFunc(template, func(m string) string {
		width := validation.Placeholder.FindStringSubmatch(m)[1]
		if width == "" {
			return strconv.Itoa(n)
		}
		w, _ := strconv.Atoi(width)
		return fmt.Sprintf("%0*d", w, n)
	})
}
