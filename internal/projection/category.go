package projection

import (
	"strings"

	"github.com/sells-group/dealbook/internal/model"
)

// CategoryKeys returns the lookup keys for a category path, most specific
// first. For HOTELES > Boutique > Playa it returns
// ["HOTELES:BOUTIQUE:PLAYA", "HOTELES:BOUTIQUE", "HOTELES"].
//
// Segments are trimmed and uppercased. A path without a parent has no
// keys. Levels cannot be skipped: the first missing or blank sub-level ends
// the path, so HOTELES > (none) > Playa yields only ["HOTELES"].
func CategoryKeys(path model.CategoryPath) []string {
	var segments []string
	for _, seg := range path.Segments() {
		if seg == nil {
			break
		}
		s := model.FoldSegment(*seg)
		if s == "" {
			break
		}
		segments = append(segments, s)
	}
	if len(segments) == 0 {
		return []string{}
	}

	keys := make([]string, 0, len(segments))
	for n := len(segments); n > 0; n-- {
		keys = append(keys, strings.Join(segments[:n], ":"))
	}
	return keys
}

// normalizeParent normalizes a parent category the same way CategoryKeys
// does, returning "" when absent.
func normalizeParent(path *model.CategoryPath) string {
	if path == nil || path.Parent == nil {
		return ""
	}
	return model.FoldSegment(*path.Parent)
}

// normalizeKey folds an email or merchant name for matching.
func normalizeKey(s string) string {
	return model.FoldKey(s)
}
