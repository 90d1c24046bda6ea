package breakdown

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/s1natex/breakdown-api-GO/internal/tasks"
)

const (
	DefaultMaxTasks = 8
	DefaultDeadline = "This week"
)

var (
	ErrNoArrayFound  = errors.New("no task array in model output")
	ErrMalformedJSON = errors.New("malformed task array in model output")
)

// Normalizer extracts task drafts from free-form model output.
type Normalizer struct {
	// MaxTasks caps the number of accepted drafts; zero means DefaultMaxTasks.
	MaxTasks int
}

// Normalize uses a Normalizer with the default cap.
func Normalize(raw string) ([]tasks.Draft, error) {
	return Normalizer{}.Normalize(raw)
}

// Normalize finds the first bracketed JSON array in raw and turns its
// elements into drafts. Elements without a usable title are dropped, unknown
// priorities become Medium and missing deadlines become DefaultDeadline.
// An empty result is not an error.
func (n Normalizer) Normalize(raw string) ([]tasks.Draft, error) {
	limit := n.MaxTasks
	if limit <= 0 {
		limit = DefaultMaxTasks
	}

	spans := arraySpans(raw)
	if len(spans) == 0 {
		return nil, ErrNoArrayFound
	}
	for _, span := range spans {
		if !gjson.Valid(span) {
			continue
		}
		return collect(gjson.Parse(span), limit), nil
	}
	return nil, ErrMalformedJSON
}

func collect(arr gjson.Result, limit int) []tasks.Draft {
	out := make([]tasks.Draft, 0, limit)
	arr.ForEach(func(_, el gjson.Result) bool {
		if len(out) == limit {
			return false
		}
		if !el.IsObject() {
			return true
		}
		title := el.Get("title")
		if title.Type != gjson.String {
			return true
		}
		name := cleanText(title.String())
		if name == "" {
			return true
		}

		p, _ := tasks.ParsePriority(el.Get("priority").String())
		deadline := DefaultDeadline
		if d := el.Get("deadline"); d.Type == gjson.String {
			if v := cleanText(d.String()); v != "" {
				deadline = v
			}
		}

		out = append(out, tasks.Draft{
			Title:    name,
			Priority: p,
			Deadline: deadline,
		})
		return true
	})
	return out
}

// cleanText trims s and replaces invalid UTF-8 sequences, so the text reads
// back unchanged after a JSON save.
func cleanText(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(s, "\uFFFD"))
}

// arraySpans returns the outermost balanced [...] spans of s in order.
// Brackets inside JSON string literals do not count.
func arraySpans(s string) []string {
	var spans []string
	for i := 0; i < len(s); i++ {
		if s[i] != '[' {
			continue
		}
		end := matchBracket(s, i)
		if end < 0 {
			continue
		}
		spans = append(spans, s[i:end+1])
		i = end
	}
	return spans
}

func matchBracket(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
