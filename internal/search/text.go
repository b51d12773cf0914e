package search

import (
	"encoding/json"
	"strings"
)

type delta struct {
	Ops []struct {
		Insert json.RawMessage `json:"insert"`
	} `json:"ops"`
}

// PlainText извлекает текст из тела сообщения в формате rich-text delta.
// Встроенные объекты (картинки, упоминания) пропускаются.
// Если тело не разбирается как delta, оно возвращается как есть.
func PlainText(body string) string {
	var d delta
	if err := json.Unmarshal([]byte(body), &d); err != nil || d.Ops == nil {
		return strings.TrimSpace(body)
	}

	var sb strings.Builder
	for _, op := range d.Ops {
		var s string
		if err := json.Unmarshal(op.Insert, &s); err != nil {
			continue
		}
		sb.WriteString(s)
	}
	return strings.TrimSpace(sb.String())
}
