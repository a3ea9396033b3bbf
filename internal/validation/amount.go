package validation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseAmount разбирает денежную сумму из JSON: число или строку с числом.
// Пустое значение считается нулём, как в браузерной форме. Нечисловые и
// бесконечные значения не принимаются.
func ParseAmount(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, true
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, true
		}
	} else {
		text = string(raw)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || !IsFiniteAmount(v) {
		return 0, false
	}
	return v, true
}

// IsFiniteAmount сообщает, что значение конечно.
func IsFiniteAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ToCents переводит сумму в долларах в целое число центов с округлением до ближайшего.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// SplitTags разбирает строку тегов через запятую, отбрасывая пустые элементы.
func SplitTags(s string) []string {
	tags := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// NormalizeTags обрезает пробелы и отбрасывает пустые теги.
func NormalizeTags(in []string) []string {
	return SplitTags(strings.Join(in, ","))
}
