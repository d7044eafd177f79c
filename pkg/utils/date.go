package utils

import (
	"strings"
	"time"
)

// ParseDate interpreta a data no layout informado. String vazia retorna nil sem erro.
func ParseDate(dateStr string, layout string) (*time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return nil, nil
	}

	date, err := time.Parse(layout, dateStr)
	if err != nil {
		return nil, err
	}

	return &date, nil
}
