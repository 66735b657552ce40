// Package adapter maps loosely-shaped upstream JSON into canonical records.
// Each target field reads through an ordered list of accepted key spellings;
// the first key holding a non-null, non-blank value wins.
package adapter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/models"
)

var (
	corporateNumberKeys = []string{"corporate_number", "corporateNumber"}
	nameKeys            = []string{"name", "name_jp", "nameJp"}
	prefectureKeys      = []string{"prefecture_name", "prefecture", "prefectureName"}
	cityKeys            = []string{"city_name", "city", "cityName"}
	addressKeys         = []string{"address", "street", "location"}
	postalCodeKeys      = []string{"postal_code", "postalCode", "zip"}
	industryKeys        = []string{"sic", "industry"}
)

// Company builds a Company from one upstream object. Required fields default
// to "" when every spelling is missing; optional ones become nil.
func Company(item map[string]any) models.Company {
	return models.Company{
		CorporateNumber: firstString(item, corporateNumberKeys),
		Name:            firstString(item, nameKeys),
		Prefecture:      firstOptional(item, prefectureKeys),
		City:            firstOptional(item, cityKeys),
		Address:         firstOptional(item, addressKeys),
		PostalCode:      firstOptional(item, postalCodeKeys),
		Industry:        firstOptional(item, industryKeys),
	}
}

// Companies maps every object element of raw; anything else is skipped.
func Companies(raw []any) []models.Company {
	out := make([]models.Company, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, Company(m))
		}
	}
	return out
}

// FirstList returns the first value under keys that is a non-empty JSON
// array. Empty arrays are skipped like missing keys.
func FirstList(obj map[string]any, keys ...string) []any {
	for _, k := range keys {
		if list, ok := obj[k].([]any); ok && len(list) > 0 {
			return list
		}
	}
	return nil
}

// FirstInt returns the first value under keys that converts to a non-zero
// integer, or fallback.
func FirstInt(obj map[string]any, fallback int, keys ...string) int {
	for _, k := range keys {
		if n, ok := toInt(obj[k]); ok && n != 0 {
			return n
		}
	}
	return fallback
}

func firstString(item map[string]any, keys []string) string {
	if s := firstOptional(item, keys); s != nil {
		return *s
	}
	return ""
}

func firstOptional(item map[string]any, keys []string) *string {
	for _, k := range keys {
		s, ok := toString(item[k])
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return &s
		}
	}
	return nil
}

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return fmt.Sprintf("%v", t), true
	case bool:
		if !t {
			return "", false
		}
		return "true", true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}
