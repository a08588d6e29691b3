// Package dedupe finds leads that describe the same business.
package dedupe

import (
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/agenthands/leadblitz/internal/core/csvimport"
	"github.com/agenthands/leadblitz/internal/core/model"
)

const (
	KindDomain = "domain"
	KindPhone  = "phone"
	KindName   = "name"
)

// NameThreshold is the Jaro-Winkler similarity above which two business
// names in the same city are treated as the same business.
const NameThreshold = 0.93

// Group is a set of two or more leads sharing Key.
type Group struct {
	Kind    string   `json:"kind"`
	Key     string   `json:"key"`
	LeadIDs []string `json:"lead_ids"`
}

// NormalizePhone keeps digits only. Numbers shorter than seven digits
// cannot be compared and normalize to "".
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimPrefix(b.String(), "00")
	if len(digits) < 7 {
		return ""
	}
	return digits
}

// NormalizeName lower-cases a business name and strips punctuation.
func NormalizeName(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// City is the second-to-last comma separated address part, lower-cased.
func City(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(parts[len(parts)-2]))
}

// DomainOf is the lead's normalized website domain, or "".
func DomainOf(l *model.Lead) string {
	if !csvimport.ValidURL(l.Website) {
		return ""
	}
	return csvimport.NormalizeDomain(l.Website)
}

// Find groups leads by shared domain, shared phone, and near-identical
// names within one city, in that order.
func Find(leads []*model.Lead) []Group {
	var out []Group
	out = append(out, exact(KindDomain, leads, DomainOf)...)
	out = append(out, exact(KindPhone, leads, func(l *model.Lead) string { return NormalizePhone(l.Phone) })...)
	out = append(out, SimilarNames(leads)...)
	return out
}

func exact(kind string, leads []*model.Lead, key func(*model.Lead) string) []Group {
	byKey := map[string][]string{}
	for _, l := range leads {
		if k := key(l); k != "" {
			byKey[k] = append(byKey[k], l.ID)
		}
	}
	var out []Group
	for k, ids := range byKey {
		if len(ids) > 1 {
			out = append(out, Group{Kind: kind, Key: k, LeadIDs: ids})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SimilarNames groups leads in the same city whose names are within
// NameThreshold of each other.
func SimilarNames(leads []*model.Lead) []Group {
	byCity := map[string][]*model.Lead{}
	var cities []string
	for _, l := range leads {
		city := City(l.Address)
		if city == "" || NormalizeName(l.Name) == "" {
			continue
		}
		if _, ok := byCity[city]; !ok {
			cities = append(cities, city)
		}
		byCity[city] = append(byCity[city], l)
	}
	sort.Strings(cities)

	var out []Group
	for _, city := range cities {
		members := byCity[city]
		ids := make([]string, len(members))
		var edges [][2]string
		for i, a := range members {
			ids[i] = a.ID
			for _, b := range members[i+1:] {
				if matchr.JaroWinkler(NormalizeName(a.Name), NormalizeName(b.Name), false) >= NameThreshold {
					edges = append(edges, [2]string{a.ID, b.ID})
				}
			}
		}
		for _, comp := range Components(ids, edges) {
			out = append(out, Group{Kind: KindName, Key: city, LeadIDs: comp})
		}
	}
	return out
}
