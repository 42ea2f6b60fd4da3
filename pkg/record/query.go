package record

import (
	"sort"
	"strings"
)

// Apply runs the query pipeline over a snapshot of a tenant's collection,
// in insertion order. The stage order is part of the contract:
//
//	filter -> search -> sort -> paginate
//
// Filter and search are ANDed; Total and PageCount describe the set after
// filter+search, before the page slice. Callers validate q beforehand.
func Apply(records []Record, q Query, searchFields []string) *Result {
	if len(searchFields) == 0 {
		searchFields = DefaultSearchFields
	}

	// Filter stage: case-insensitive containment on the stringified
	// field value. An absent FilterValue is no constraint.
	matched := records
	if q.FilterField != "" && q.FilterValue != "" {
		want := strings.ToLower(q.FilterValue)
		var kept []Record
		for _, r := range matched {
			if strings.Contains(strings.ToLower(r.Fields[q.FilterField]), want) {
				kept = append(kept, r)
			}
		}
		matched = kept
	}

	// Search stage: any searchable field contains the term.
	if q.Search != "" {
		term := strings.ToLower(q.Search)
		var kept []Record
		for _, r := range matched {
			for _, f := range searchFields {
				if strings.Contains(strings.ToLower(r.Fields[f]), term) {
					kept = append(kept, r)
					break
				}
			}
		}
		matched = kept
	}

	// Sort stage: stable, so records with equal keys keep their relative
	// insertion order and repeated queries are reproducible. Sorting works
	// on a copy; matched may still alias the caller's snapshot.
	if q.SortField != "" {
		sorted := make([]Record, len(matched))
		copy(sorted, matched)
		field := q.SortField
		sort.SliceStable(sorted, func(i, j int) bool {
			return strings.ToLower(sorted[i].Fields[field]) < strings.ToLower(sorted[j].Fields[field])
		})
		matched = sorted
	}

	// Paginate stage.
	total := len(matched)
	pageCount := (total + q.Limit - 1) / q.Limit
	if pageCount < 1 {
		pageCount = 1
	}

	start := (q.Page - 1) * q.Limit
	end := start + q.Limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	items := make([]Record, end-start)
	copy(items, matched[start:end])

	return &Result{Items: items, Total: total, PageCount: pageCount}
}
