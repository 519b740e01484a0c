package linkaudit

import (
	"cmp"
	"slices"

	"github.com/Bahjat/link-audit/internal/model"
)

const untitledSection = "Untitled"

// mergeValidation applies validator outcomes to every link whose href has
// one. Links sharing an href receive the same outcome.
func mergeValidation(links []model.Link, results map[string]model.ValidationResult) {
	for i := range links {
		if r, ok := results[links[i].Href]; ok {
			links[i].Validation = &r
		}
	}
}

// mergeAvailability applies checker outcomes by href.
func mergeAvailability(links []model.Link, results map[string]model.Availability) {
	for i := range links {
		if r, ok := results[links[i].Href]; ok {
			links[i].Availability = r
		}
	}
}

func summarizeExtraction(links []model.Link) model.ExtractSummary {
	s := model.ExtractSummary{
		TotalLinks: len(links),
		ByRegion:   make(map[string]int),
		ByCategory: make(map[model.Category]int),
		BySection:  make(map[string]int),
	}
	for _, l := range links {
		s.ByRegion[l.Region]++
		s.ByCategory[l.Category]++
		s.BySection[l.Section]++
	}
	return s
}

// outcomeOf is the contribution of one link to the outcome counters.
func outcomeOf(l model.Link) model.OutcomeCounts {
	var o model.OutcomeCounts
	if v := l.Validation; v != nil {
		if v.Valid {
			o.Valid = 1
		} else {
			o.Invalid = 1
		}
		if v.Redirected {
			o.Redirected = 1
		} else if v.Error != nil {
			o.Errors = 1
		}
	}
	if a := l.IsAvailable(); a != nil {
		if *a {
			o.Available = 1
		} else {
			o.Unavailable = 1
		}
	}
	return o
}

// aggregate computes the statistics and groupings of an audited page.
func aggregate(pageURL string, links []model.Link) *model.AuditResult {
	stats := model.Stats{
		TotalLinks:     len(links),
		ByCategory:     make(map[model.Category]int),
		BySection:      make(map[string]int),
		CategoryDetail: make(map[model.Category]model.CategoryStats),
		SectionDetail:  make(map[string]model.SectionStats),
	}
	byCategory := make(map[model.Category][]model.Link)
	bySection := make(map[string]map[string][]model.Link)
	matrix := make(map[string]map[model.Category]int)

	for _, l := range links {
		o := outcomeOf(l)
		stats.Totals.Add(o)
		stats.ByCategory[l.Category]++
		stats.BySection[l.Section]++

		cs := stats.CategoryDetail[l.Category]
		cs.Total++
		cs.Add(o)
		stats.CategoryDetail[l.Category] = cs

		ss := stats.SectionDetail[l.Section]
		ss.Total++
		ss.Add(o)
		if ss.Categories == nil {
			ss.Categories = make(map[model.Category]int)
		}
		ss.Categories[l.Category]++
		if l.SectionTitle != nil && *l.SectionTitle != "" && !slices.Contains(ss.Titles, *l.SectionTitle) {
			ss.Titles = append(ss.Titles, *l.SectionTitle)
		}
		stats.SectionDetail[l.Section] = ss

		if matrix[l.Section] == nil {
			matrix[l.Section] = make(map[model.Category]int)
		}
		matrix[l.Section][l.Category]++

		byCategory[l.Category] = append(byCategory[l.Category], l)

		title := untitledSection
		if l.SectionTitle != nil && *l.SectionTitle != "" {
			title = *l.SectionTitle
		}
		if bySection[l.Section] == nil {
			bySection[l.Section] = make(map[string][]model.Link)
		}
		bySection[l.Section][title] = append(bySection[l.Section][title], l)
	}

	return &model.AuditResult{
		URL:                   pageURL,
		Stats:                 stats,
		LinksByCategory:       byCategory,
		LinksBySection:        bySection,
		SectionCategoryMatrix: matrix,
		DetailedResults:       links,
	}
}

// summarizeBatch sums the per-URL stats of successful audits and ranks the
// busiest categories and sections.
func summarizeBatch(results []model.BatchResult, topN int) model.BatchSummary {
	s := model.BatchSummary{
		TotalURLs:  len(results),
		ByCategory: make(map[model.Category]int),
		BySection:  make(map[string]int),
	}
	for _, r := range results {
		if !r.Success || r.AuditResult == nil {
			s.Failed++
			continue
		}
		s.Successful++
		s.TotalLinks += r.Stats.TotalLinks
		s.Totals.Add(r.Stats.Totals)
		for c, n := range r.Stats.ByCategory {
			s.ByCategory[c] += n
		}
		for sec, n := range r.Stats.BySection {
			s.BySection[sec] += n
		}
	}

	s.TopCategories = topCounts(s.ByCategory, topN)
	s.TopSections = topCounts(s.BySection, topN)
	return s
}

func topCounts[K ~string](counts map[K]int, n int) []model.RankedCount {
	ranked := make([]model.RankedCount, 0, len(counts))
	for k, c := range counts {
		ranked = append(ranked, model.RankedCount{Name: string(k), Count: c})
	}
	slices.SortFunc(ranked, func(a, b model.RankedCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
