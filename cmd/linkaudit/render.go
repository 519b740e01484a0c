package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Bahjat/link-audit/internal/model"
)

const (
	maxTextWidth = 40
	maxHrefWidth = 70
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func trimmedColumns(names ...string) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(names))
	for _, name := range names {
		width := maxTextWidth
		if name == "Href" {
			width = maxHrefWidth
		}
		configs = append(configs, table.ColumnConfig{Name: name, WidthMax: width, WidthMaxEnforcer: text.Trim})
	}
	return configs
}

func renderExtract(w io.Writer, res *model.ExtractResult) {
	t := newTable(w, res.URL)
	t.AppendHeader(table.Row{"#", "Region", "Category", "Section", "Text", "Href"})
	t.SetColumnConfigs(trimmedColumns("Text", "Href"))

	for _, l := range res.Links {
		t.AppendRow(table.Row{l.Position, l.Region, l.Category, l.Section, l.Text, l.Href})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", res.Summary.TotalLinks})
	t.Render()
}

func renderAudit(w io.Writer, res *model.AuditResult) {
	t := newTable(w, res.URL)
	t.AppendHeader(table.Row{"Category", "Total", "Valid", "Invalid", "Redirected", "Available", "Unavailable"})

	categories := make([]model.Category, 0, len(res.Stats.CategoryDetail))
	for c := range res.Stats.CategoryDetail {
		categories = append(categories, c)
	}
	slices.Sort(categories)
	for _, c := range categories {
		s := res.Stats.CategoryDetail[c]
		t.AppendRow(table.Row{c, s.Total, s.Valid, s.Invalid, s.Redirected, s.Available, s.Unavailable})
	}
	tot := res.Stats.Totals
	t.AppendFooter(table.Row{"Total", res.Stats.TotalLinks, tot.Valid, tot.Invalid, tot.Redirected, tot.Available, tot.Unavailable})
	t.Render()

	problems := problemLinks(res.DetailedResults)
	if len(problems) == 0 {
		return
	}
	fmt.Fprintln(w)

	p := newTable(w, "Problems")
	p.AppendHeader(table.Row{"#", "Category", "Section", "Href", "Status", "Error"})
	p.SetColumnConfigs(trimmedColumns("Href", "Error"))
	for _, l := range problems {
		status, reason := problemDetail(l)
		p.AppendRow(table.Row{l.Position, l.Category, l.Section, l.Href, status, reason})
	}
	p.Render()
}

func renderBatch(w io.Writer, res *model.BatchResponse) {
	t := newTable(w, "Batch")
	t.AppendHeader(table.Row{"URL", "Result", "Links", "Valid", "Invalid", "Unavailable"})
	t.SetColumnConfigs(trimmedColumns("URL"))

	for _, r := range res.Results {
		if !r.Success || r.AuditResult == nil {
			t.AppendRow(table.Row{r.URL, "failed: " + r.Error, "", "", "", ""})
			continue
		}
		tot := r.Stats.Totals
		t.AppendRow(table.Row{r.URL, "ok", r.Stats.TotalLinks, tot.Valid, tot.Invalid, tot.Unavailable})
	}
	s := res.Summary
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d/%d succeeded", s.Successful, s.TotalURLs), "",
		s.TotalLinks, s.Totals.Valid, s.Totals.Invalid, s.Totals.Unavailable,
	})
	t.Render()

	if len(s.TopCategories) == 0 {
		return
	}
	fmt.Fprintln(w)

	top := newTable(w, "Top categories")
	top.AppendHeader(table.Row{"Category", "Links"})
	for _, rc := range s.TopCategories {
		top.AppendRow(table.Row{rc.Name, rc.Count})
	}
	top.Render()
}

// problemLinks returns links that failed validation or were found
// unavailable.
func problemLinks(links []model.Link) []model.Link {
	var out []model.Link
	for _, l := range links {
		if l.Validation != nil && !l.Validation.Valid {
			out = append(out, l)
			continue
		}
		if a := l.IsAvailable(); a != nil && !*a {
			out = append(out, l)
		}
	}
	return out
}

func problemDetail(l model.Link) (status, reason string) {
	if v := l.Validation; v != nil {
		if v.Status != 0 {
			status = strconv.Itoa(v.Status)
		}
		if !v.Valid && v.Error != nil {
			return status, *v.Error
		}
	}
	if l.Availability != nil {
		if f := l.Availability.Failure(); f != nil {
			return status, *f
		}
	}
	return status, "unavailable"
}
