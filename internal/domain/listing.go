package domain

import (
	"sort"
	"strings"
)

type SortOrder string

const (
	SortRecent    SortOrder = "recent"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortProgress  SortOrder = "progress"
)

func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	case SortProgress:
		return SortProgress
	default:
		return SortRecent
	}
}

// Filter keeps campaigns whose product name or description contains term, ignoring case.
// An empty term keeps everything. The input slice is not modified.
func Filter(views []CampaignView, term string) []CampaignView {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]CampaignView, 0, len(views))
	for _, v := range views {
		if term == "" || matches(v, term) {
			out = append(out, v)
		}
	}
	return out
}

func matches(v CampaignView, term string) bool {
	if strings.Contains(strings.ToLower(v.ProductName), term) {
		return true
	}
	return v.Description != nil && strings.Contains(strings.ToLower(*v.Description), term)
}

// Sort orders views in place. Ties keep their relative order.
func Sort(views []CampaignView, order SortOrder) {
	var less func(a, b CampaignView) bool
	switch order {
	case SortPriceAsc:
		less = func(a, b CampaignView) bool { return a.UnitPrice.LessThan(b.UnitPrice) }
	case SortPriceDesc:
		less = func(a, b CampaignView) bool { return a.UnitPrice.GreaterThan(b.UnitPrice) }
	case SortProgress:
		less = func(a, b CampaignView) bool { return a.Progress > b.Progress }
	default:
		less = func(a, b CampaignView) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(views, func(i, j int) bool { return less(views[i], views[j]) })
}

func Page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
