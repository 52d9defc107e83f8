package mural

import "slices"

// CompareByDate orders records by date, oldest first. Records without a
// parsed date sort after all dated ones.
func CompareByDate(a, b Record) int {
	switch {
	case a.Date == nil && b.Date == nil:
		return 0
	case a.Date == nil:
		return 1
	case b.Date == nil:
		return -1
	}
	return a.Date.Compare(*b.Date)
}

// SortByDate returns a copy of records ordered by CompareByDate. The sort
// is stable and the input is left untouched.
func SortByDate(records []Record) []Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, CompareByDate)
	return sorted
}
