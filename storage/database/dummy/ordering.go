package dummydb

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/infast/crm/core"
)

// comparator returns <0, 0 or >0 like strings.Compare.
type comparator[T any] func(a, b T) int

// orderBy sorts records following ordering. Unknown fields are ignored; ties keep
// the fallback order.
func orderBy[T any](records []T, ordering []core.DBOrdering, fields map[string]comparator[T], fallback comparator[T]) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			c := cmp(records[i], records[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return fallback(records[i], records[j]) < 0
	})
}

func cmpString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// cmpTimePtr sorts nil dates after every set date, like Postgres does with NULLs ascending.
func cmpTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmpTime(*a, *b)
}

func cmpDecimal(a, b decimal.Decimal) int {
	return a.Cmp(b)
}
