// Package timeline splits a book list into the sections it is displayed in:
// unread books, books read this week, and older reads grouped by month.
package timeline

import (
	"sort"
	"time"

	"github.com/shishobooks/booktracker/pkg/models"
)

const recentWindow = 7 * 24 * time.Hour

type MonthGroup struct {
	Year  int
	Month time.Month
	// Label is the section heading, e.g. "March 2025".
	Label string
	Books []*models.Book
}

type Timeline struct {
	Unread   []*models.Book
	ThisWeek []*models.Book
	// Months is ordered most recent month first.
	Months []MonthGroup
}

// Len is the number of books across every section.
func (tl Timeline) Len() int {
	n := len(tl.Unread) + len(tl.ThisWeek)
	for _, m := range tl.Months {
		n += len(m.Books)
	}
	return n
}

// Group partitions books relative to now. Each book lands in exactly one
// section, and the input order is kept within a section.
func Group(books []*models.Book, now time.Time) Timeline {
	tl := Timeline{}
	weekAgo := now.Add(-recentWindow)
	months := map[int]*MonthGroup{}

	for _, b := range books {
		if b == nil {
			continue
		}
		if !b.Read {
			tl.Unread = append(tl.Unread, b)
			continue
		}

		date := b.EffectiveDate().In(now.Location())
		if !date.Before(weekAgo) {
			tl.ThisWeek = append(tl.ThisWeek, b)
			continue
		}

		key := date.Year()*12 + int(date.Month()) - 1
		group, ok := months[key]
		if !ok {
			group = &MonthGroup{
				Year:  date.Year(),
				Month: date.Month(),
				Label: date.Format("January 2006"),
			}
			months[key] = group
		}
		group.Books = append(group.Books, b)
	}

	keys := make([]int, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	for _, k := range keys {
		tl.Months = append(tl.Months, *months[k])
	}

	return tl
}
