package httputil

import "fmt"

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// pageWindow is how many numbered links surround the current page
	// when there are too many pages to list them all.
	pageWindow = 3
	maxPages   = 5
)

// PageLink is one HATEOAS-style pagination link.
type PageLink struct {
	Page   int    `json:"page"`
	Offset int    `json:"offset"`
	Href   string `json:"href"`
}

// PageLinks is the full link set for one page of results.
type PageLinks struct {
	Self  PageLink   `json:"self"`
	First PageLink   `json:"first"`
	Last  PageLink   `json:"last"`
	Next  *PageLink  `json:"next,omitempty"`
	Prev  *PageLink  `json:"prev,omitempty"`
	Pages []PageLink `json:"pages"`
}

// ClampLimit bounds a requested page size to [1, MaxLimit], defaulting
// zero or negative values to DefaultLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// ClampOffset bounds a requested offset to >= 0.
func ClampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// NewPageLinks computes self/next/prev/first/last links plus a bounded
// window of numbered page links. All pages are listed when there are at
// most five; otherwise the window is the first page, the last page, and
// up to three pages centered on the current one.
func NewPageLinks(basePath string, limit, offset, totalCount int) PageLinks {
	limit = ClampLimit(limit)
	offset = ClampOffset(offset)

	totalPages := (totalCount + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	currentPage := offset/limit + 1
	if currentPage > totalPages {
		currentPage = totalPages
	}

	link := func(page int) PageLink {
		o := (page - 1) * limit
		return PageLink{
			Page:   page,
			Offset: o,
			Href:   fmt.Sprintf("%s?limit=%d&offset=%d", basePath, limit, o),
		}
	}

	links := PageLinks{
		Self:  link(currentPage),
		First: link(1),
		Last:  link(totalPages),
	}

	if currentPage < totalPages {
		next := link(currentPage + 1)
		links.Next = &next
	}
	if currentPage > 1 {
		prev := link(currentPage - 1)
		links.Prev = &prev
	}

	links.Pages = numberedPages(currentPage, totalPages, link)
	return links
}

func numberedPages(current, total int, link func(int) PageLink) []PageLink {
	if total <= maxPages {
		pages := make([]PageLink, 0, total)
		for p := 1; p <= total; p++ {
			pages = append(pages, link(p))
		}
		return pages
	}

	start := current - pageWindow/2
	if start < 2 {
		start = 2
	}
	end := start + pageWindow - 1
	if end > total-1 {
		end = total - 1
		start = end - pageWindow + 1
		if start < 2 {
			start = 2
		}
	}

	pages := []PageLink{link(1)}
	for p := start; p <= end; p++ {
		pages = append(pages, link(p))
	}
	return append(pages, link(total))
}
