package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-5))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 50, ClampLimit(50))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit+1))
}

func TestClampOffset(t *testing.T) {
	assert.Equal(t, 0, ClampOffset(-1))
	assert.Equal(t, 0, ClampOffset(0))
	assert.Equal(t, 40, ClampOffset(40))
}

func TestNewPageLinksFirstPage(t *testing.T) {
	// 47 results at 20 per page: pages 1..3, currently on page 1.
	links := NewPageLinks("/api/v1/events", 20, 0, 47)

	assert.Equal(t, 1, links.Self.Page)
	assert.Equal(t, 0, links.Self.Offset)
	assert.Equal(t, "/api/v1/events?limit=20&offset=0", links.Self.Href)

	require.NotNil(t, links.Next)
	assert.Equal(t, 20, links.Next.Offset)
	assert.Nil(t, links.Prev)

	assert.Equal(t, 1, links.First.Page)
	assert.Equal(t, 3, links.Last.Page)
	assert.Equal(t, 40, links.Last.Offset)

	// Three pages fit entirely in the window.
	require.Len(t, links.Pages, 3)
	assert.Equal(t, 1, links.Pages[0].Page)
	assert.Equal(t, 3, links.Pages[2].Page)
}

func TestNewPageLinksMiddlePage(t *testing.T) {
	links := NewPageLinks("/api/v1/events", 20, 20, 47)

	assert.Equal(t, 2, links.Self.Page)
	require.NotNil(t, links.Next)
	assert.Equal(t, 40, links.Next.Offset)
	require.NotNil(t, links.Prev)
	assert.Equal(t, 0, links.Prev.Offset)
}

func TestNewPageLinksLastPage(t *testing.T) {
	links := NewPageLinks("/api/v1/events", 20, 40, 47)

	assert.Equal(t, 3, links.Self.Page)
	assert.Nil(t, links.Next)
	require.NotNil(t, links.Prev)
	assert.Equal(t, 20, links.Prev.Offset)
}

func TestNewPageLinksWindowsLongListings(t *testing.T) {
	// 1000 results at 10 per page: 100 pages, current page 50. The
	// numbered links are first, a three-page window, and last.
	links := NewPageLinks("/api/v1/events", 10, 490, 1000)

	require.Len(t, links.Pages, 5)
	assert.Equal(t, 1, links.Pages[0].Page)
	assert.Equal(t, 49, links.Pages[1].Page)
	assert.Equal(t, 50, links.Pages[2].Page)
	assert.Equal(t, 51, links.Pages[3].Page)
	assert.Equal(t, 100, links.Pages[4].Page)
}

func TestNewPageLinksEmptyResult(t *testing.T) {
	links := NewPageLinks("/api/v1/events", 20, 0, 0)

	assert.Equal(t, 1, links.Self.Page)
	assert.Nil(t, links.Next)
	assert.Nil(t, links.Prev)
	require.Len(t, links.Pages, 1)
}

func TestNewPageLinksClampsInputs(t *testing.T) {
	links := NewPageLinks("/api/v1/events", -1, -100, 47)

	assert.Equal(t, 1, links.Self.Page)
	assert.Equal(t, "/api/v1/events?limit=20&offset=0", links.Self.Href)
}
