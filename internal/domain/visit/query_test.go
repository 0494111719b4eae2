package visit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithStatus(t *testing.T) {
	f := Filter{}
	g, ok := f.WithStatus(StatusCompleted)
	assert.True(t, ok)
	assert.Equal(t, []Status{StatusCompleted}, g.Statuses)
	assert.Nil(t, f.Statuses)

	pinned := Filter{Statuses: []Status{StatusCompleted, StatusScheduled}}
	g, ok = pinned.WithStatus(StatusScheduled)
	assert.True(t, ok)
	assert.Equal(t, []Status{StatusScheduled}, g.Statuses)

	_, ok = pinned.WithStatus(StatusCancelled)
	assert.False(t, ok)
}

func TestWithRepIDsDoesNotAlias(t *testing.T) {
	f := Filter{RepIDs: []int64{1, 2}, HcpIDs: []int64{3}}
	g := f.WithRepIDs(9)

	assert.Equal(t, []int64{9}, g.RepIDs)
	assert.Equal(t, []int64{1, 2}, f.RepIDs)

	g.HcpIDs[0] = 42
	assert.Equal(t, int64(3), f.HcpIDs[0])
}

func TestSortFieldValid(t *testing.T) {
	assert.True(t, SortHcpName.IsValid())
	assert.False(t, SortField("createdAt").IsValid())
}

func TestPaging(t *testing.T) {
	assert.Equal(t, 0, Page{Number: 1, Size: 25}.Offset())
	assert.Equal(t, 50, Page{Number: 3, Size: 25}.Offset())

	assert.Equal(t, 1, TotalPages(0, 25))
	assert.Equal(t, 1, TotalPages(25, 25))
	assert.Equal(t, 2, TotalPages(26, 25))
	assert.Equal(t, 2, TotalPages(4, 2))
}
