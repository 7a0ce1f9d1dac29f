package table_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/bsscheck/internal/table"
)

func surnames() [][]string {
	return [][]string{{"Zeta"}, {"Alpha"}, {"Omega"}, {"Delta"}, {"Beta"}}
}

func TestSortByTogglesDirection(t *testing.T) {
	fake := newFakeDataTable("subjects", []string{"Family Name"}, surnames(), 2)
	tbl := table.New(fake.domPage(), fastConfig("#subjects"), nil)
	ctx := context.Background()

	dir, err := tbl.SortDirection(ctx, "Family Name")
	require.NoError(t, err)
	assert.Equal(t, "", dir)

	require.NoError(t, tbl.SortBy(ctx, "Family Name"))
	dir, err = tbl.SortDirection(ctx, "Family Name")
	require.NoError(t, err)
	assert.Equal(t, "asc", dir)

	require.NoError(t, tbl.SortBy(ctx, "Family Name"))
	dir, err = tbl.SortDirection(ctx, "Family Name")
	require.NoError(t, err)
	assert.Equal(t, "desc", dir)

	_, err = tbl.SortDirection(ctx, "Born")
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestVerifySort(t *testing.T) {
	fake := newFakeDataTable("subjects", []string{"Family Name"}, surnames(), 2)
	tbl := table.New(fake.domPage(), fastConfig("#subjects"), nil)
	ctx := context.Background()

	require.NoError(t, tbl.SortBy(ctx, "Family Name"))
	v, err := tbl.VerifySort(ctx, "Family Name", table.String, true)
	require.NoError(t, err)
	assert.True(t, v.Sorted)
	assert.Equal(t, -1, v.BreakIndex)
	assert.Equal(t, 3, v.Pages)
	assert.Equal(t, "ascending", v.Direction())
	assert.Equal(t, []string{"Alpha", "Beta", "Delta", "Omega", "Zeta"}, v.Values)

	require.NoError(t, tbl.SortBy(ctx, "Family Name"))
	v, err = tbl.VerifySort(ctx, "Family Name", table.String, true)
	require.NoError(t, err)
	assert.False(t, v.Sorted)
	assert.Equal(t, 1, v.BreakIndex)

	v, err = tbl.VerifySort(ctx, "Family Name", table.String, false)
	require.NoError(t, err)
	assert.True(t, v.Sorted)
	assert.Equal(t, "descending", v.Direction())
}

func TestVerifySortCoercionKeepsValues(t *testing.T) {
	fake := newFakeDataTable("t", []string{"Born"}, [][]string{{"01-Jun-1987"}, {"unknown"}}, 10)
	tbl := table.New(fake.domPage(), fastConfig("#t"), nil)

	v, err := tbl.VerifySort(context.Background(), "Born", table.Date, true)
	assert.ErrorIs(t, err, table.ErrCoercion)
	require.NotNil(t, v)
	assert.Equal(t, []string{"01-Jun-1987", "unknown"}, v.Values)
	assert.False(t, v.Sorted)
}

func TestVerifySortUnknownHeader(t *testing.T) {
	fake := newFakeDataTable("t", []string{"Born"}, nil, 10)
	tbl := table.New(fake.domPage(), fastConfig("#t"), nil)

	v, err := tbl.VerifySort(context.Background(), "Surname", table.String, true)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}
