// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/tasksync/internal/tasks"
)

var sample = tasks.Collection{
	{ID: 2, Label: "bravo"},
	{ID: 1, Label: "Alpha"},
	{ID: 10, Label: "charlie"},
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestSpit_Golden(t *testing.T) {
	tests := []struct {
		name string
		data tasks.Collection
		opts Options
	}{
		{name: "json", data: sample, opts: Options{Format: FormatJSON}},
		{name: "json_sorted", data: sample, opts: Options{Format: FormatJSON, Sort: "-id"}},
		{name: "json_placeholder", data: tasks.Collection{{ID: 1, Label: "Alpha"}, {ID: -1, Label: "New task #1"}}, opts: Options{Format: FormatJSON}},
		{name: "json_empty", data: nil, opts: Options{Format: FormatJSON}},
		{name: "yaml", data: sample, opts: Options{Format: FormatYAML, Sort: "label"}},
		{name: "yaml_empty", data: tasks.Collection{}, opts: Options{Format: FormatYAML}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Spit(&buf, tt.data, tt.opts))
			newGoldie(t).Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestSpit_Text(t *testing.T) {
	var buf bytes.Buffer
	data := tasks.Collection{{ID: 1, Label: "Alpha"}, {ID: -3, Label: "New task #3"}}
	require.NoError(t, Spit(&buf, data, Options{Format: FormatText, Titles: true}))

	out := buf.String()
	assert.Contains(t, out, "label")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "New task #3"+PendingSuffix)
	assert.NotContains(t, out, "-3")
}

func TestSpit_TextEmptyAndFooter(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Updated: time.Now().Add(-3 * time.Minute)}
	require.NoError(t, Spit(&buf, tasks.Collection{}, opts))

	assert.True(t, strings.HasPrefix(buf.String(), EmptyMessage+"\n"))
	assert.Contains(t, buf.String(), "updated 3 minutes ago")
}

func TestSpit_UnknownFormat(t *testing.T) {
	assert.Error(t, Spit(&bytes.Buffer{}, sample, Options{Format: "raw"}))
}

func TestSpit_DoesNotReorderInput(t *testing.T) {
	data := sample.Clone()
	require.NoError(t, Spit(&bytes.Buffer{}, data, Options{Format: FormatJSON, Sort: "id"}))
	assert.Equal(t, sample, data)
}

func TestFilterItems(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []int
	}{
		{name: "no filter", spec: "", want: []int{2, 1, 10}},
		{name: "id equals", spec: "id=10", want: []int{10}},
		{name: "id greater numeric", spec: "id>1", want: []int{2, 10}},
		{name: "id not less", spec: "id!<2", want: []int{2, 10}},
		{name: "label contains", spec: "label@ar", want: []int{10}},
		{name: "label fold", spec: "label~alpha", want: []int{1}},
		{name: "label prefix negated", spec: "label!^b", want: []int{1, 10}},
		{name: "label regex", spec: "label/^[a-c]", want: []int{2, 10}},
		{name: "combined", spec: "id>1,label^c", want: []int{10}},
		{name: "unknown key ignored", spec: "owner=me", want: []int{2, 1, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterItems(sample.Clone(), tt.spec)
			ids := make([]int, 0, len(got))
			for _, it := range got {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestBuildFilters(t *testing.T) {
	filters := BuildFilters("label!@truck,id=2")
	require.Len(t, filters, 2)
	assert.Equal(t, Filter{Key: "label", Negate: true, Operand: "@", Target: "truck"}, filters[0])
	assert.Equal(t, Filter{Key: "id", Operand: "=", Target: "2"}, filters[1])

	t.Setenv("TASKSYNC_FILTER_DELIM", ";")
	assert.Len(t, BuildFilters("label@a;id>1"), 2)
}

func TestSortItems(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []int
	}{
		{name: "empty keeps order", spec: "", want: []int{2, 1, 10}},
		{name: "id ascending", spec: "id", want: []int{1, 2, 10}},
		{name: "id descending", spec: "-id", want: []int{10, 2, 1}},
		{name: "label case insensitive", spec: "label", want: []int{1, 2, 10}},
		{name: "label case sensitive", spec: "!label", want: []int{1, 2, 10}},
		{name: "label descending", spec: "-label", want: []int{10, 2, 1}},
		{name: "invalid key ignored", spec: "owner", want: []int{2, 1, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := sample.Clone()
			SortItems(data, tt.spec)
			ids := make([]int, 0, len(data))
			for _, it := range data {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestDiff(t *testing.T) {
	before := tasks.Collection{{ID: 1, Label: "Alpha"}, {ID: 2, Label: "bravo"}}

	out, err := Diff(before, before.Clone(), false)
	require.NoError(t, err)
	assert.Empty(t, out)

	after := tasks.Collection{{ID: 2, Label: "bravo"}, {ID: 10, Label: "New task 10"}}
	out, err = Diff(before, after, false)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	var added, removed bool
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "+") && strings.Contains(line, "New task 10") {
			added = true
		}
		if strings.HasPrefix(line, "-") && strings.Contains(line, "Alpha") {
			removed = true
		}
	}
	assert.True(t, added, "diff should add the new task:\n%s", out)
	assert.True(t, removed, "diff should remove the completed task:\n%s", out)
}

func TestDiff_FromUndefined(t *testing.T) {
	out, err := Diff(nil, tasks.Collection{{ID: 1, Label: "Alpha"}}, false)
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha")
}
