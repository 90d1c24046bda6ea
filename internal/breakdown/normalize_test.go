package breakdown

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1natex/breakdown-api-GO/internal/tasks"
)

func TestNormalize_ArrayInsideProse(t *testing.T) {
	got, err := Normalize(`Here you go: [{"title":"Buy milk","priority":"High","deadline":"Tonight"}] thanks`)
	require.NoError(t, err)
	assert.Equal(t, []tasks.Draft{
		{Title: "Buy milk", Priority: tasks.PriorityHigh, Deadline: "Tonight"},
	}, got)
}

func TestNormalize_NoArray(t *testing.T) {
	for _, in := range []string{"sorry, I can't help", "", "only an opening [ bracket", "closing ] only"} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrNoArrayFound, "input %q", in)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	_, err := Normalize(`[{"title": "Buy milk",}]`)
	assert.ErrorIs(t, err, ErrMalformedJSON)

	_, err = Normalize(`see [note] and [also this]`)
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestNormalize_DropsEmptyTitlesAndCoercesPriority(t *testing.T) {
	got, err := Normalize(`[{"title":"","priority":"Low"},{"title":"Call bank","priority":"Weird","deadline":"Friday"}]`)
	require.NoError(t, err)
	assert.Equal(t, []tasks.Draft{
		{Title: "Call bank", Priority: tasks.PriorityMedium, Deadline: "Friday"},
	}, got)
}

func TestNormalize_Defaults(t *testing.T) {
	got, err := Normalize(`[
		{"title":"  Pack  ","priority":"low"},
		{"title":"Book","priority":"HIGH","deadline":"   "},
		{"title":"Rest","deadline":42},
		{"title":"   "},
		{"priority":"High"},
		{"title":7},
		"just a string",
		null
	]`)
	require.NoError(t, err)
	assert.Equal(t, []tasks.Draft{
		{Title: "Pack", Priority: tasks.PriorityLow, Deadline: DefaultDeadline},
		{Title: "Book", Priority: tasks.PriorityHigh, Deadline: DefaultDeadline},
		{Title: "Rest", Priority: tasks.PriorityMedium, Deadline: DefaultDeadline},
	}, got)
}

func TestNormalize_EmptyArrayIsValid(t *testing.T) {
	got, err := Normalize("Nothing to do: []")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNormalize_CapsLength(t *testing.T) {
	var items []string
	for i := 0; i < 12; i++ {
		items = append(items, fmt.Sprintf(`{"title":"task %d"}`, i))
	}
	raw := "[" + strings.Join(items, ",") + "]"

	got, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, got, DefaultMaxTasks)
	assert.Equal(t, "task 0", got[0].Title)
	assert.Equal(t, "task 7", got[7].Title)

	got, err = Normalizer{MaxTasks: 3}.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "task 2", got[2].Title)
}

func TestNormalize_CapCountsAcceptedOnly(t *testing.T) {
	got, err := Normalizer{MaxTasks: 2}.Normalize(`[{"title":""},{"title":"a"},{"title":""},{"title":"b"},{"title":"c"}]`)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].Title)
}

func TestNormalize_SkipsLeadingNonJSONBrackets(t *testing.T) {
	raw := "See [notes] below:\n```json\n[{\"title\":\"Draft outline [v2]\",\"priority\":\"Medium\"}]\n```"
	got, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Draft outline [v2]", got[0].Title)
}

func TestNormalize_NestedArraysUseOutermostSpan(t *testing.T) {
	got, err := Normalize(`[{"title":"a","tags":["x","y"]},{"title":"b"}]`)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestArraySpans(t *testing.T) {
	assert.Equal(t, []string{`[1,[2]]`, `["]"]`}, arraySpans(`x [1,[2]] y ["]"] [unclosed`))
	assert.Empty(t, arraySpans("no brackets"))
}

func TestNormalize_ReplacesInvalidUTF8(t *testing.T) {
	got, err := Normalize("[{\"title\":\"bad \xff byte\",\"deadline\":\"\xfeTonight\"}]")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bad � byte", got[0].Title)
	assert.Equal(t, "�Tonight", got[0].Deadline)
	assert.True(t, utf8.ValidString(got[0].Title))
}

func TestNormalize_SavedDraftsReadBackUnchanged(t *testing.T) {
	ctx := context.Background()
	repo, err := tasks.NewFileRepo(t.TempDir(), quietLogger())
	require.NoError(t, err)
	store, err := tasks.NewStore(ctx, repo, tasks.WithLogger(quietLogger()))
	require.NoError(t, err)

	drafts, err := Normalize("[{\"title\":\"bad \xff byte\",\"priority\":\"high\"},{\"title\":\"整理书桌\",\"deadline\":\"今晚\"}]")
	require.NoError(t, err)
	store.Adopt(drafts, "tidy the \xff desk")
	saved, err := store.Save(ctx, "Desk")
	require.NoError(t, err)

	reopened, err := tasks.NewStore(ctx, repo, tasks.WithLogger(quietLogger()))
	require.NoError(t, err)
	loaded, err := reopened.Load(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Tasks, loaded.Tasks)
	assert.Equal(t, saved.Name, loaded.Name)
}
