package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryKeepsOrderAndRepeats(t *testing.T) {
	p := ParseQuery("b=1&a=2&b=3&sort%5BcreatedAt%5D=-1")

	assert.Equal(t, []string{"b", "a", "sort[createdAt]"}, p.Keys())

	b, ok := p.Get("b")
	require.True(t, ok)
	assert.Equal(t, List{"1", "3"}, b)
	assert.Equal(t, "1", p.String("b"))
	assert.Equal(t, "-1", p.String("sort[createdAt]"))
}

func TestMergeOverridesInPlace(t *testing.T) {
	defaults := NewParams()
	defaults.Set("deletedAt", Scalar("2021-01-01"))
	defaults.Set("status", Scalar("active"))

	merged := defaults.Merge(ParseQuery("deletedAt=2022-01-01&page=2"))

	assert.Equal(t, []string{"deletedAt", "status", "page"}, merged.Keys())
	assert.Equal(t, "2022-01-01", merged.String("deletedAt"))
	// defaults untouched
	assert.Equal(t, "2021-01-01", defaults.String("deletedAt"))
}

func TestDeleteAndPick(t *testing.T) {
	p := ParseQuery("a=1&b=2&c=3")
	p.Delete("b")
	assert.Equal(t, []string{"a", "c"}, p.Keys())

	picked := p.Pick(func(k string) bool { return k == "c" })
	assert.Equal(t, []string{"c"}, picked.Keys())
}

func TestFromMap(t *testing.T) {
	p, err := FromMap(map[string]any{
		"deviceName": "Woodford",
		"humidity":   map[string]any{"gt": 10.5},
		"role":       []any{"admin", "teacher"},
		"active":     true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"active", "deviceName", "humidity", "role"}, p.Keys())
	assert.Equal(t, "true", p.String("active"))

	h, _ := p.Get("humidity")
	nested, ok := h.(Nested)
	require.True(t, ok)
	assert.Equal(t, "10.5", nested.String("gt"))

	_, err = FromMap(map[string]any{"bad": []any{map[string]any{"x": 1.0}}})
	var valErr *InvalidFilterValueError
	assert.ErrorAs(t, err, &valErr)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"10", int64(10)},
		{"-2.5", -2.5},
		{"true", true},
		{"false", false},
		{"Woodford", "Woodford"},
		{"NaN", "NaN"},
		{"", ""},
		{"2021-03-01", day(2021, 3, 1)},
		{"2021-3-1", day(2021, 3, 1)},
		{"2021-3-01", day(2021, 3, 1)},
		{"2021-3-1T9:05:00", time.Date(2021, 3, 1, 9, 5, 0, 0, time.UTC)},
		{"2021-3-1 10:30", time.Date(2021, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2021-3-1T10:30:00+10:00", time.Date(2021, 3, 1, 0, 30, 0, 0, time.UTC)},
		{"2021-13-1", "2021-13-1"},
		{"2021-3", "2021-3"},
		{"20210301", int64(20210301)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.in))
		})
	}
}
