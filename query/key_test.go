package query

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_CanonicalForm(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		params []any
		want   string
	}{
		{"kind only", "posts", nil, `["posts"]`},
		{"scalar param", "posts", []any{7}, `["posts",7]`},
		{"string param", "hero", []any{"home"}, `["hero","home"]`},
		{"sorted object", "blogs", []any{map[string]any{"type": "news", "category": "tech"}}, `["blogs",{"category":"tech","type":"news"}]`},
		{"nested", "jobs", []any{map[string]any{"b": []any{1, map[string]any{"z": 1, "y": 2}}, "a": nil}}, `["jobs",{"a":null,"b":[1,{"y":2,"z":1}]}]`},
		{"multiple params", "comments", []any{"post", 3}, `["comments","post",3]`},
		{"html characters unescaped", "q", []any{"<a>"}, `["q","<a>"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := MakeKey(tt.kind, tt.params...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k.String())
			assert.Equal(t, tt.kind, k.Kind())
			assert.Equal(t, len(tt.params), k.Len())
		})
	}
}

func TestKey_EqualityIgnoresFieldOrder(t *testing.T) {
	a := NewKey("blogs", map[string]any{"type": "news", "category": "tech"})
	b := NewKey("blogs", map[string]any{"category": "tech", "type": "news"})
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())

	type filter struct {
		Type     string `json:"type"`
		Category string `json:"category"`
	}
	c := NewKey("blogs", filter{Category: "tech", Type: "news"})
	assert.True(t, a.Equal(c), "struct and map with the same fields must collapse")

	d := NewKey("blogs", map[string]any{"category": "tech", "type": "events"})
	assert.False(t, a.Equal(d))
}

func TestKey_NumbersNormalize(t *testing.T) {
	assert.True(t, NewKey("posts", 1).Equal(NewKey("posts", 1.0)))
	assert.True(t, NewKey("posts", int64(42)).Equal(NewKey("posts", uint8(42))))
	assert.False(t, NewKey("posts", 1).Equal(NewKey("posts", "1")))
}

func TestKey_Params(t *testing.T) {
	k := NewKey("comments", map[string]any{"post_id": 5})
	params := k.Params()
	require.Len(t, params, 1)
	m, ok := params[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("5"), m["post_id"])

	params[0] = "mutated"
	assert.NotEqual(t, "mutated", k.Params()[0])
}

func TestMakeKey_Errors(t *testing.T) {
	_, err := MakeKey("")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = MakeKey("   ")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = MakeKey("bad\nkind")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = MakeKey(strings.Repeat("k", MaxKindLength+1))
	assert.ErrorIs(t, err, ErrKindTooLong)

	_, err = MakeKey("posts", make(chan int))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidKey))
}

func TestNewKey_PanicsOnBadParam(t *testing.T) {
	assert.Panics(t, func() { NewKey("posts", func() {}) })
}

func TestKey_ZeroValue(t *testing.T) {
	var k Key
	assert.True(t, k.IsZero())
	b, err := k.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	b, err = NewKey("posts", 1).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `["posts",1]`, string(b))
}

func TestKey_HasPrefix(t *testing.T) {
	all := NewKey("comments")
	byPost := NewKey("comments", map[string]any{"post_id": 1})
	byPostPage := NewKey("comments", map[string]any{"post_id": 1}, 2)
	other := NewKey("posts")

	assert.True(t, all.HasPrefix(all))
	assert.True(t, byPost.HasPrefix(all))
	assert.True(t, byPostPage.HasPrefix(byPost))
	assert.False(t, all.HasPrefix(byPost))
	assert.False(t, other.HasPrefix(all))
}

func TestPredicates(t *testing.T) {
	posts := NewKey("posts")
	post7 := NewKey("posts", 7)
	jobs := NewKey("jobs", map[string]any{"all": true})

	assert.True(t, MatchKind("posts")(posts))
	assert.True(t, MatchKind("posts")(post7))
	assert.False(t, MatchKind("posts")(jobs))
	assert.True(t, MatchKind("posts", "jobs")(jobs))

	assert.True(t, MatchPrefix(posts)(post7))
	assert.False(t, MatchPrefix(post7)(posts))

	assert.True(t, MatchExact(post7)(NewKey("posts", 7)))
	assert.False(t, MatchExact(post7)(posts))

	either := MatchAny(nil, MatchExact(jobs))
	assert.True(t, either(jobs))
	assert.False(t, either(posts))
	assert.False(t, MatchAny()(posts))

	for _, k := range []Key{posts, post7, jobs, {}} {
		assert.True(t, MatchAll()(k), k.String())
	}
}
