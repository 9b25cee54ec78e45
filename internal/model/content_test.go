package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in     string
		want   Category
		wantOK bool
	}{
		{"images", CategoryImages, true},
		{"Videos", CategoryVideos, true},
		{" audios ", CategoryAudios, true},
		{"stories", CategoryStories, true},
		{"podcasts", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCategory(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	media := MediaPayload{Kind: CategoryVideos, URL: "https://v.example/1", Description: "clip"}
	data := EncodePayload(media)
	assert.Equal(t, CategoryVideos, data.CollectionType)
	assert.Empty(t, data.Text)

	back, err := data.Payload()
	require.NoError(t, err)
	assert.Equal(t, media, back)

	text := TextPayload{Text: "once upon a time"}
	data = EncodePayload(text)
	assert.Equal(t, CategoryStories, data.CollectionType)
	back, err = data.Payload()
	require.NoError(t, err)
	assert.Equal(t, text, back)

	_, err = PostData{CollectionType: "podcasts"}.Payload()
	assert.Error(t, err)
}

func TestPostJSONShape(t *testing.T) {
	p := NewPost("u1", "Sunset", MediaPayload{Kind: CategoryImages, URL: "https://img.example/s.png"})
	p.ID = "p1"
	p.Date = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "p1", got["_id"])
	assert.Equal(t, "u1", got["user"])
	assert.Equal(t, []any{}, got["likes"])
	assert.Equal(t, []any{}, got["dislikes"])
	assert.Equal(t, map[string]any{"collectionType": "images", "url": "https://img.example/s.png"}, got["data"])
}

func TestNewComment(t *testing.T) {
	c, err := NewComment(ParentRef{Kind: KindStory, ID: "s1"}, "u1", "nice")
	require.NoError(t, err)
	assert.Equal(t, "s1", c.StoryID)
	assert.Empty(t, c.PostID)
	assert.Equal(t, ParentRef{Kind: KindStory, ID: "s1"}, c.Parent())

	c, err = NewComment(ParentRef{Kind: KindPost, ID: "p1"}, "u1", "nice")
	require.NoError(t, err)
	assert.Equal(t, ParentRef{Kind: KindPost, ID: "p1"}, c.Parent())

	_, err = NewComment(ParentRef{Kind: KindComment, ID: "c1"}, "u1", "nice")
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestNewProfileView_FollowsReferenceOrder(t *testing.T) {
	profile := NewProfile("u1")
	profile.ID = "pr1"
	profile.Posts = []string{"p3", "p1", "gone"}
	profile.Stories = []string{"s1"}

	posts := []Post{{ID: "p1", Title: "first"}, {ID: "p3", Title: "third"}}
	stories := []Story{{ID: "s1", Title: "tale", Text: "..."}}

	view := NewProfileView(profile, Author{ID: "u1", Name: "Ann"}, posts, stories)

	require.Len(t, view.Posts, 2)
	assert.Equal(t, "p3", view.Posts[0].ID)
	assert.Equal(t, "p1", view.Posts[1].ID)
	require.Len(t, view.Stories, 1)
	assert.Equal(t, "tale", view.Stories[0].Title)
	assert.Equal(t, "Ann", view.User.Name)
}

func TestStoryDetailShadowsComments(t *testing.T) {
	s := NewStory("u1", "t", "x")
	s.ID = "s1"
	detail := StoryDetail{
		StoryView: NewStoryView(s, Author{ID: "u1"}),
		Comments:  []CommentView{{ID: "c1", Text: "hi"}},
	}

	raw, err := json.Marshal(detail)
	require.NoError(t, err)

	var got struct {
		Comments []map[string]any `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "hi", got.Comments[0]["text"])
}
