package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ContentKind names the entity types that can be reacted to or commented on.
type ContentKind string

const (
	KindPost    ContentKind = "post"
	KindStory   ContentKind = "story"
	KindComment ContentKind = "comment"
)

// Category is the discriminator of a post payload. The values are the URL
// segments of POST /api/posts/{category}.
type Category string

const (
	CategoryImages  Category = "images"
	CategoryAudios  Category = "audios"
	CategoryVideos  Category = "videos"
	CategoryStories Category = "stories"
)

// Categories lists every valid category in route order.
var Categories = []Category{CategoryVideos, CategoryAudios, CategoryImages, CategoryStories}

func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryImages, CategoryAudios, CategoryVideos, CategoryStories:
		return c, true
	}
	return "", false
}

// IsMedia is true for the url-carrying categories.
func (c Category) IsMedia() bool {
	return c == CategoryImages || c == CategoryAudios || c == CategoryVideos
}

// Payload is the category-specific body of a Post. It is one of
// MediaPayload or TextPayload; the category decides which.
type Payload interface {
	Category() Category
	isPayload()
}

// MediaPayload is the body of an image, audio or video post.
type MediaPayload struct {
	Kind        Category
	URL         string
	Description string
}

func (m MediaPayload) Category() Category { return m.Kind }
func (MediaPayload) isPayload()           {}

// TextPayload is the body of a story-category post.
type TextPayload struct {
	Text string
}

func (TextPayload) Category() Category { return CategoryStories }
func (TextPayload) isPayload()         {}

// PostData is the stored and transmitted form of a Payload:
//
//	{"collectionType": "images", "url": "...", "description": "..."}
//	{"collectionType": "stories", "text": "..."}
type PostData struct {
	CollectionType Category `json:"collectionType"        bson:"collectionType"`
	URL            string   `json:"url,omitempty"         bson:"url,omitempty"`
	Description    string   `json:"description,omitempty" bson:"description,omitempty"`
	Text           string   `json:"text,omitempty"        bson:"text,omitempty"`
}

func EncodePayload(p Payload) PostData {
	switch v := p.(type) {
	case MediaPayload:
		return PostData{CollectionType: v.Kind, URL: v.URL, Description: v.Description}
	case TextPayload:
		return PostData{CollectionType: CategoryStories, Text: v.Text}
	default:
		return PostData{}
	}
}

// Payload decodes the stored form back into its variant.
func (d PostData) Payload() (Payload, error) {
	switch {
	case d.CollectionType == CategoryStories:
		return TextPayload{Text: d.Text}, nil
	case d.CollectionType.IsMedia():
		return MediaPayload{Kind: d.CollectionType, URL: d.URL, Description: d.Description}, nil
	default:
		return nil, fmt.Errorf("model: unknown post category %q", d.CollectionType)
	}
}

// Post is a titled content item with a category payload.
type Post struct {
	ID     string   `json:"_id"   bson:"_id"`
	UserID string   `json:"user"  bson:"user"`
	Title  string   `json:"title" bson:"title"`
	Data   PostData `json:"data"  bson:"data"`

	Reactions `bson:",inline"`

	Comments []string  `json:"comments" bson:"comments"` // most recent first
	Date     time.Time `json:"date"     bson:"date"`
}

func NewPost(userID, title string, payload Payload) *Post {
	return &Post{
		UserID:    userID,
		Title:     title,
		Data:      EncodePayload(payload),
		Reactions: NewReactions(),
		Comments:  []string{},
	}
}

// Story is a titled text item owned by a user, listed on the owner's profile.
type Story struct {
	ID     string `json:"_id"   bson:"_id"`
	UserID string `json:"user"  bson:"user"`
	Title  string `json:"title" bson:"title"`
	Text   string `json:"text"  bson:"text"`

	Reactions `bson:",inline"`

	Comments []string  `json:"comments" bson:"comments"`
	Date     time.Time `json:"date"     bson:"date"`
}

func NewStory(userID, title, text string) *Story {
	return &Story{
		UserID:    userID,
		Title:     title,
		Text:      text,
		Reactions: NewReactions(),
		Comments:  []string{},
	}
}

// ParentRef identifies the Post or Story a Comment belongs to.
type ParentRef struct {
	Kind ContentKind
	ID   string
}

func (p ParentRef) String() string {
	return string(p.Kind) + ":" + p.ID
}

var ErrInvalidParent = errors.New("model: comment parent must be a post or a story")

// Comment is attached to exactly one Post or exactly one Story.
type Comment struct {
	ID      string `json:"_id"             bson:"_id"`
	UserID  string `json:"user"            bson:"user"`
	PostID  string `json:"post,omitempty"  bson:"post,omitempty"`
	StoryID string `json:"story,omitempty" bson:"story,omitempty"`
	Text    string `json:"text"            bson:"text"`

	Reactions `bson:",inline"`

	Date time.Time `json:"date" bson:"date"`
}

func NewComment(parent ParentRef, userID, text string) (*Comment, error) {
	c := &Comment{UserID: userID, Text: text, Reactions: NewReactions()}
	switch parent.Kind {
	case KindPost:
		c.PostID = parent.ID
	case KindStory:
		c.StoryID = parent.ID
	default:
		return nil, ErrInvalidParent
	}
	return c, nil
}

// Parent reports which Post or Story the comment is attached to.
func (c *Comment) Parent() ParentRef {
	if c.StoryID != "" {
		return ParentRef{Kind: KindStory, ID: c.StoryID}
	}
	return ParentRef{Kind: KindPost, ID: c.PostID}
}
