package model

import "time"

// The View types are response shapes in which owner ids have been replaced by
// Author projections ("populated").

type PostView struct {
	ID       string    `json:"_id"`
	User     Author    `json:"user"`
	Title    string    `json:"title"`
	Data     PostData  `json:"data"`
	Likes    []string  `json:"likes"`
	Dislikes []string  `json:"dislikes"`
	Comments []string  `json:"comments"`
	Date     time.Time `json:"date"`
}

func NewPostView(p *Post, author Author) PostView {
	r := p.Reactions.Normalized()
	return PostView{
		ID:       p.ID,
		User:     author,
		Title:    p.Title,
		Data:     p.Data,
		Likes:    r.Likes,
		Dislikes: r.Dislikes,
		Comments: orEmpty(p.Comments),
		Date:     p.Date,
	}
}

type StoryView struct {
	ID       string    `json:"_id"`
	User     Author    `json:"user"`
	Title    string    `json:"title"`
	Text     string    `json:"text"`
	Likes    []string  `json:"likes"`
	Dislikes []string  `json:"dislikes"`
	Comments []string  `json:"comments"`
	Date     time.Time `json:"date"`
}

func NewStoryView(s *Story, author Author) StoryView {
	r := s.Reactions.Normalized()
	return StoryView{
		ID:       s.ID,
		User:     author,
		Title:    s.Title,
		Text:     s.Text,
		Likes:    r.Likes,
		Dislikes: r.Dislikes,
		Comments: orEmpty(s.Comments),
		Date:     s.Date,
	}
}

// StoryDetail is a single story with its comments populated.
// The outer Comments field shadows StoryView.Comments in JSON.
type StoryDetail struct {
	StoryView
	Comments []CommentView `json:"comments"`
}

type CommentView struct {
	ID       string    `json:"_id"`
	User     Author    `json:"user"`
	Post     string    `json:"post,omitempty"`
	Story    string    `json:"story,omitempty"`
	Text     string    `json:"text"`
	Likes    []string  `json:"likes"`
	Dislikes []string  `json:"dislikes"`
	Date     time.Time `json:"date"`
}

func NewCommentView(c *Comment, author Author) CommentView {
	r := c.Reactions.Normalized()
	return CommentView{
		ID:       c.ID,
		User:     author,
		Post:     c.PostID,
		Story:    c.StoryID,
		Text:     c.Text,
		Likes:    r.Likes,
		Dislikes: r.Dislikes,
		Date:     c.Date,
	}
}

type PostSummary struct {
	ID    string    `json:"_id"`
	Title string    `json:"title"`
	Data  PostData  `json:"data"`
	Date  time.Time `json:"date"`
}

type StorySummary struct {
	ID    string    `json:"_id"`
	Title string    `json:"title"`
	Text  string    `json:"text"`
	Date  time.Time `json:"date"`
}

// ProfileView is a profile with its owner and content references populated.
// Posts and Stories keep the profile's most-recent-first order.
type ProfileView struct {
	ID      string         `json:"_id"`
	User    Author         `json:"user"`
	Bio     string         `json:"bio"`
	Skills  []string       `json:"skills"`
	Posts   []PostSummary  `json:"posts"`
	Stories []StorySummary `json:"stories"`
}

// NewProfileView orders the loaded posts and stories by the profile's own
// reference lists. References whose target is missing are skipped.
func NewProfileView(p *Profile, author Author, posts []Post, stories []Story) ProfileView {
	postByID := make(map[string]*Post, len(posts))
	for i := range posts {
		postByID[posts[i].ID] = &posts[i]
	}
	storyByID := make(map[string]*Story, len(stories))
	for i := range stories {
		storyByID[stories[i].ID] = &stories[i]
	}

	view := ProfileView{
		ID:      p.ID,
		User:    author,
		Bio:     p.Bio,
		Skills:  orEmpty(p.Skills),
		Posts:   make([]PostSummary, 0, len(p.Posts)),
		Stories: make([]StorySummary, 0, len(p.Stories)),
	}
	for _, id := range p.Posts {
		if post, ok := postByID[id]; ok {
			view.Posts = append(view.Posts, PostSummary{ID: post.ID, Title: post.Title, Data: post.Data, Date: post.Date})
		}
	}
	for _, id := range p.Stories {
		if story, ok := storyByID[id]; ok {
			view.Stories = append(view.Stories, StorySummary{ID: story.ID, Title: story.Title, Text: story.Text, Date: story.Date})
		}
	}
	return view
}
