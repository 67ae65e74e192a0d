package models

import "time"

// SummaryLength is how many characters of a text field String returns.
const SummaryLength = 15

type Post struct {
	ID       int       `json:"id"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
	GroupID  *int      `json:"group_id,omitempty"`
	AuthorID int       `json:"author_id"`
	Image    string    `json:"image,omitempty"`
}

func (p Post) String() string {
	return truncate(p.Text, SummaryLength)
}

// PostWithAuthor is a post joined with its author and group for listings.
type PostWithAuthor struct {
	Post
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	GroupSlug   string `json:"group_slug,omitempty"`
	GroupTitle  string `json:"group_title,omitempty"`
}

// PostFilter narrows a post listing. Zero fields are ignored.
// FollowerID selects posts by the authors that user follows.
type PostFilter struct {
	GroupID    int
	AuthorID   int
	FollowerID int
}

type Comment struct {
	ID       int       `json:"id"`
	PostID   int       `json:"post_id"`
	AuthorID int       `json:"author_id"`
	Text     string    `json:"text"`
	Created  time.Time `json:"created"`
}

func (c Comment) String() string {
	return truncate(c.Text, SummaryLength)
}

type CommentWithUser struct {
	Comment
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
