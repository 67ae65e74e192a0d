package handlers

import (
	"html/template"

	"yatube.dev/yatube/models"
)

// Layout is embedded in every view; base.html reads the navigation state
// from it.
type Layout struct {
	Viewer *models.User
	Title  string
	// CSRFField goes inside every POST form.
	CSRFField template.HTML
	CSRFToken string
}

// PostListView backs index, group, profile and follow pages.
type PostListView struct {
	Layout
	Page  *models.Page
	Group *models.Group
	// Profile fields.
	Author    *models.User
	Following bool
	Stats     models.FollowStats
	Error     string
}

func (v PostListView) IsOwnProfile() bool {
	return v.Author != nil && v.Viewer != nil && v.Author.ID == v.Viewer.ID
}

type PostDetailView struct {
	Layout
	Post            *models.PostWithAuthor
	AuthorPostCount int
	Comments        []models.CommentWithUser
	CommentText     string
	CommentError    string
}

func (v PostDetailView) CanEdit() bool {
	return v.Viewer != nil && v.Viewer.ID == v.Post.AuthorID
}

type PostFormView struct {
	Layout
	IsEdit  bool
	PostID  int
	Text    string
	GroupID int
	Image   string
	Groups  []models.Group
	Errors  map[string]string
}

type GroupFormView struct {
	Layout
	GroupTitle  string
	Slug        string
	Description string
	Errors      map[string]string
}

type AuthFormView struct {
	Layout
	Username    string
	DisplayName string
	Email       string
	Next        string
	Error       string
	Errors      map[string]string
}

type ErrorView struct {
	Layout
	Path string
}
