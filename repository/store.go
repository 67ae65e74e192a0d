// Package repository persists users, groups, posts, comments, follows and
// device tokens. Deletes honour the cascade rules: removing a user removes
// their posts, comments, follows and tokens; removing a post removes its
// comments; removing a group clears the group of its posts.
package repository

import (
	"context"
	"errors"

	"yatube.dev/yatube/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUser(ctx context.Context, id int) error

	CreateGroup(ctx context.Context, g *models.Group) error
	GetGroupByID(ctx context.Context, id int) (*models.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	DeleteGroup(ctx context.Context, id int) error

	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id int) (*models.PostWithAuthor, error)
	UpdatePost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id int) error
	CountPosts(ctx context.Context, f models.PostFilter) (int, error)
	ListPosts(ctx context.Context, f models.PostFilter, limit, offset int) ([]models.PostWithAuthor, error)

	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id int) (*models.Comment, error)
	ListComments(ctx context.Context, postID int) ([]models.CommentWithUser, error)
	DeleteComment(ctx context.Context, id int) error

	CreateFollow(ctx context.Context, f *models.Follow) error
	FollowExists(ctx context.Context, userID, authorID int) (bool, error)
	DeleteFollow(ctx context.Context, userID, authorID int) (bool, error)
	FollowStats(ctx context.Context, userID int) (models.FollowStats, error)

	RegisterDeviceToken(ctx context.Context, userID int, token string) error
	ListDeviceTokens(ctx context.Context, userID int) ([]string, error)
	DeleteDeviceToken(ctx context.Context, token string) error
}
