package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"yatube.dev/yatube/metrics"
	"yatube.dev/yatube/models"
	"yatube.dev/yatube/repository"
)

const (
	DefaultPageSize = 10
	sideEffectLimit = 10 * time.Second
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Blog implements posts, comments, groups and follows on top of a Store.
type Blog struct {
	store    repository.Store
	images   ImageStorage
	notifier Notifier
	events   EventPublisher
	pageSize int
}

// BlogDeps lists the collaborators of Blog. Nil fields fall back to no-op
// implementations; a nil Images rejects uploads.
type BlogDeps struct {
	Store    repository.Store
	Images   ImageStorage
	Notifier Notifier
	Events   EventPublisher
	PageSize int
}

func NewBlog(deps BlogDeps) *Blog {
	b := &Blog{
		store:    deps.Store,
		images:   deps.Images,
		notifier: deps.Notifier,
		events:   deps.Events,
		pageSize: deps.PageSize,
	}
	if b.notifier == nil {
		b.notifier = NoopNotifier()
	}
	if b.events == nil {
		b.events = NoopPublisher()
	}
	if b.pageSize <= 0 {
		b.pageSize = DefaultPageSize
	}
	return b
}

// PostInput carries the editable fields of a post form.
type PostInput struct {
	Text    string
	GroupID *int
	Image   *Upload
}

type GroupInput struct {
	Title       string
	Slug        string
	Description string
}

// background runs fn detached from the request so notification and event
// delivery never delay or fail the caller.
func background(name string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectLimit)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("[Events] %s error: %v", name, err)
		}
	}()
}

func (b *Blog) publish(e Event) {
	e.OccurredAt = time.Now().UTC()
	background(e.Type, func(ctx context.Context) error {
		return b.events.Publish(ctx, e)
	})
}

// ListPosts returns one page of posts matching f, newest first.
func (b *Blog) ListPosts(ctx context.Context, f models.PostFilter, page string) (*models.Page, error) {
	count, err := b.store.CountPosts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	number, numPages := pageBounds(count, b.pageSize, page)
	posts, err := b.store.ListPosts(ctx, f, b.pageSize, (number-1)*b.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return &models.Page{Number: number, NumPages: numPages, Count: count, Posts: posts}, nil
}

// FeedFor pages through posts by the authors userID follows.
func (b *Blog) FeedFor(ctx context.Context, userID int, page string) (*models.Page, error) {
	return b.ListPosts(ctx, models.PostFilter{FollowerID: userID}, page)
}

func (b *Blog) GetPost(ctx context.Context, id int) (*models.PostWithAuthor, error) {
	p, err := b.store.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", id, err)
	}
	return p, nil
}

func (b *Blog) CountAuthorPosts(ctx context.Context, authorID int) (int, error) {
	return b.store.CountPosts(ctx, models.PostFilter{AuthorID: authorID})
}

func (b *Blog) validatePost(ctx context.Context, in *PostInput) error {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return invalid("text", "This field is required.")
	}
	if in.GroupID != nil {
		if _, err := b.store.GetGroupByID(ctx, *in.GroupID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid("group", "Select a valid choice.")
			}
			return fmt.Errorf("load group: %w", err)
		}
	}
	if in.Image != nil {
		if b.images == nil {
			return invalid("image", "Image uploads are disabled.")
		}
		if _, err := CheckImage(*in.Image); err != nil {
			return err
		}
	}
	return nil
}

// dropImages removes stored images after the rows pointing at them are gone.
// Failures only leave orphaned files behind, so they are logged.
func (b *Blog) dropImages(ctx context.Context, op string, keys ...string) {
	if b.images == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := b.images.Remove(ctx, key); err != nil {
			log.Printf("%s image cleanup error: %v", op, err)
		}
	}
}

func (b *Blog) CreatePost(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	if err := b.validatePost(ctx, &in); err != nil {
		return nil, err
	}
	p := &models.Post{Text: in.Text, GroupID: in.GroupID, AuthorID: author.ID}
	if in.Image != nil {
		key, err := b.images.Save(ctx, *in.Image)
		if err != nil {
			return nil, fmt.Errorf("save image: %w", err)
		}
		p.Image = key
	}
	if err := b.store.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	metrics.PostsCreated.Inc()
	b.publish(Event{Type: EventPostCreated, ActorID: author.ID, PostID: p.ID})
	return p, nil
}

// UpdatePost applies in to the post when editor is its author. The
// publication date is never touched; the image is replaced only when a new
// one is uploaded.
func (b *Blog) UpdatePost(ctx context.Context, id int, editor *models.User, in PostInput) (*models.Post, error) {
	current, err := b.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if editor == nil || current.AuthorID != editor.ID {
		return nil, fmt.Errorf("edit post %d: %w", id, ErrPermission)
	}
	if err := b.validatePost(ctx, &in); err != nil {
		return nil, err
	}

	p := current.Post
	p.Text = in.Text
	p.GroupID = in.GroupID
	if in.Image != nil {
		key, err := b.images.Save(ctx, *in.Image)
		if err != nil {
			return nil, fmt.Errorf("save image: %w", err)
		}
		p.Image = key
	}
	if err := b.store.UpdatePost(ctx, &p); err != nil {
		if p.Image != current.Image {
			b.dropImages(ctx, "UpdatePost", p.Image)
		}
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	if p.Image != current.Image {
		b.dropImages(ctx, "UpdatePost", current.Image)
	}
	return &p, nil
}

func (b *Blog) DeletePost(ctx context.Context, id int, editor *models.User) error {
	current, err := b.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if editor == nil || current.AuthorID != editor.ID {
		return fmt.Errorf("delete post %d: %w", id, ErrPermission)
	}
	if err := b.store.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	b.dropImages(ctx, "DeletePost", current.Image)
	return nil
}

// AddComment lets any authenticated user reply to an existing post.
func (b *Blog) AddComment(ctx context.Context, postID int, author *models.User, text string) (*models.Comment, error) {
	post, err := b.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("text", "This field is required.")
	}
	c := &models.Comment{PostID: postID, AuthorID: author.ID, Text: text}
	if err := b.store.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	metrics.CommentsCreated.Inc()
	b.publish(Event{Type: EventCommentCreated, ActorID: author.ID, PostID: postID, AuthorID: post.AuthorID})
	background("notify comment", func(ctx context.Context) error {
		b.notifier.NewComment(ctx, post, author, text)
		return nil
	})
	return c, nil
}

func (b *Blog) ListComments(ctx context.Context, postID int) ([]models.CommentWithUser, error) {
	return b.store.ListComments(ctx, postID)
}

// DeleteComment removes a comment written by editor and returns the post it
// belonged to.
func (b *Blog) DeleteComment(ctx context.Context, id int, editor *models.User) (int, error) {
	c, err := b.store.GetComment(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("comment %d: %w", id, err)
	}
	if editor == nil || c.AuthorID != editor.ID {
		return c.PostID, fmt.Errorf("delete comment %d: %w", id, ErrPermission)
	}
	if err := b.store.DeleteComment(ctx, id); err != nil {
		return c.PostID, fmt.Errorf("delete comment %d: %w", id, err)
	}
	return c.PostID, nil
}

// Follow subscribes user to author's posts.
func (b *Blog) Follow(ctx context.Context, user, author *models.User) error {
	if user.ID == author.ID {
		return invalid("author", "You cannot follow yourself.")
	}
	err := b.store.CreateFollow(ctx, &models.Follow{UserID: user.ID, AuthorID: author.ID})
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: already following %s", ErrConflict, author.Username)
	}
	if err != nil {
		return fmt.Errorf("follow %s: %w", author.Username, err)
	}

	metrics.Follows.WithLabelValues("follow").Inc()
	b.publish(Event{Type: EventFollowCreated, ActorID: user.ID, AuthorID: author.ID})
	background("notify follower", func(ctx context.Context) error {
		b.notifier.NewFollower(ctx, user, author)
		return nil
	})
	return nil
}

// Unfollow removes the edge if present; a missing edge is not an error.
func (b *Blog) Unfollow(ctx context.Context, user, author *models.User) error {
	removed, err := b.store.DeleteFollow(ctx, user.ID, author.ID)
	if err != nil {
		return fmt.Errorf("unfollow %s: %w", author.Username, err)
	}
	if removed {
		metrics.Follows.WithLabelValues("unfollow").Inc()
	}
	return nil
}

func (b *Blog) IsFollowing(ctx context.Context, userID, authorID int) (bool, error) {
	return b.store.FollowExists(ctx, userID, authorID)
}

func (b *Blog) FollowStats(ctx context.Context, userID int) (models.FollowStats, error) {
	return b.store.FollowStats(ctx, userID)
}

func (b *Blog) CreateGroup(ctx context.Context, in GroupInput) (*models.Group, error) {
	g := &models.Group{
		Title:       strings.TrimSpace(in.Title),
		Slug:        strings.TrimSpace(in.Slug),
		Description: strings.TrimSpace(in.Description),
	}
	switch {
	case g.Title == "":
		return nil, invalid("title", "This field is required.")
	case utf8.RuneCountInString(g.Title) > 200:
		return nil, invalid("title", "Ensure this value has at most 200 characters.")
	case g.Slug == "":
		return nil, invalid("slug", "This field is required.")
	case len(g.Slug) > 50:
		return nil, invalid("slug", "Ensure this value has at most 50 characters.")
	case !slugPattern.MatchString(g.Slug):
		return nil, invalid("slug", "Enter a valid slug of letters, numbers, underscores or hyphens.")
	case g.Description == "":
		return nil, invalid("description", "This field is required.")
	case utf8.RuneCountInString(g.Description) > 400:
		return nil, invalid("description", "Ensure this value has at most 400 characters.")
	}
	if err := b.store.CreateGroup(ctx, g); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: group with slug %q already exists", ErrConflict, g.Slug)
		}
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (b *Blog) GetGroup(ctx context.Context, slug string) (*models.Group, error) {
	g, err := b.store.GetGroupBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", slug, err)
	}
	return g, nil
}

func (b *Blog) ListGroups(ctx context.Context) ([]models.Group, error) {
	return b.store.ListGroups(ctx)
}

// DeleteGroup removes the group; its posts remain without a group.
func (b *Blog) DeleteGroup(ctx context.Context, slug string) error {
	g, err := b.GetGroup(ctx, slug)
	if err != nil {
		return err
	}
	return b.store.DeleteGroup(ctx, g.ID)
}

func (b *Blog) GetUser(ctx context.Context, username string) (*models.User, error) {
	u, err := b.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	u.Password = ""
	return u, nil
}

// DeleteUser removes the account with its posts, comments and follows,
// then the images of those posts.
func (b *Blog) DeleteUser(ctx context.Context, id int) error {
	images, err := b.authorImages(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if err := b.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	b.dropImages(ctx, "DeleteUser", images...)
	return nil
}

func (b *Blog) authorImages(ctx context.Context, authorID int) ([]string, error) {
	if b.images == nil {
		return nil, nil
	}
	f := models.PostFilter{AuthorID: authorID}
	count, err := b.store.CountPosts(ctx, f)
	if err != nil || count == 0 {
		return nil, err
	}
	posts, err := b.store.ListPosts(ctx, f, count, 0)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, p := range posts {
		if p.Image != "" {
			keys = append(keys, p.Image)
		}
	}
	return keys, nil
}

func (b *Blog) RegisterDevice(ctx context.Context, user *models.User, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return invalid("token", "FCM token is required")
	}
	return b.store.RegisterDeviceToken(ctx, user.ID, token)
}
