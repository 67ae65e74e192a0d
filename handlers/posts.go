package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"yatube.dev/yatube/models"
	"yatube.dev/yatube/services"
)

const maxUploadSize = 10 << 20

func Index(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := env.Blog.ListPosts(r.Context(), models.PostFilter{}, r.URL.Query().Get("page"))
		if err != nil {
			serverError(env, w, r, "Index", err)
			return
		}
		env.Views.Render(w, http.StatusOK, "index.html", PostListView{
			Layout: env.layout(r, "Latest updates"),
			Page:   page,
		})
	}
}

func GroupPosts(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group, err := env.Blog.GetGroup(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			failed(env, w, r, "GroupPosts", err)
			return
		}
		page, err := env.Blog.ListPosts(r.Context(), models.PostFilter{GroupID: group.ID}, r.URL.Query().Get("page"))
		if err != nil {
			serverError(env, w, r, "GroupPosts", err)
			return
		}
		env.Views.Render(w, http.StatusOK, "group_list.html", PostListView{
			Layout: env.layout(r, group.Title),
			Page:   page,
			Group:  group,
		})
	}
}

func Profile(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author, err := env.Blog.GetUser(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			failed(env, w, r, "Profile", err)
			return
		}
		renderProfile(env, w, r, author, http.StatusOK, "")
	}
}

func renderProfile(env *Env, w http.ResponseWriter, r *http.Request, author *models.User, status int, message string) {
	ctx := r.Context()
	page, err := env.Blog.ListPosts(ctx, models.PostFilter{AuthorID: author.ID}, r.URL.Query().Get("page"))
	if err != nil {
		serverError(env, w, r, "Profile", err)
		return
	}
	stats, err := env.Blog.FollowStats(ctx, author.ID)
	if err != nil {
		serverError(env, w, r, "Profile stats", err)
		return
	}
	view := PostListView{
		Layout: env.layout(r, "Profile of "+author.Name()),
		Page:   page,
		Author: author,
		Stats:  stats,
		Error:  message,
	}
	if viewer := CurrentUser(r); viewer != nil && viewer.ID != author.ID {
		if view.Following, err = env.Blog.IsFollowing(ctx, viewer.ID, author.ID); err != nil {
			serverError(env, w, r, "Profile follow state", err)
			return
		}
	}
	env.Views.Render(w, status, "profile.html", view)
}

func PostDetail(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intVar(r, "id")
		if !ok {
			notFound(env, w, r)
			return
		}
		renderPostDetail(env, w, r, id, http.StatusOK, "", "")
	}
}

func renderPostDetail(env *Env, w http.ResponseWriter, r *http.Request, id, status int, commentText, commentError string) {
	ctx := r.Context()
	post, err := env.Blog.GetPost(ctx, id)
	if err != nil {
		failed(env, w, r, "PostDetail", err)
		return
	}
	count, err := env.Blog.CountAuthorPosts(ctx, post.AuthorID)
	if err != nil {
		serverError(env, w, r, "PostDetail count", err)
		return
	}
	comments, err := env.Blog.ListComments(ctx, id)
	if err != nil {
		serverError(env, w, r, "PostDetail comments", err)
		return
	}
	env.Views.Render(w, status, "post_detail.html", PostDetailView{
		Layout:          env.layout(r, "Post "+post.String()),
		Post:            post,
		AuthorPostCount: count,
		Comments:        comments,
		CommentText:     commentText,
		CommentError:    commentError,
	})
}

// readPostForm parses the post form. An unparsable group id is passed on
// as 0 so the service rejects it as an unknown group.
func readPostForm(w http.ResponseWriter, r *http.Request) (services.PostInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	in := services.PostInput{Text: r.FormValue("text")}
	if raw := strings.TrimSpace(r.FormValue("group")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			id = 0
		}
		in.GroupID = &id
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil
	case err != nil:
		return in, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return in, err
	}
	in.Image = &services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return in, nil
}

func (env *Env) renderPostForm(w http.ResponseWriter, r *http.Request, status int, view PostFormView) {
	groups, err := env.Blog.ListGroups(r.Context())
	if err != nil {
		serverError(env, w, r, "PostForm groups", err)
		return
	}
	view.Groups = groups
	title := "New post"
	if view.IsEdit {
		title = "Edit post"
	}
	view.Layout = env.layout(r, title)
	env.Views.Render(w, status, "create_post.html", view)
}

func formView(in services.PostInput, err error) PostFormView {
	view := PostFormView{Text: in.Text}
	if in.GroupID != nil {
		view.GroupID = *in.GroupID
	}
	if ve, ok := services.IsValidation(err); ok {
		view.Errors = map[string]string{ve.Field: ve.Message}
	}
	return view
}

func CreatePost(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			env.renderPostForm(w, r, http.StatusOK, PostFormView{})
			return
		}

		user := CurrentUser(r)
		in, err := readPostForm(w, r)
		if err != nil {
			env.renderPostForm(w, r, http.StatusBadRequest, PostFormView{
				Text:   in.Text,
				Errors: map[string]string{"image": "Upload a valid image."},
			})
			return
		}
		if _, err := env.Blog.CreatePost(r.Context(), user, in); err != nil {
			if _, ok := services.IsValidation(err); ok {
				env.renderPostForm(w, r, http.StatusBadRequest, formView(in, err))
				return
			}
			serverError(env, w, r, "CreatePost", err)
			return
		}
		http.Redirect(w, r, profileURL(user.Username), http.StatusFound)
	}
}

// EditPost lets the author change a post. Anyone else is sent back to the
// post page without changes.
func EditPost(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intVar(r, "id")
		if !ok {
			notFound(env, w, r)
			return
		}
		post, err := env.Blog.GetPost(r.Context(), id)
		if err != nil {
			failed(env, w, r, "EditPost", err)
			return
		}
		user := CurrentUser(r)
		if post.AuthorID != user.ID {
			http.Redirect(w, r, postURL(id), http.StatusFound)
			return
		}

		if r.Method == http.MethodGet {
			view := PostFormView{IsEdit: true, PostID: id, Text: post.Text, Image: post.Image}
			if post.GroupID != nil {
				view.GroupID = *post.GroupID
			}
			env.renderPostForm(w, r, http.StatusOK, view)
			return
		}

		in, err := readPostForm(w, r)
		if err != nil {
			env.renderPostForm(w, r, http.StatusBadRequest, PostFormView{
				IsEdit: true, PostID: id, Text: in.Text, Image: post.Image,
				Errors: map[string]string{"image": "Upload a valid image."},
			})
			return
		}
		if _, err := env.Blog.UpdatePost(r.Context(), id, user, in); err != nil {
			switch {
			case errors.Is(err, services.ErrPermission):
				http.Redirect(w, r, postURL(id), http.StatusFound)
			case errors.Is(err, services.ErrNotFound):
				notFound(env, w, r)
			default:
				if _, ok := services.IsValidation(err); ok {
					view := formView(in, err)
					view.IsEdit, view.PostID, view.Image = true, id, post.Image
					env.renderPostForm(w, r, http.StatusBadRequest, view)
					return
				}
				serverError(env, w, r, "EditPost", err)
			}
			return
		}
		http.Redirect(w, r, postURL(id), http.StatusFound)
	}
}

func DeletePost(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intVar(r, "id")
		if !ok {
			notFound(env, w, r)
			return
		}
		user := CurrentUser(r)
		err := env.Blog.DeletePost(r.Context(), id, user)
		switch {
		case err == nil:
			http.Redirect(w, r, profileURL(user.Username), http.StatusFound)
		case errors.Is(err, services.ErrPermission):
			http.Redirect(w, r, postURL(id), http.StatusFound)
		default:
			failed(env, w, r, "DeletePost", err)
		}
	}
}
