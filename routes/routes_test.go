package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/csrf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"yatube.dev/yatube/database"
	"yatube.dev/yatube/handlers"
	"yatube.dev/yatube/models"
	"yatube.dev/yatube/repository"
	"yatube.dev/yatube/services"
)

const postCard = `<article class="post">`

type app struct {
	t      *testing.T
	store  *repository.SQLStore
	cache  *services.MemoryPageCache
	auth   *services.Auth
	router http.Handler
	// csrfCookie and csrfToken are what a browser holds after its first page.
	csrfCookie *http.Cookie
	csrfToken  string
}

func newApp(t *testing.T) *app {
	t.Helper()
	db, err := database.ConnectSQLite(context.Background(), database.SQLiteMemory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := repository.NewSQLStore(db)
	images := services.NewDiskStorage(t.TempDir())
	views, err := handlers.NewRenderer()
	require.NoError(t, err)

	a := &app{
		t:     t,
		store: store,
		cache: services.NewMemoryPageCache(),
		auth:  services.NewAuth(store, "test-secret", time.Hour),
	}
	env := &handlers.Env{
		Blog:          services.NewBlog(services.BlogDeps{Store: store, Images: images}),
		Auth:          a.auth,
		Cache:         a.cache,
		Images:        images,
		Views:         views,
		IndexCacheTTL: 20 * time.Second,
		SessionTTL:    time.Hour,
		CSRFKey:       bytes.Repeat([]byte("k"), 32),
	}
	router := NewRouter(env)
	router.HandleFunc("/csrf-token/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, csrf.Token(r))
	}).Methods("GET")
	a.router = router

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/csrf-token/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	a.csrfToken = rec.Body.String()
	for _, c := range rec.Result().Cookies() {
		if c.Name == handlers.CSRFCookie {
			a.csrfCookie = c
		}
	}
	require.NotNil(t, a.csrfCookie)
	require.NotEmpty(t, a.csrfToken)
	return a
}

func (a *app) user(username string) *models.User {
	a.t.Helper()
	u, err := a.auth.Signup(context.Background(), services.SignupInput{Username: username, Password: "password123"})
	require.NoError(a.t, err)
	return u
}

func (a *app) group(slug string) *models.Group {
	a.t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "About " + slug}
	require.NoError(a.t, a.store.CreateGroup(context.Background(), g))
	return g
}

func (a *app) post(author *models.User, text string, group *models.Group) *models.Post {
	a.t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(a.t, a.store.CreatePost(context.Background(), p))
	return p
}

// send serves req the way a browser that loaded a form would submit it.
func (a *app) send(req *http.Request, as *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	req.AddCookie(&http.Cookie{Name: a.csrfCookie.Name, Value: a.csrfCookie.Value})
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		req.Header.Set("X-CSRF-Token", a.csrfToken)
	}
	return a.serve(req, as)
}

// serve passes req through without adding the CSRF cookie or token.
func (a *app) serve(req *http.Request, as *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	if as != nil {
		token, err := a.auth.IssueToken(as)
		require.NoError(a.t, err)
		req.AddCookie(&http.Cookie{Name: handlers.SessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *app) get(target string, as *models.User) *httptest.ResponseRecorder {
	return a.send(httptest.NewRequest(http.MethodGet, target, nil), as)
}

func (a *app) postForm(target string, form url.Values, as *models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.send(req, as)
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, target, text, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", text))
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	fw.Write(data)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func postPath(id int, suffix string) string {
	return "/posts/" + strconv.Itoa(id) + "/" + suffix
}

func TestPublicPages(t *testing.T) {
	a := newApp(t)
	author := a.user("HasNoName")
	g := a.group("test-slug")
	p := a.post(author, "Test post text", g)

	for _, target := range []string{"/", "/group/test-slug/", "/profile/HasNoName/", postPath(p.ID, "")} {
		rec := a.get(target, nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Test post text", target)
	}

	detail := a.get(postPath(p.ID, ""), nil).Body.String()
	assert.Contains(t, detail, "Author's posts: 1")
	assert.Contains(t, detail, "/group/test-slug/")
}

func TestUnknownPagesRenderCustom404(t *testing.T) {
	a := newApp(t)
	for _, target := range []string{"/group/missing/", "/profile/nobody/", "/posts/999/", "/unexisting_page/"} {
		rec := a.get(target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Custom 404", target)
	}
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	p := a.post(author, "Some text", nil)

	cases := []struct {
		method, target string
	}{
		{http.MethodGet, "/create/"},
		{http.MethodPost, "/create/"},
		{http.MethodGet, postPath(p.ID, "edit/")},
		{http.MethodPost, postPath(p.ID, "edit/")},
		{http.MethodPost, postPath(p.ID, "delete/")},
		{http.MethodPost, postPath(p.ID, "comment/")},
		{http.MethodGet, "/follow/"},
		{http.MethodPost, "/profile/author/follow/"},
		{http.MethodPost, "/profile/author/unfollow/"},
		{http.MethodGet, "/groups/new/"},
		{http.MethodPost, "/devices/"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := a.send(httptest.NewRequest(tc.method, tc.target, nil), nil)
			require.Equal(t, http.StatusFound, rec.Code)
			loc, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "/auth/login/", loc.Path)
			assert.Equal(t, tc.target, loc.Query().Get("next"))
		})
	}

	got, err := a.store.GetPost(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Some text", got.Text)
}

func TestCreatePost(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	g := a.group("cats")

	rec := a.get("/create/", author)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Group cats")

	rec = a.postForm("/create/", url.Values{"text": {"Fresh post"}, "group": {strconv.Itoa(g.ID)}}, author)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))

	posts, err := a.store.ListPosts(context.Background(), models.PostFilter{GroupID: g.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Fresh post", posts[0].Text)
	assert.Equal(t, author.ID, posts[0].AuthorID)
}

func TestCreatePostWithImage(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	data := pngBytes(t, color.White)

	rec := a.send(uploadRequest(t, "/create/", "Post with image", "small.png", data), author)
	require.Equal(t, http.StatusFound, rec.Code)

	posts, err := a.store.ListPosts(context.Background(), models.PostFilter{AuthorID: author.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	key := posts[0].Image
	assert.True(t, strings.HasPrefix(key, "posts/"))
	assert.True(t, strings.HasSuffix(key, "-small.png"))

	media := a.get("/media/"+key, nil)
	assert.Equal(t, http.StatusOK, media.Code)
	assert.Equal(t, data, media.Body.Bytes())
	assert.Equal(t, "image/png", media.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", media.Header().Get("X-Content-Type-Options"))

	page := a.get("/profile/author/", nil).Body.String()
	assert.Contains(t, page, `src="/media/`+key+`"`)
}

func TestSameNamedUploadsDoNotCollide(t *testing.T) {
	a := newApp(t)
	alice := a.user("alice")
	bob := a.user("bob")
	aliceData := pngBytes(t, color.Black)
	bobData := pngBytes(t, color.White)

	require.Equal(t, http.StatusFound, a.send(uploadRequest(t, "/create/", "alice", "photo.png", aliceData), alice).Code)
	require.Equal(t, http.StatusFound, a.send(uploadRequest(t, "/create/", "bob", "photo.png", bobData), bob).Code)

	ctx := context.Background()
	alicePosts, err := a.store.ListPosts(ctx, models.PostFilter{AuthorID: alice.ID}, 10, 0)
	require.NoError(t, err)
	bobPosts, err := a.store.ListPosts(ctx, models.PostFilter{AuthorID: bob.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, alicePosts, 1)
	require.Len(t, bobPosts, 1)
	require.NotEqual(t, alicePosts[0].Image, bobPosts[0].Image)

	assert.Equal(t, aliceData, a.get("/media/"+alicePosts[0].Image, nil).Body.Bytes())
	assert.Equal(t, bobData, a.get("/media/"+bobPosts[0].Image, nil).Body.Bytes())

	rec := a.postForm(postPath(bobPosts[0].ID, "delete/"), url.Values{}, bob)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, a.get("/media/"+bobPosts[0].Image, nil).Code)

	kept := a.get("/media/"+alicePosts[0].Image, nil)
	assert.Equal(t, http.StatusOK, kept.Code)
	assert.Equal(t, aliceData, kept.Body.Bytes())
}

func TestNonImageUploadIsRejected(t *testing.T) {
	a := newApp(t)
	author := a.user("author")

	payload := []byte("<html><script>fetch('/auth/delete/',{method:'POST'})</script></html>")
	rec := a.send(uploadRequest(t, "/create/", "innocent", "evil.html", payload), author)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload a valid image.")

	rec = a.send(uploadRequest(t, "/create/", "innocent", "evil.png", payload), author)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	n, err := a.store.CountPosts(context.Background(), models.PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostWithoutCSRFTokenIsForbidden(t *testing.T) {
	a := newApp(t)
	author := a.user("author")

	form := url.Values{"text": {"forged"}}
	req := httptest.NewRequest(http.MethodPost, "/create/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusForbidden, a.serve(req, author).Code)

	req = httptest.NewRequest(http.MethodPost, "/create/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: a.csrfCookie.Name, Value: a.csrfCookie.Value})
	req.Header.Set("X-CSRF-Token", "not-the-token")
	assert.Equal(t, http.StatusForbidden, a.serve(req, author).Code)

	n, err := a.store.CountPosts(context.Background(), models.PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)

	form.Set("gorilla.csrf.Token", a.csrfToken)
	req = httptest.NewRequest(http.MethodPost, "/create/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: a.csrfCookie.Name, Value: a.csrfCookie.Value})
	assert.Equal(t, http.StatusFound, a.serve(req, author).Code)
}

func TestFormsCarryCSRFField(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	p := a.post(author, "text", nil)

	for _, target := range []string{"/create/", "/groups/new/", postPath(p.ID, "")} {
		body := a.get(target, author).Body.String()
		assert.Contains(t, body, `name="gorilla.csrf.Token"`, target)
	}
	assert.Contains(t, a.get("/auth/login/", nil).Body.String(), `name="gorilla.csrf.Token"`)
}

func TestCreatePostValidation(t *testing.T) {
	a := newApp(t)
	author := a.user("author")

	rec := a.postForm("/create/", url.Values{"text": {"   "}}, author)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")

	rec = a.postForm("/create/", url.Values{"text": {"ok"}, "group": {"nope"}}, author)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	n, err := a.store.CountPosts(context.Background(), models.PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEditPost(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	reader := a.user("reader")
	g := a.group("cats")
	p := a.post(author, "Original text", nil)
	edit := postPath(p.ID, "edit/")

	t.Run("non-author is sent to the post", func(t *testing.T) {
		rec := a.get(edit, reader)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, postPath(p.ID, ""), rec.Header().Get("Location"))

		rec = a.postForm(edit, url.Values{"text": {"Hacked"}}, reader)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, postPath(p.ID, ""), rec.Header().Get("Location"))

		got, err := a.store.GetPost(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original text", got.Text)
		assert.Nil(t, got.GroupID)
	})

	t.Run("author sees a prefilled form", func(t *testing.T) {
		rec := a.get(edit, author)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Original text")
		assert.Contains(t, rec.Body.String(), "Edit post")
	})

	t.Run("author saves", func(t *testing.T) {
		rec := a.postForm(edit, url.Values{"text": {"Edited text"}, "group": {strconv.Itoa(g.ID)}}, author)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, postPath(p.ID, ""), rec.Header().Get("Location"))

		got, err := a.store.GetPost(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Edited text", got.Text)
		require.NotNil(t, got.GroupID)
		assert.Equal(t, g.ID, *got.GroupID)
		assert.True(t, p.PubDate.Equal(got.PubDate))
	})

	t.Run("unknown post", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, a.get("/posts/999/edit/", author).Code)
	})
}

func TestDeletePost(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	reader := a.user("reader")
	p := a.post(author, "Doomed", nil)
	a.store.CreateComment(context.Background(), &models.Comment{PostID: p.ID, AuthorID: reader.ID, Text: "hi"})

	rec := a.postForm(postPath(p.ID, "delete/"), url.Values{}, reader)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, postPath(p.ID, ""), rec.Header().Get("Location"))
	_, err := a.store.GetPost(context.Background(), p.ID)
	require.NoError(t, err)

	rec = a.postForm(postPath(p.ID, "delete/"), url.Values{}, author)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))
	_, err = a.store.GetPost(context.Background(), p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	comments, err := a.store.ListComments(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestComments(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	reader := a.user("reader")
	p := a.post(author, "Discuss", nil)

	rec := a.postForm(postPath(p.ID, "comment/"), url.Values{"text": {"Nice post"}}, reader)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, postPath(p.ID, ""), rec.Header().Get("Location"))

	detail := a.get(postPath(p.ID, ""), nil).Body.String()
	assert.Contains(t, detail, "Nice post")

	rec = a.postForm(postPath(p.ID, "comment/"), url.Values{"text": {""}}, reader)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")

	rec = a.postForm("/posts/999/comment/", url.Values{"text": {"lost"}}, reader)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	comments, err := a.store.ListComments(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	path := "/comments/" + strconv.Itoa(comments[0].ID) + "/delete/"
	rec = a.postForm(path, url.Values{}, author)
	require.Equal(t, http.StatusFound, rec.Code)
	comments, _ = a.store.ListComments(context.Background(), p.ID)
	assert.Len(t, comments, 1, "only the comment author may delete it")

	rec = a.postForm(path, url.Values{}, reader)
	require.Equal(t, http.StatusFound, rec.Code)
	comments, _ = a.store.ListComments(context.Background(), p.ID)
	assert.Empty(t, comments)
}

func TestPagination(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	g := a.group("cats")
	for i := 0; i < 12; i++ {
		a.post(author, "Post number "+strconv.Itoa(i), g)
	}

	for _, base := range []string{"/", "/group/cats/", "/profile/author/"} {
		first := a.get(base, nil).Body.String()
		second := a.get(base+"?page=2", nil).Body.String()
		assert.Equal(t, 10, strings.Count(first, postCard), base)
		assert.Equal(t, 2, strings.Count(second, postCard), base)
	}
	assert.Contains(t, a.get("/profile/author/", nil).Body.String(), "Posts: 12")
}

func TestIndexCacheKeepsContentUntilCleared(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	p := a.post(author, "Cached post", nil)

	first := a.get("/", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Contains(t, first.Body.String(), "Cached post")

	require.NoError(t, a.store.DeletePost(context.Background(), p.ID))

	second := a.get("/", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	require.NoError(t, a.cache.Clear(context.Background(), services.IndexCachePrefix))
	third := a.get("/", nil)
	assert.NotEqual(t, first.Body.Bytes(), third.Body.Bytes())
	assert.NotContains(t, third.Body.String(), "Cached post")
}

func TestFollow(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	reader := a.user("reader")
	stranger := a.user("stranger")
	a.post(author, "For followers", nil)
	ctx := context.Background()

	rec := a.postForm("/profile/author/follow/", url.Values{}, reader)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))
	ok, err := a.store.FollowExists(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	rec = a.postForm("/profile/author/follow/", url.Values{}, reader)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "You already follow author.")
	stats, err := a.store.FollowStats(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FollowersCount)

	rec = a.postForm("/profile/reader/follow/", url.Values{}, reader)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "You cannot follow yourself.")

	assert.Contains(t, a.get("/follow/", reader).Body.String(), "For followers")
	assert.NotContains(t, a.get("/follow/", stranger).Body.String(), "For followers")
	assert.Contains(t, a.get("/profile/author/", reader).Body.String(), "/profile/author/unfollow/")

	for i := 0; i < 2; i++ {
		rec = a.postForm("/profile/author/unfollow/", url.Values{}, reader)
		require.Equal(t, http.StatusFound, rec.Code)
	}
	ok, err = a.store.FollowExists(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, http.StatusNotFound, a.postForm("/profile/nobody/follow/", url.Values{}, reader).Code)
}

func TestCreateGroup(t *testing.T) {
	a := newApp(t)
	u := a.user("admin")
	form := url.Values{"title": {"Cats"}, "slug": {"cats"}, "description": {"All about cats"}}

	rec := a.postForm("/groups/new/", form, u)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/group/cats/", rec.Header().Get("Location"))

	rec = a.postForm("/groups/new/", form, u)
	assert.Equal(t, http.StatusConflict, rec.Code)

	form.Set("slug", "bad slug")
	rec = a.postForm("/groups/new/", form, u)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupLoginLogout(t *testing.T) {
	a := newApp(t)

	rec := a.postForm("/auth/signup/", url.Values{"username": {"newbie"}, "password": {"password123"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), handlers.SessionCookie+"=")

	rec = a.postForm("/auth/signup/", url.Values{"username": {"newbie"}, "password": {"password123"}}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.postForm("/auth/login/", url.Values{"username": {"newbie"}, "password": {"password123"}, "next": {"/create/"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/create/", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, http.StatusOK, a.send(req, nil).Code)

	rec = a.postForm("/auth/login/", url.Values{"username": {"newbie"}, "password": {"password123"}, "next": {"//evil.example"}}, nil)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = a.postForm("/auth/login/", url.Values{"username": {"newbie"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.postForm("/auth/logout/", url.Values{}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestDeleteAccount(t *testing.T) {
	a := newApp(t)
	author := a.user("author")
	p := a.post(author, "Goes away", nil)

	rec := a.postForm("/auth/delete/", url.Values{}, author)
	require.Equal(t, http.StatusFound, rec.Code)

	_, err := a.store.GetPost(context.Background(), p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, a.get("/profile/author/", nil).Code)
}

func TestRegisterDevice(t *testing.T) {
	a := newApp(t)
	u := a.user("author")

	body, _ := json.Marshal(handlers.TokenRequest{Token: "device-token"})
	req := httptest.NewRequest(http.MethodPost, "/devices/", bytes.NewReader(body))
	rec := a.send(req, u)
	require.Equal(t, http.StatusOK, rec.Code)

	tokens, err := a.store.ListDeviceTokens(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"device-token"}, tokens)

	req = httptest.NewRequest(http.MethodPost, "/devices/", strings.NewReader(`{"token":""}`))
	assert.Equal(t, http.StatusBadRequest, a.send(req, u).Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	a := newApp(t)
	rec := a.get("/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	a.get("/", nil)
	rec = a.get("/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(data), "yatube_http_request_duration_seconds")
}
