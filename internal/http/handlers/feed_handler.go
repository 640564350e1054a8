package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feed-sync/internal/cache"
	"github.com/tbourn/go-feed-sync/internal/domain"
	"github.com/tbourn/go-feed-sync/internal/utils"
)

//
// DTOs
//

// PostsResponse is the post list together with the refresh status.
type PostsResponse struct {
	Posts []domain.Post    `json:"posts"`
	Feed  cache.FeedStatus `json:"feed"`
	// Query echoes the search term when the list was filtered.
	Query string `json:"query,omitempty" example:"history"`
}

// PostView is one cached post annotated with its favourite flag.
type PostView struct {
	domain.Post
	Favourite bool `json:"favourite"`
}

//
// Handlers
//

// GetState godoc
// @ID          getState
// @Summary     Full cache snapshot
// @Description Returns posts, comments, favourites, the selected post and the feed status in one consistent view.
// @Tags        Feed
// @Produce     json
// @Success     200  {object}  cache.Snapshot
// @Router      /state [get]
func (h *Handlers) GetState(c *gin.Context) {
	ok(c, http.StatusOK, h.cache.Snapshot())
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List cached posts
// @Description Returns the cached feed in catalog order. With q, only posts matching the query are returned, best match first. Search never contacts the catalog.
// @Tags        Feed
// @Produce     json
// @Param       q      query  string  false  "Search term"        example(history)
// @Param       limit  query  int     false  "Maximum posts"      minimum(1)
// @Success     200  {object}  handlers.PostsResponse
// @Router      /posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))

	var posts []domain.Post
	if q != "" && h.search != nil {
		posts = h.search.Search(q)
	} else {
		q = ""
		posts = h.cache.Posts()
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	if limit := utils.AtoiDefault(c.Query("limit"), 0); limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}

	ok(c, http.StatusOK, PostsResponse{Posts: posts, Feed: h.cache.Feed(), Query: q})
}

// RefreshPosts godoc
// @ID          refreshPosts
// @Summary     Refresh the feed from the catalog
// @Description Replaces the cached posts with a fresh catalog page. On failure the previous posts are kept and the feed status carries the error.
// @Tags        Feed
// @Produce     json
// @Success     200  {object}  handlers.PostsResponse
// @Header      502  {integer} Retry-After  "Seconds before retrying"
// @Failure     502  {object}  handlers.ErrorResponse  "Catalog unavailable"
// @Router      /posts/refresh [post]
func (h *Handlers) RefreshPosts(c *gin.Context) {
	if err := h.syncSvc.RefreshPosts(c.Request.Context()); err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, PostsResponse{Posts: h.cache.Posts(), Feed: h.cache.Feed()})
}

// GetPost godoc
// @ID          getPost
// @Summary     Get one cached post
// @Tags        Feed
// @Produce     json
// @Param       id   path  int  true  "Post ID"  minimum(1)
// @Success     200  {object}  handlers.PostView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not cached"
// @Router      /posts/{id} [get]
func (h *Handlers) GetPost(c *gin.Context) {
	id, valid := parsePostID(c)
	if !valid {
		return
	}
	p, found := h.cache.Post(id)
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
		return
	}
	ok(c, http.StatusOK, PostView{Post: p, Favourite: h.cache.IsFavourite(id)})
}

// SelectPost godoc
// @ID          selectPost
// @Summary     Select a post
// @Description Marks a cached post as the one being viewed.
// @Tags        Feed
// @Produce     json
// @Param       id   path  int  true  "Post ID"  minimum(1)
// @Success     200  {object}  handlers.PostView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not cached"
// @Router      /posts/{id}/select [post]
func (h *Handlers) SelectPost(c *gin.Context) {
	id, valid := parsePostID(c)
	if !valid {
		return
	}
	p, found := h.cache.Post(id)
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
		return
	}
	h.cache.SelectPost(p)
	ok(c, http.StatusOK, PostView{Post: p, Favourite: h.cache.IsFavourite(id)})
}

// GetSelected godoc
// @ID          getSelected
// @Summary     Get the selected post
// @Tags        Feed
// @Produce     json
// @Success     200  {object}  handlers.PostView
// @Failure     404  {object}  handlers.ErrorResponse  "Nothing selected"
// @Router      /selected [get]
func (h *Handlers) GetSelected(c *gin.Context) {
	p, found := h.cache.SelectedPost()
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no post selected")
		return
	}
	ok(c, http.StatusOK, PostView{Post: p, Favourite: h.cache.IsFavourite(p.ID)})
}

// ClearSelected godoc
// @ID          clearSelected
// @Summary     Clear the selection
// @Tags        Feed
// @Success     204  {string}  string  "No Content"
// @Router      /selected [delete]
func (h *Handlers) ClearSelected(c *gin.Context) {
	h.cache.ClearSelection()
	noContent(c)
}
