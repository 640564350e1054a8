package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// CommentsResponse lists the cached comments of one post, newest local
// comments first.
type CommentsResponse struct {
	PostID   int64            `json:"postId" example:"3"`
	Comments []domain.Comment `json:"comments"`
	// Warning is set when the refreshed list could not be saved locally.
	Warning string `json:"warning,omitempty"`
}

// AddCommentRequest is the JSON payload for posting a comment.
type AddCommentRequest struct {
	Body string `json:"body" example:"Great read!"`
}

// AddCommentResponse carries the created comment.
type AddCommentResponse struct {
	Comment domain.Comment `json:"comment"`
	// Warning is set when the comment is shown but could not be saved.
	Warning string `json:"warning,omitempty"`
}

// ListComments godoc
// @ID          listComments
// @Summary     List cached comments of a post
// @Description The post does not have to be in the feed; an unknown post has no comments.
// @Tags        Comments
// @Produce     json
// @Param       id   path  int  true  "Post ID"  minimum(1)
// @Success     200  {object}  handlers.CommentsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /posts/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	id, valid := parsePostID(c)
	if !valid {
		return
	}
	ok(c, http.StatusOK, CommentsResponse{PostID: id, Comments: nonNil(h.cache.Comments(id))})
}

// RefreshComments godoc
// @ID          refreshComments
// @Summary     Refresh the comments of a post from the catalog
// @Description Replaces the post's cached comments, including locally authored ones, with the catalog's list.
// @Tags        Comments
// @Produce     json
// @Param       id   path  int  true  "Post ID"  minimum(1)
// @Success     200  {object}  handlers.CommentsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Catalog unavailable"
// @Failure     503  {object}  handlers.ErrorResponse  "State not hydrated yet"
// @Router      /posts/{id}/comments/refresh [post]
func (h *Handlers) RefreshComments(c *gin.Context) {
	id, valid := parsePostID(c)
	if !valid {
		return
	}
	warning, handled := persistWarning(c, h.syncSvc.RefreshComments(c.Request.Context(), id))
	if !handled {
		return
	}
	ok(c, http.StatusOK, CommentsResponse{
		PostID:   id,
		Comments: nonNil(h.cache.Comments(id)),
		Warning:  warning,
	})
}

// AddComment godoc
// @ID          addComment
// @Summary     Comment on a post
// @Description Adds a comment authored by the signed-in user at the top of the post's list.
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Replay key for safe retries"
// @Param       id    path  int                          true  "Post ID"  minimum(1)
// @Param       body  body  handlers.AddCommentRequest   true  "Comment"
// @Success     201  {object}  handlers.AddCommentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Empty comment or bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     503  {object}  handlers.ErrorResponse  "State still loading"
// @Router      /posts/{id}/comments [post]
func (h *Handlers) AddComment(c *gin.Context) {
	id, valid := parsePostID(c)
	if !valid {
		return
	}
	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	sess, err := h.sessSvc.Current(ctx)
	if err != nil {
		c.Header("Retry-After", strconv.Itoa(retryAfterStore))
		fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "could not read session")
		return
	}

	cm, err := h.mutSvc.AddComment(ctx, id, req.Body, sess.Username())
	warning, handled := persistWarning(c, err)
	if !handled {
		return
	}
	ok(c, http.StatusCreated, AddCommentResponse{Comment: cm, Warning: warning})
}

func nonNil(cs []domain.Comment) []domain.Comment {
	if cs == nil {
		return []domain.Comment{}
	}
	return cs
}
