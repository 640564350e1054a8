package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// FavouritesResponse lists favourite ids in toggle order and the cached
// posts they resolve to. Ids whose post is not cached have no entry in Posts.
type FavouritesResponse struct {
	IDs   []int64       `json:"ids"`
	Posts []domain.Post `json:"posts"`
}

// ToggleFavouriteResponse reports the new state of one post.
type ToggleFavouriteResponse struct {
	PostID    int64 `json:"postId" example:"3"`
	Favourite bool  `json:"favourite" example:"true"`
	// Warning is set when the change is shown but could not be saved.
	Warning string `json:"warning,omitempty"`
}

// ListFavourites godoc
// @ID          listFavourites
// @Summary     List favourites
// @Tags        Favourites
// @Produce     json
// @Success     200  {object}  handlers.FavouritesResponse
// @Router      /favourites [get]
func (h *Handlers) ListFavourites(c *gin.Context) {
	ok(c, http.StatusOK, FavouritesResponse{
		IDs:   h.cache.Favourites(),
		Posts: h.cache.FavouritePosts(),
	})
}

// ToggleFavourite godoc
// @ID          toggleFavourite
// @Summary     Toggle a favourite
// @Description Adds the post to favourites, or removes it when already present. Send an Idempotency-Key when retrying, otherwise a retry toggles again.
// @Tags        Favourites
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Replay key for safe retries"
// @Param       id   path  int  true  "Post ID"  minimum(1)
// @Success     200  {object}  handlers.ToggleFavouriteResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "State still loading"
// @Router      /favourites/{id}/toggle [post]
func (h *Handlers) ToggleFavourite(c *gin.Context) {
	id, valid := parsePostID(c)
	if !valid {
		return
	}
	fav, err := h.mutSvc.ToggleFavourite(c.Request.Context(), id)
	warning, handled := persistWarning(c, err)
	if !handled {
		return
	}
	ok(c, http.StatusOK, ToggleFavouriteResponse{PostID: id, Favourite: fav, Warning: warning})
}
