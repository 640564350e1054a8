package catalog

import (
	"fmt"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// Wire types mirror the remote JSON exactly. Required fields are pointers so
// a missing field can be told apart from a zero value; decoding rejects
// unknown fields. Nothing reaches the cache unless the whole payload passes.

type wireReactions struct {
	Likes    *int `json:"likes"`
	Dislikes *int `json:"dislikes"`
}

type wirePost struct {
	ID        *int64         `json:"id"`
	Title     *string        `json:"title"`
	Body      *string        `json:"body"`
	Tags      []string       `json:"tags"`
	Reactions *wireReactions `json:"reactions"`
	Views     *int           `json:"views"`
	UserID    *int64         `json:"userId"`
}

type wirePostList struct {
	Posts []wirePost `json:"posts"`
	Total *int       `json:"total"`
	Skip  *int       `json:"skip"`
	Limit *int       `json:"limit"`
}

type wireCommentUser struct {
	ID       *int64  `json:"id"`
	Username *string `json:"username"`
	FullName *string `json:"fullName"`
}

type wireComment struct {
	ID     *int64           `json:"id"`
	Body   *string          `json:"body"`
	PostID *int64           `json:"postId"`
	Likes  *int             `json:"likes"`
	User   *wireCommentUser `json:"user"`
}

type wireCommentList struct {
	Comments []wireComment `json:"comments"`
	Total    *int          `json:"total"`
	Skip     *int          `json:"skip"`
	Limit    *int          `json:"limit"`
}

func (l wirePostList) toDomain() ([]domain.Post, error) {
	if l.Posts == nil {
		return nil, fmt.Errorf("%w: missing field posts", ErrInvalidPayload)
	}
	out := make([]domain.Post, 0, len(l.Posts))
	seen := make(map[int64]struct{}, len(l.Posts))
	for i, w := range l.Posts {
		p, err := w.toDomain()
		if err != nil {
			return nil, fmt.Errorf("posts[%d]: %w", i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("posts[%d]: %w: duplicate id %d", i, ErrInvalidPayload, p.ID)
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func (w wirePost) toDomain() (domain.Post, error) {
	switch {
	case w.ID == nil:
		return domain.Post{}, missing("id")
	case w.Title == nil:
		return domain.Post{}, missing("title")
	case w.Body == nil:
		return domain.Post{}, missing("body")
	case w.Tags == nil:
		return domain.Post{}, missing("tags")
	case w.Reactions == nil || w.Reactions.Likes == nil:
		return domain.Post{}, missing("reactions.likes")
	case w.UserID == nil:
		return domain.Post{}, missing("userId")
	}
	if *w.Reactions.Likes < 0 {
		return domain.Post{}, fmt.Errorf("%w: reactions.likes is negative", ErrInvalidPayload)
	}

	p := domain.Post{
		ID:     *w.ID,
		Title:  *w.Title,
		Body:   *w.Body,
		Tags:   append([]string{}, w.Tags...),
		UserID: *w.UserID,
		Reactions: domain.Reactions{
			Likes: *w.Reactions.Likes,
		},
	}
	if d := w.Reactions.Dislikes; d != nil {
		if *d < 0 {
			return domain.Post{}, fmt.Errorf("%w: reactions.dislikes is negative", ErrInvalidPayload)
		}
		p.Reactions.Dislikes = *d
	}
	if w.Views != nil {
		p.Views = *w.Views
	}
	return p, nil
}

// toDomain converts the comments of postID. Every comment must belong to
// postID and ids must be unique within the list.
func (l wireCommentList) toDomain(postID int64) ([]domain.Comment, error) {
	if l.Comments == nil {
		return nil, fmt.Errorf("%w: missing field comments", ErrInvalidPayload)
	}
	out := make([]domain.Comment, 0, len(l.Comments))
	seen := make(map[int64]struct{}, len(l.Comments))
	for i, w := range l.Comments {
		c, err := w.toDomain()
		if err != nil {
			return nil, fmt.Errorf("comments[%d]: %w", i, err)
		}
		if c.PostID != postID {
			return nil, fmt.Errorf("comments[%d]: %w: postId %d, requested %d", i, ErrInvalidPayload, c.PostID, postID)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("comments[%d]: %w: duplicate id %d", i, ErrInvalidPayload, c.ID)
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func (w wireComment) toDomain() (domain.Comment, error) {
	switch {
	case w.ID == nil:
		return domain.Comment{}, missing("id")
	case w.Body == nil:
		return domain.Comment{}, missing("body")
	case w.PostID == nil:
		return domain.Comment{}, missing("postId")
	case w.User == nil || w.User.Username == nil:
		return domain.Comment{}, missing("user.username")
	}

	c := domain.Comment{
		ID:     *w.ID,
		Body:   *w.Body,
		PostID: *w.PostID,
		User:   domain.CommentUser{Username: *w.User.Username},
	}
	if w.Likes != nil {
		c.Likes = *w.Likes
	}
	if w.User.ID != nil {
		c.User.ID = *w.User.ID
	}
	if w.User.FullName != nil {
		c.User.FullName = *w.User.FullName
	}
	return c, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing field %s", ErrInvalidPayload, field)
}
