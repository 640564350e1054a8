// Package domain defines the feed entities shared by the cache, the
// synchronization services, the catalog client and the HTTP surface.
//
// Posts and remote comments are owned by the remote catalog and are replaced
// wholesale on refresh. Favourites and locally authored comments are owned by
// the mutation API and survive restarts through the durable store.
package domain

import "strings"

// Storage keys used in the durable store. Keys are partitioned by purpose so
// writes to different keys never conflict.
const (
	KeyFavourites = "favourites"
	KeyComments   = "comments"
	KeyAuth       = "auth"
)

// Reactions holds the engagement counters of a post.
type Reactions struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// Post is a remote-owned catalog entry. It is immutable once fetched: a
// refresh replaces the whole value, fields are never patched in place.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Reactions Reactions `json:"reactions"`
	Views     int       `json:"views"`
	UserID    int64     `json:"userId"`
}

// Clone returns a deep copy of p (tags included).
func (p Post) Clone() Post {
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	return p
}

// CommentUser identifies the author of a comment.
type CommentUser struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

// Comment is attached to a post by PostID. Remote comments arrive verbatim
// from the catalog; local ones are created by the mutation API.
//
// PostID is a soft reference: a comment may target a post that is not in the
// current post cache.
type Comment struct {
	ID     int64       `json:"id"`
	Body   string      `json:"body"`
	PostID int64       `json:"postId"`
	Likes  int         `json:"likes,omitempty"`
	User   CommentUser `json:"user"`
}

// CommentsByPost maps a post id to its ordered comments. Serialized as a JSON
// object keyed by the decimal post id.
type CommentsByPost map[int64][]Comment

// Clone returns a deep copy of m. A nil map clones to an empty one.
func (m CommentsByPost) Clone() CommentsByPost {
	out := make(CommentsByPost, len(m))
	for id, list := range m {
		out[id] = append([]Comment(nil), list...)
	}
	return out
}

// SessionUser is the identity stored by the login flow.
type SessionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is the value of the "auth" key.
type Session struct {
	User  SessionUser `json:"user"`
	Token string      `json:"token"`
}

// Username returns the trimmed username, or "" for a nil session.
func (s *Session) Username() string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.User.Username)
}
