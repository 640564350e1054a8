// Package cache holds the authoritative in-memory state of the feed: posts,
// per-post comments, the favourites set and the currently selected post.
//
// The cache is a pure data container. It never talks to the durable store or
// the remote catalog, and it does not validate its inputs. Every write is
// serialized by a single lock, so two writers can never interleave, and every
// write notifies subscribers.
//
// Hydration loaders (LoadFavourites, LoadComments) are total replaces. If one
// lands after a user mutation it silently erases that mutation; callers that
// care must hydrate before accepting mutations.
package cache

import (
	"sync"
	"time"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// FeedStatus describes the outcome of the latest catalog refresh so views
// can render a loading indicator or a retry affordance.
type FeedStatus struct {
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	RefreshedAt time.Time `json:"refreshedAt,omitempty"`
}

// Snapshot is a consistent, deep-copied view of the whole cache.
type Snapshot struct {
	Version      uint64                `json:"version"`
	Posts        []domain.Post         `json:"posts"`
	Comments     domain.CommentsByPost `json:"comments"`
	Favourites   []int64               `json:"favourites"`
	SelectedPost *domain.Post          `json:"selectedPost"`
	Feed         FeedStatus            `json:"feed"`
}

// Cache is the process-wide entity cache. Construct it with New and inject it
// into every component that needs it. The zero value is not usable.
type Cache struct {
	mu sync.RWMutex

	posts      []domain.Post
	comments   domain.CommentsByPost
	favourites []int64
	selected   *domain.Post
	feed       FeedStatus

	version uint64

	subMu  sync.Mutex
	subs   map[uint64]chan uint64
	nextID uint64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		posts:      []domain.Post{},
		comments:   domain.CommentsByPost{},
		favourites: []int64{},
		subs:       make(map[uint64]chan uint64),
	}
}

// ---- writers ----

// ReplacePosts replaces the whole posts sequence. Posts absent from the new
// slice disappear, even if they were present before.
func (c *Cache) ReplacePosts(posts []domain.Post) {
	next := make([]domain.Post, len(posts))
	for i, p := range posts {
		next[i] = p.Clone()
	}
	c.write(func() { c.posts = next })
}

// SetComments replaces the comments of one post; other posts are untouched.
func (c *Cache) SetComments(postID int64, comments []domain.Comment) {
	next := append([]domain.Comment{}, comments...)
	c.write(func() { c.comments[postID] = next })
}

// PrependComment inserts comment at the front of the post's sequence,
// creating the sequence when absent.
func (c *Cache) PrependComment(postID int64, comment domain.Comment) {
	c.write(func() {
		cur := c.comments[postID]
		next := make([]domain.Comment, 0, len(cur)+1)
		next = append(next, comment)
		next = append(next, cur...)
		c.comments[postID] = next
	})
}

// ToggleFavourite adds postID when absent and removes it when present. It
// reports whether postID is a favourite after the call.
func (c *Cache) ToggleFavourite(postID int64) (favourite bool) {
	c.write(func() {
		for i, id := range c.favourites {
			if id == postID {
				next := make([]int64, 0, len(c.favourites)-1)
				next = append(next, c.favourites[:i]...)
				next = append(next, c.favourites[i+1:]...)
				c.favourites = next
				favourite = false
				return
			}
		}
		c.favourites = append(append([]int64{}, c.favourites...), postID)
		favourite = true
	})
	return favourite
}

// LoadFavourites replaces the favourites set. Input is taken verbatim.
func (c *Cache) LoadFavourites(ids []int64) {
	next := append([]int64{}, ids...)
	c.write(func() { c.favourites = next })
}

// LoadComments replaces the whole comments mapping.
func (c *Cache) LoadComments(m domain.CommentsByPost) {
	next := m.Clone()
	c.write(func() { c.comments = next })
}

// SelectPost stores post as the currently viewed post.
func (c *Cache) SelectPost(post domain.Post) {
	p := post.Clone()
	c.write(func() { c.selected = &p })
}

// ClearSelection empties the selection slot.
func (c *Cache) ClearSelection() {
	c.write(func() { c.selected = nil })
}

// SetFeedLoading marks a catalog refresh as in flight. The previous error is
// kept until the refresh completes.
func (c *Cache) SetFeedLoading() {
	c.write(func() { c.feed.Loading = true })
}

// SetFeedError records a failed refresh; posts are left as they were.
func (c *Cache) SetFeedError(msg string) {
	c.write(func() {
		c.feed.Loading = false
		c.feed.Error = msg
	})
}

// SetFeedRefreshed records a successful refresh at t.
func (c *Cache) SetFeedRefreshed(t time.Time) {
	c.write(func() {
		c.feed = FeedStatus{RefreshedAt: t.UTC()}
	})
}

// ---- readers ----

// Posts returns a copy of the posts sequence.
func (c *Cache) Posts() []domain.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clonePosts(c.posts)
}

// Post returns the cached post with id.
func (c *Cache) Post(id int64) (domain.Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.posts {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return domain.Post{}, false
}

// Comments returns a copy of one post's comments (nil when none).
func (c *Cache) Comments(postID int64) []domain.Comment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list, ok := c.comments[postID]
	if !ok {
		return nil
	}
	return append([]domain.Comment{}, list...)
}

// AllComments returns a copy of the whole comments mapping.
func (c *Cache) AllComments() domain.CommentsByPost {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.comments.Clone()
}

// Favourites returns the favourite ids in insertion order.
func (c *Cache) Favourites() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]int64{}, c.favourites...)
}

// IsFavourite reports whether postID is in the favourites set.
func (c *Cache) IsFavourite(postID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.favourites {
		if id == postID {
			return true
		}
	}
	return false
}

// FavouritePosts resolves favourites against the cached posts, in post order.
// Stale ids that refer to posts no longer cached are skipped.
func (c *Cache) FavouritePosts() []domain.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fav := make(map[int64]struct{}, len(c.favourites))
	for _, id := range c.favourites {
		fav[id] = struct{}{}
	}
	out := []domain.Post{}
	for _, p := range c.posts {
		if _, ok := fav[p.ID]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

// SelectedPost returns the selected post, if any.
func (c *Cache) SelectedPost() (domain.Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return domain.Post{}, false
	}
	return c.selected.Clone(), true
}

// Feed returns the current feed status.
func (c *Cache) Feed() FeedStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feed
}

// Version returns the number of writes applied so far.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Snapshot returns a consistent deep copy of the whole cache.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot{
		Version:    c.version,
		Posts:      clonePosts(c.posts),
		Comments:   c.comments.Clone(),
		Favourites: append([]int64{}, c.favourites...),
		Feed:       c.feed,
	}
	if c.selected != nil {
		p := c.selected.Clone()
		s.SelectedPost = &p
	}
	return s
}

// write applies fn under the write lock, bumps the version and notifies
// subscribers. Notification happens under the lock so listeners observe
// versions in order; sends never block.
func (c *Cache) write(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	c.version++
	c.notify(c.version)
}

func clonePosts(in []domain.Post) []domain.Post {
	out := make([]domain.Post, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
