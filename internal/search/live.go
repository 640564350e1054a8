package search

import (
	"sync"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// PostSource is the read side of the entity cache used by Live.
type PostSource interface {
	Posts() []domain.Post
	Version() uint64
}

// Live keeps an Index in step with a PostSource, rebuilding it only when the
// source version has moved since the last query.
type Live struct {
	src  PostSource
	opts []Option

	mu      sync.Mutex
	built   bool
	version uint64
	idx     Index
	posts   map[int64]domain.Post
}

// NewLive returns a Live index over src.
func NewLive(src PostSource, opts ...Option) *Live {
	return &Live{src: src, opts: opts}
}

// Search returns the posts matching q, best first.
func (l *Live) Search(q string) []domain.Post {
	idx, posts := l.current()
	res := idx.TopK(q, 0)
	out := make([]domain.Post, 0, len(res))
	for _, r := range res {
		if p, ok := posts[r.PostID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (l *Live) current() (Index, map[int64]domain.Post) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Version is read before Posts: a write in between only makes the next
	// query rebuild again.
	v := l.src.Version()
	if l.built && v == l.version {
		return l.idx, l.posts
	}
	posts := l.src.Posts()
	byID := make(map[int64]domain.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	l.idx, l.posts, l.version, l.built = NewPostIndex(posts, l.opts...), byID, v, true
	return l.idx, l.posts
}
