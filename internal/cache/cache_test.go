package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

func post(id int64) domain.Post {
	return domain.Post{ID: id, Title: "t", Body: "b", Tags: []string{"x"}, Reactions: domain.Reactions{Likes: 1}}
}

func comment(id, postID int64, body string) domain.Comment {
	return domain.Comment{ID: id, PostID: postID, Body: body, User: domain.CommentUser{Username: "u"}}
}

func TestNew_EmptyDefaults(t *testing.T) {
	c := New()
	s := c.Snapshot()

	assert.Empty(t, s.Posts)
	assert.Empty(t, s.Comments)
	assert.Empty(t, s.Favourites)
	assert.Nil(t, s.SelectedPost)
	assert.Equal(t, uint64(0), s.Version)
}

func TestReplacePosts_ReplacesNotMerges(t *testing.T) {
	c := New()
	c.ReplacePosts([]domain.Post{post(1)})
	c.ReplacePosts([]domain.Post{post(2)})

	posts := c.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, int64(2), posts[0].ID)

	_, ok := c.Post(1)
	assert.False(t, ok, "post 1 must be gone after replace")
}

func TestReplacePosts_CopiesInput(t *testing.T) {
	c := New()
	in := []domain.Post{post(1)}
	c.ReplacePosts(in)
	in[0].Title = "mutated"
	in[0].Tags[0] = "mutated"

	p, ok := c.Post(1)
	require.True(t, ok)
	assert.Equal(t, "t", p.Title)
	assert.Equal(t, "x", p.Tags[0])
}

func TestSetComments_OnlyAffectsOnePost(t *testing.T) {
	c := New()
	c.SetComments(1, []domain.Comment{comment(1, 1, "a")})
	c.SetComments(2, []domain.Comment{comment(2, 2, "b")})
	c.SetComments(1, []domain.Comment{comment(3, 1, "c")})

	assert.Equal(t, []domain.Comment{comment(3, 1, "c")}, c.Comments(1))
	assert.Equal(t, []domain.Comment{comment(2, 2, "b")}, c.Comments(2))
}

func TestPrependComment_MostRecentFirst(t *testing.T) {
	c := New()
	c.PrependComment(5, comment(1, 5, "a"))
	c.PrependComment(5, comment(2, 5, "b"))

	got := c.Comments(5)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Body)
	assert.Equal(t, "a", got[1].Body)
}

func TestPrependComment_UnknownPostAccepted(t *testing.T) {
	c := New()
	c.PrependComment(404, comment(1, 404, "offline"))
	assert.Len(t, c.Comments(404), 1)
}

func TestToggleFavourite_Uniqueness(t *testing.T) {
	c := New()
	for i := 0; i < 25; i++ {
		c.ToggleFavourite(9)
		c.ToggleFavourite(3)

		seen := map[int64]int{}
		for _, id := range c.Favourites() {
			seen[id]++
		}
		for id, n := range seen {
			require.Equalf(t, 1, n, "duplicate favourite %d after %d rounds", id, i)
		}
	}
}

func TestToggleFavourite_Involution(t *testing.T) {
	c := New()
	c.LoadFavourites([]int64{3, 7, 12})
	before := c.Favourites()

	assert.True(t, c.ToggleFavourite(9))
	assert.False(t, c.ToggleFavourite(9))
	assert.ElementsMatch(t, before, c.Favourites())

	assert.False(t, c.ToggleFavourite(7))
	assert.True(t, c.ToggleFavourite(7))
	assert.ElementsMatch(t, before, c.Favourites())
}

func TestToggleFavourite_DoesNotTouchPostsOrComments(t *testing.T) {
	c := New()
	c.ReplacePosts([]domain.Post{post(1)})
	c.SetComments(1, []domain.Comment{comment(1, 1, "a")})

	c.ToggleFavourite(1)

	assert.Len(t, c.Posts(), 1)
	assert.Len(t, c.Comments(1), 1)
	assert.True(t, c.IsFavourite(1))
}

func TestLoadFavourites_AfterToggle_ErasesToggle(t *testing.T) {
	// A late, empty hydration overwrites a mutation that landed first.
	c := New()
	c.ToggleFavourite(9)
	c.LoadFavourites([]int64{})

	assert.Empty(t, c.Favourites())
}

func TestLoadComments_TotalReplace(t *testing.T) {
	c := New()
	c.PrependComment(1, comment(1, 1, "local"))
	c.LoadComments(domain.CommentsByPost{2: {comment(2, 2, "restored")}})

	assert.Nil(t, c.Comments(1))
	assert.Len(t, c.Comments(2), 1)
}

func TestLoad_AcceptsMalformedInputVerbatim(t *testing.T) {
	c := New()
	c.LoadFavourites([]int64{-1, 0})
	assert.Equal(t, []int64{-1, 0}, c.Favourites())
}

func TestFavouritePosts_SkipsStaleIDs(t *testing.T) {
	c := New()
	c.ReplacePosts([]domain.Post{post(1), post(2), post(3)})
	c.LoadFavourites([]int64{3, 99, 1})

	got := c.FavouritePosts()
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestSelection(t *testing.T) {
	c := New()
	_, ok := c.SelectedPost()
	assert.False(t, ok)

	c.SelectPost(post(4))
	p, ok := c.SelectedPost()
	require.True(t, ok)
	assert.Equal(t, int64(4), p.ID)
	assert.Equal(t, int64(4), c.Snapshot().SelectedPost.ID)

	c.ClearSelection()
	_, ok = c.SelectedPost()
	assert.False(t, ok)
}

func TestFeedStatus_Lifecycle(t *testing.T) {
	c := New()
	c.SetFeedLoading()
	assert.True(t, c.Feed().Loading)

	c.SetFeedError("catalog unavailable")
	f := c.Feed()
	assert.False(t, f.Loading)
	assert.Equal(t, "catalog unavailable", f.Error)

	now := time.Now()
	c.SetFeedRefreshed(now)
	f = c.Feed()
	assert.Empty(t, f.Error)
	assert.True(t, f.RefreshedAt.Equal(now))
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	c := New()
	c.ReplacePosts([]domain.Post{post(1)})
	c.SetComments(1, []domain.Comment{comment(1, 1, "a")})
	c.LoadFavourites([]int64{1})

	s := c.Snapshot()
	s.Posts[0].Tags[0] = "z"
	s.Comments[1][0].Body = "z"
	s.Favourites[0] = 42

	assert.Equal(t, "x", c.Posts()[0].Tags[0])
	assert.Equal(t, "a", c.Comments(1)[0].Body)
	assert.Equal(t, []int64{1}, c.Favourites())
}

func TestVersion_IncrementsOnEveryWrite(t *testing.T) {
	c := New()
	c.ReplacePosts(nil)
	c.ToggleFavourite(1)
	c.PrependComment(1, comment(1, 1, "a"))
	assert.Equal(t, uint64(3), c.Version())
}

func TestConcurrentToggles_StayUnique(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c.ToggleFavourite(id % 5)
		}(int64(i))
	}
	wg.Wait()

	// Each id 0..4 was toggled 20 times: even count, so all are absent.
	assert.Empty(t, c.Favourites())
	assert.Equal(t, uint64(100), c.Version())
}
