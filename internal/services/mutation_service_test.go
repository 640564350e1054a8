package services

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/tbourn/go-feed-sync/internal/domain"
	"github.com/tbourn/go-feed-sync/internal/repo"
)

func newMutations(t *testing.T) (*MutationService, *repo.MemoryStore) {
	t.Helper()
	store := repo.NewMemoryStore()
	return NewMutationService(newSync(t, store, nil)), store
}

func TestToggleFavourite_NeverDuplicates(t *testing.T) {
	m, _ := newMutations(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		id := int64(rng.Intn(5))
		if _, err := m.ToggleFavourite(ctx, id); err != nil {
			t.Fatalf("toggle: %v", err)
		}
		seen := map[int64]bool{}
		for _, f := range m.Cache.Favourites() {
			if seen[f] {
				t.Fatalf("duplicate %d after %d toggles: %v", f, i+1, m.Cache.Favourites())
			}
			seen[f] = true
		}
	}
}

func TestToggleFavourite_TwiceRestoresSet(t *testing.T) {
	m, _ := newMutations(t)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		if _, err := m.ToggleFavourite(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	before := m.Cache.Favourites()

	for _, id := range []int64{2, 42} {
		on, err := m.ToggleFavourite(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		off, err := m.ToggleFavourite(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if on == off {
			t.Fatalf("two toggles of %d reported the same state %v", id, on)
		}
		if got := m.Cache.Favourites(); !equalIDs(got, before) {
			t.Fatalf("after double toggle of %d: %v, want %v", id, got, before)
		}
	}
}

func TestToggleFavourite_AlwaysPersists(t *testing.T) {
	m, store := newMutations(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		if _, err := m.ToggleFavourite(ctx, 9); err != nil {
			t.Fatal(err)
		}
		if store.Writes() != i {
			t.Fatalf("writes = %d after %d toggles", store.Writes(), i)
		}
	}
	if got := storedFavourites(t, store); len(got) != 0 {
		t.Fatalf("stored = %v, want []", got)
	}
}

func TestAddComment_MostRecentFirst(t *testing.T) {
	m, _ := newMutations(t)
	ctx := context.Background()

	a, err := m.AddComment(ctx, 5, "a", "alice")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.AddComment(ctx, 5, "b", "bob")
	if err != nil {
		t.Fatal(err)
	}

	got := m.Cache.Comments(5)
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Fatalf("comments = %+v, want [b, a]", got)
	}
	if got[0].User.Username != "bob" || got[1].User.Username != "alice" {
		t.Fatalf("authors = %q, %q", got[0].User.Username, got[1].User.Username)
	}
	if a.ID == b.ID {
		t.Fatal("ids must be unique")
	}
}

func TestAddComment_TrimsBodyAndAuthor(t *testing.T) {
	m, _ := newMutations(t)
	c, err := m.AddComment(context.Background(), 5, "  hello \n", " alice ")
	if err != nil {
		t.Fatal(err)
	}
	if c.Body != "hello" || c.User.Username != "alice" || c.PostID != 5 {
		t.Fatalf("comment = %+v", c)
	}
}

func TestAddComment_RejectsBlankBody(t *testing.T) {
	m, store := newMutations(t)
	ctx := context.Background()
	if _, err := m.AddComment(ctx, 5, "first", "alice"); err != nil {
		t.Fatal(err)
	}
	before := m.Cache.Comments(5)
	writes := store.Writes()
	version := m.Cache.Version()

	_, err := m.AddComment(ctx, 5, "   ", "alice")
	if !errors.Is(err, ErrEmptyComment) {
		t.Fatalf("err = %v, want ErrEmptyComment", err)
	}
	if got := m.Cache.Comments(5); len(got) != len(before) || got[0] != before[0] {
		t.Fatalf("comments changed: %+v", got)
	}
	if store.Writes() != writes {
		t.Fatal("rejected comment must not write to the store")
	}
	if m.Cache.Version() != version {
		t.Fatal("rejected comment must not touch the cache")
	}
}

func TestAddComment_RejectsMissingIdentity(t *testing.T) {
	m, store := newMutations(t)

	_, err := m.AddComment(context.Background(), 5, "hello", "  ")
	if !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("err = %v, want ErrNoIdentity", err)
	}
	if m.Cache.Comments(5) != nil || store.Writes() != 0 {
		t.Fatal("rejected comment must change nothing")
	}
}

func TestStoreFailure_KeepsInMemoryChange(t *testing.T) {
	m, store := newMutations(t)
	store.SetFailures(false, true)
	ctx := context.Background()

	fav, err := m.ToggleFavourite(ctx, 3)
	if !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("err = %v, want ErrNotPersisted", err)
	}
	if !fav || !m.Cache.IsFavourite(3) {
		t.Fatal("favourite must stay applied in memory")
	}

	c, err := m.AddComment(ctx, 5, "hi", "alice")
	if !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("err = %v, want ErrNotPersisted", err)
	}
	if got := m.Cache.Comments(5); len(got) != 1 || got[0].ID != c.ID {
		t.Fatalf("comment must stay applied in memory: %+v", got)
	}

	// the next successful commit writes the full state, including the
	// change that failed to persist earlier
	store.SetFailures(false, false)
	if _, err := m.ToggleFavourite(ctx, 4); err != nil {
		t.Fatal(err)
	}
	if got := storedFavourites(t, store); !equalIDs(got, []int64{3, 4}) {
		t.Fatalf("stored = %v, want {3,4}", got)
	}
}

// A hydration load that lands after a mutation erases it. This pins the
// current behaviour of an ungated MutationService.
func TestHydrationRace_LateLoadErasesToggle(t *testing.T) {
	mem := repo.NewMemoryStore()
	_ = mem.Set(context.Background(), domain.KeyFavourites, "[]")
	store := &gatedStore{
		MemoryStore: mem,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}

	m := NewMutationService(newSync(t, store, nil))
	ctx := context.Background()

	go m.Sync.Hydrate(ctx)
	<-store.entered

	if _, err := m.ToggleFavourite(ctx, 9); err != nil {
		t.Fatal(err)
	}
	if !m.Cache.IsFavourite(9) {
		t.Fatal("toggle should apply before hydration lands")
	}

	close(store.release)
	select {
	case <-m.Sync.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("hydration did not finish")
	}

	if got := m.Cache.Favourites(); len(got) != 0 {
		t.Fatalf("favourites = %v, want {} (late hydration wins)", got)
	}
}

func TestHydrationGate_RejectsEarlyMutations(t *testing.T) {
	m, store := newMutations(t)
	m.RequireHydration = true
	ctx := context.Background()

	if _, err := m.ToggleFavourite(ctx, 9); !errors.Is(err, ErrNotHydrated) {
		t.Fatalf("toggle err = %v, want ErrNotHydrated", err)
	}
	if _, err := m.AddComment(ctx, 5, "hi", "alice"); !errors.Is(err, ErrNotHydrated) {
		t.Fatalf("comment err = %v, want ErrNotHydrated", err)
	}
	if len(m.Cache.Favourites()) != 0 || store.Writes() != 0 {
		t.Fatal("gated mutations must change nothing")
	}

	m.Sync.Hydrate(ctx)

	if _, err := m.ToggleFavourite(ctx, 9); err != nil {
		t.Fatalf("after hydration: %v", err)
	}
	if !m.Cache.IsFavourite(9) {
		t.Fatal("toggle after hydration must apply")
	}
}

func TestHydrationGate_RejectsEarlyCommentRefresh(t *testing.T) {
	store := repo.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, domain.KeyComments, `{"1":[{"id":11,"body":"mine","postId":1,"user":{"username":"alice"}}]}`); err != nil {
		t.Fatal(err)
	}
	cat := &fakeCatalog{comments: map[int64][]domain.Comment{
		3: {{ID: 31, Body: "remote", PostID: 3, User: domain.CommentUser{Username: "bob"}}},
	}}
	s := newSync(t, store, cat)
	s.RequireHydration = true
	m := NewMutationService(s)
	writes := store.Writes()

	if err := s.RefreshComments(ctx, 3); !errors.Is(err, ErrNotHydrated) {
		t.Fatalf("refresh err = %v, want ErrNotHydrated", err)
	}
	if _, err := m.ToggleFavourite(ctx, 9); !errors.Is(err, ErrNotHydrated) {
		t.Fatalf("toggle err = %v, want ErrNotHydrated", err)
	}
	if cat.calls != 0 || store.Writes() != writes {
		t.Fatalf("gated refresh touched catalog (%d calls) or store", cat.calls)
	}

	s.Hydrate(ctx)
	if got := s.Cache.Comments(1); len(got) != 1 || got[0].ID != 11 {
		t.Fatalf("post 1 comments after hydrate = %+v", got)
	}

	if err := s.RefreshComments(ctx, 3); err != nil {
		t.Fatalf("refresh after hydrate: %v", err)
	}
	raw, _, _ := store.Get(ctx, domain.KeyComments)
	var stored domain.CommentsByPost
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored[1]) != 1 || len(stored[3]) != 1 {
		t.Fatalf("stored comments = %+v, want posts 1 and 3", stored)
	}
}

func TestHydrate_SeedsCommentIDs(t *testing.T) {
	store := repo.NewMemoryStore()
	ctx := context.Background()
	// a stored id well ahead of the (frozen) local clock
	if err := store.Set(ctx, domain.KeyComments, `{"5":[{"id":1800000000000,"body":"later","postId":5,"user":{"username":"alice"}}]}`); err != nil {
		t.Fatal(err)
	}
	m := NewMutationService(newSync(t, store, nil))
	frozen := time.UnixMilli(1_700_000_000_000)
	m.IDs.now = func() time.Time { return frozen }

	m.Sync.Hydrate(ctx)
	c, err := m.AddComment(ctx, 5, "new", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID <= 1_800_000_000_000 {
		t.Fatalf("new id %d not above stored id", c.ID)
	}
	if got := m.Cache.Comments(5); len(got) != 2 || got[0].ID != c.ID {
		t.Fatalf("comments = %+v", got)
	}
}

func TestIDGenerator_StrictlyIncreasing(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	g := &IDGenerator{now: func() time.Time { return frozen }}

	prev := g.Next()
	if prev != frozen.UnixMilli() {
		t.Fatalf("first id = %d", prev)
	}
	for i := 0; i < 100; i++ {
		id := g.Next()
		if id <= prev {
			t.Fatalf("id %d not greater than %d", id, prev)
		}
		prev = id
	}

	// clock going backwards still yields larger ids
	frozen = frozen.Add(-time.Hour)
	if id := g.Next(); id <= prev {
		t.Fatalf("id %d not greater than %d after clock skew", id, prev)
	}
}
