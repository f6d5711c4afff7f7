package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/apperr"
	"github.com/m3rciful/shopbot/internal/catalog"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products []catalog.NewProduct
	err      error
}

func (f *fakeCatalog) InsertProduct(_ context.Context, p catalog.NewProduct) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.products = append(f.products, p)
	return int64(len(f.products)), nil
}

type fakeResolver struct {
	err error
	ref string
}

func (f fakeResolver) ResolveAttachment(_ context.Context, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.ref != "" {
		return f.ref, nil
	}
	return "ref-" + token, nil
}

type harness struct {
	engine   *Engine
	catalog  *fakeCatalog
	sessions *state.MemoryStore[Draft]
}

func newHarness(t *testing.T, allowEmpty bool, resolver Resolver) harness {
	t.Helper()
	if resolver == nil {
		resolver = fakeResolver{}
	}
	h := harness{catalog: &fakeCatalog{}, sessions: state.NewMemoryStore[Draft](0)}
	e, err := New(Options{
		Sessions:         h.sessions,
		Catalog:          h.catalog,
		Resolver:         resolver,
		AllowEmptyPhotos: allowEmpty,
	})
	require.NoError(t, err)
	h.engine = e
	return h
}

func (h harness) text(t *testing.T, userID int64, text string) (Reply, error) {
	t.Helper()
	return h.engine.Handle(context.Background(), userID, Input{Text: text})
}

func (h harness) mustText(t *testing.T, userID int64, text string) Reply {
	t.Helper()
	r, err := h.text(t, userID, text)
	require.NoError(t, err)
	return r
}

func (h harness) photo(t *testing.T, userID int64, token string) (Reply, error) {
	t.Helper()
	return h.engine.Handle(context.Background(), userID, Input{Attachment: token})
}

func (h harness) draft(t *testing.T, userID int64) state.Session[Draft] {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return s
}

func (h harness) fillToPhotos(t *testing.T, userID int64, name string) {
	t.Helper()
	_, err := h.engine.Start(context.Background(), userID)
	require.NoError(t, err)
	h.mustText(t, userID, name)
	h.mustText(t, userID, name+" description")
	h.mustText(t, userID, name+" category")
	r := h.mustText(t, userID, "1500")
	require.Equal(t, StatePhotos, r.Stage)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestFullDialogueCommitsExactlyOneProduct(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()

	r, err := h.engine.Start(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, PromptName, r.Text)
	require.True(t, h.engine.Active(ctx, 1))

	steps := []struct {
		in   string
		next state.State
	}{
		{"Lamp", StateDescription},
		{"Warm light", StateCategory},
		{"Home", StatePrice},
		{" 1500 ", StatePhotos},
	}
	for _, s := range steps {
		r := h.mustText(t, 1, s.in)
		require.Equal(t, s.next, r.Stage)
		stage, err := h.engine.Stage(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, s.next, stage)
	}

	r, err = h.photo(t, 1, "a")
	require.NoError(t, err)
	require.Equal(t, PromptMorePhotos, r.Text)
	_, err = h.photo(t, 1, "b")
	require.NoError(t, err)

	r = h.mustText(t, 1, "DONE")
	require.True(t, r.Committed)
	require.Equal(t, int64(1), r.ProductID)
	require.Equal(t, state.StateIdle, r.Stage)

	require.Equal(t, []catalog.NewProduct{{
		Name:        "Lamp",
		Description: "Warm light",
		Category:    "Home",
		Price:       1500,
		Photos:      []string{"ref-a", "ref-b"},
	}}, h.catalog.products)
	require.False(t, h.engine.Active(ctx, 1))
	stage, err := h.engine.Stage(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, state.StateIdle, stage)
}

func TestDoneWordIsCaseInsensitiveRussian(t *testing.T) {
	h := newHarness(t, true, nil)
	h.fillToPhotos(t, 1, "Mug")
	_, err := h.photo(t, 1, "x")
	require.NoError(t, err)
	r := h.mustText(t, 1, "  Готово ")
	require.True(t, r.Committed)
}

func TestNonNumericPriceKeepsStageAndFields(t *testing.T) {
	h := newHarness(t, true, nil)
	_, err := h.engine.Start(context.Background(), 1)
	require.NoError(t, err)
	h.mustText(t, 1, "Lamp")
	h.mustText(t, 1, "Warm")
	h.mustText(t, 1, "Home")

	for _, bad := range []string{"abc", "12.5", "-3", "", "1 500", "99999999999999999999"} {
		r, err := h.text(t, 1, bad)
		require.True(t, apperr.Is(err, apperr.KindValidation), bad)
		require.Equal(t, RepromptPrice, r.Text)
		require.Equal(t, StatePrice, r.Stage)

		s := h.draft(t, 1)
		require.Equal(t, StatePrice, s.State)
		require.Equal(t, Draft{Name: "Lamp", Description: "Warm", Category: "Home"}, s.Data)
	}

	r := h.mustText(t, 1, "0")
	require.Equal(t, StatePhotos, r.Stage)
}

func TestEmptyPhotosAllowed(t *testing.T) {
	h := newHarness(t, true, nil)
	h.fillToPhotos(t, 1, "Poster")

	r := h.mustText(t, 1, "done")
	require.True(t, r.Committed)
	require.Len(t, h.catalog.products, 1)
	require.Empty(t, h.catalog.products[0].Photos)
}

func TestEmptyPhotosRejected(t *testing.T) {
	h := newHarness(t, false, nil)
	h.fillToPhotos(t, 1, "Poster")

	r, err := h.text(t, 1, "done")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Equal(t, RepromptNoPhotos, r.Text)
	require.Equal(t, StatePhotos, h.draft(t, 1).State)
	require.Empty(t, h.catalog.products)

	_, err = h.photo(t, 1, "p")
	require.NoError(t, err)
	r = h.mustText(t, 1, "done")
	require.True(t, r.Committed)
}

func TestWrongShapeInputDoesNotAdvance(t *testing.T) {
	h := newHarness(t, true, nil)
	_, err := h.engine.Start(context.Background(), 1)
	require.NoError(t, err)

	_, err = h.photo(t, 1, "early")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	r, err := h.text(t, 1, "   ")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Equal(t, RepromptName, r.Text)
	require.Equal(t, StateName, h.draft(t, 1).State)

	h.mustText(t, 1, "Lamp")
	_, err = h.photo(t, 1, "early")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Equal(t, StateDescription, h.draft(t, 1).State)

	h.mustText(t, 1, "desc")
	h.mustText(t, 1, "cat")
	h.mustText(t, 1, "10")
	r, err = h.text(t, 1, "more later")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Equal(t, RepromptPhoto, r.Text)
	s := h.draft(t, 1)
	require.Equal(t, StatePhotos, s.State)
	require.Equal(t, Draft{Name: "Lamp", Description: "desc", Category: "cat", Price: 10}, s.Data)
}

func TestResolutionFailureKeepsDraft(t *testing.T) {
	resolver := &switchResolver{}
	h := newHarness(t, true, resolver)
	h.fillToPhotos(t, 1, "Lamp")
	_, err := h.photo(t, 1, "ok1")
	require.NoError(t, err)

	resolver.err = errors.New("getFile: timeout")
	r, err := h.photo(t, 1, "bad")
	require.True(t, apperr.Is(err, apperr.KindResolution))
	require.Equal(t, RepromptPhotoRetry, r.Text)
	require.Equal(t, []string{"ref-ok1"}, h.draft(t, 1).Data.Photos)

	resolver.err = nil
	resolver.empty = true
	_, err = h.photo(t, 1, "blank")
	require.True(t, apperr.Is(err, apperr.KindResolution))
	require.Equal(t, []string{"ref-ok1"}, h.draft(t, 1).Data.Photos)
	require.Equal(t, StatePhotos, h.draft(t, 1).State)

	resolver.empty = false
	_, err = h.photo(t, 1, "ok2")
	require.NoError(t, err)
	require.Equal(t, []string{"ref-ok1", "ref-ok2"}, h.draft(t, 1).Data.Photos)
}

type switchResolver struct {
	err   error
	empty bool
}

func (s *switchResolver) ResolveAttachment(_ context.Context, token string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.empty {
		return "", nil
	}
	return "ref-" + token, nil
}

func TestStorageFailureResetsToIdle(t *testing.T) {
	h := newHarness(t, true, nil)
	h.fillToPhotos(t, 1, "Lamp")
	h.catalog.err = errors.New("connection refused")

	r, err := h.text(t, 1, "done")
	require.True(t, apperr.Is(err, apperr.KindStorage))
	require.Equal(t, ReplySaveFailed, r.Text)
	require.False(t, h.engine.Active(context.Background(), 1))
	require.Empty(t, h.catalog.products)
}

func TestRestartDiscardsOldDraft(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()

	h.fillToPhotos(t, 1, "Old")
	_, err := h.photo(t, 1, "old-photo")
	require.NoError(t, err)

	r, err := h.engine.Start(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, StateName, r.Stage)
	require.Equal(t, Draft{}, h.draft(t, 1).Data)

	h.mustText(t, 1, "New")
	h.mustText(t, 1, "d")
	h.mustText(t, 1, "c")
	h.mustText(t, 1, "5")
	h.mustText(t, 1, "done")

	require.Len(t, h.catalog.products, 1)
	require.Equal(t, catalog.NewProduct{Name: "New", Description: "d", Category: "c", Price: 5}, h.catalog.products[0])
}

func TestConcurrentUsersDoNotShareDrafts(t *testing.T) {
	h := newHarness(t, true, nil)
	const users = 8

	var wg sync.WaitGroup
	for u := int64(1); u <= users; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			name := fmt.Sprintf("user-%d", u)
			ctx := context.Background()
			if _, err := h.engine.Start(ctx, u); err != nil {
				t.Error(err)
				return
			}
			for _, in := range []Input{
				{Text: name},
				{Text: name + "-desc"},
				{Text: name + "-cat"},
				{Text: fmt.Sprint(u * 100)},
				{Attachment: name + "-photo"},
				{Text: "done"},
			} {
				if _, err := h.engine.Handle(ctx, u, in); err != nil {
					t.Error(err)
					return
				}
			}
		}(u)
	}
	wg.Wait()

	require.Len(t, h.catalog.products, users)
	for _, p := range h.catalog.products {
		var u int64
		_, err := fmt.Sscanf(p.Name, "user-%d", &u)
		require.NoError(t, err)
		require.Equal(t, p.Name+"-desc", p.Description)
		require.Equal(t, p.Name+"-cat", p.Category)
		require.Equal(t, u*100, p.Price)
		require.Equal(t, []string{"ref-" + p.Name + "-photo"}, p.Photos)
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()

	ok, err := h.engine.Cancel(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)

	h.fillToPhotos(t, 1, "Lamp")
	ok, err = h.engine.Cancel(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, h.engine.Active(ctx, 1))
}

func TestHandleWithoutDialogue(t *testing.T) {
	h := newHarness(t, true, nil)
	_, err := h.text(t, 1, "hello")
	require.ErrorIs(t, err, ErrNotActive)
}

type brokenStore struct{ state.Store[Draft] }

func (brokenStore) Get(context.Context, int64) (state.Session[Draft], error) {
	return state.Session[Draft]{}, errors.New("redis: connection refused")
}

func TestSessionReadFailureIsStorageError(t *testing.T) {
	e, err := New(Options{Sessions: brokenStore{}, Catalog: &fakeCatalog{}, Resolver: fakeResolver{}})
	require.NoError(t, err)
	_, err = e.Handle(context.Background(), 1, Input{Text: "x"})
	require.True(t, apperr.Is(err, apperr.KindStorage))
}
