// Package conversation drives the multi-step product entry dialogue.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/apperr"
	"github.com/m3rciful/shopbot/internal/catalog"
)

// Dialogue stages, in order.
const (
	StateName        state.State = "collecting_name"
	StateDescription state.State = "collecting_description"
	StateCategory    state.State = "collecting_category"
	StatePrice       state.State = "collecting_price"
	StatePhotos      state.State = "collecting_photos"
)

// ErrNotActive is returned by Handle when the user has no dialogue in progress.
var ErrNotActive = errors.New("conversation: no dialogue in progress")

var defaultDoneWords = []string{"done", "готово"}

// Draft is the product being assembled. It lives only in the session store.
type Draft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       int64    `json:"price"`
	Photos      []string `json:"photos,omitempty"`
}

// Input is one message from the user. Attachment is the platform token of a received photo.
type Input struct {
	Text       string
	Attachment string
}

// Reply is what the handler should answer.
type Reply struct {
	Text      string
	Stage     state.State
	ProductID int64
	Committed bool
}

// Committer persists a finished draft.
type Committer interface {
	InsertProduct(ctx context.Context, p catalog.NewProduct) (int64, error)
}

// Resolver turns an attachment token into a stable photo reference.
type Resolver interface {
	ResolveAttachment(ctx context.Context, token string) (string, error)
}

// Options configures an Engine.
type Options struct {
	Sessions state.Store[Draft]
	Catalog  Committer
	Resolver Resolver
	// Locker is shared with other writers of Sessions; nil gets a private one.
	Locker           *state.Locker
	AllowEmptyPhotos bool
	DoneWords        []string
}

// Engine walks each user through name, description, category, price and photos,
// then commits the draft. One user's steps are serialized; different users never contend.
type Engine struct {
	sessions   state.Store[Draft]
	catalog    Committer
	resolver   Resolver
	locks      *state.Locker
	allowEmpty bool
	doneWords  map[string]struct{}
	now        func() time.Time
}

// New builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Sessions == nil || opts.Catalog == nil || opts.Resolver == nil {
		return nil, fmt.Errorf("conversation: sessions, catalog and resolver are required")
	}
	locks := opts.Locker
	if locks == nil {
		locks = state.NewLocker()
	}
	words := opts.DoneWords
	if len(words) == 0 {
		words = defaultDoneWords
	}
	done := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			done[w] = struct{}{}
		}
	}
	return &Engine{
		sessions:   opts.Sessions,
		catalog:    opts.Catalog,
		resolver:   opts.Resolver,
		locks:      locks,
		allowEmpty: opts.AllowEmptyPhotos,
		doneWords:  done,
		now:        time.Now,
	}, nil
}

// Start begins a new dialogue. Any unfinished draft of the same user is discarded.
func (e *Engine) Start(ctx context.Context, userID int64) (Reply, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	prev, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return Reply{Text: ReplySaveFailed}, apperr.Storage("session_read", err)
	}
	if err := e.put(ctx, userID, StateName, Draft{}); err != nil {
		return Reply{Text: ReplySaveFailed}, err
	}
	logger.Info(ctx, logger.CompConversation, "dialogue.start",
		slog.Int64("user_id", userID),
		slog.String("stage", string(prev.State)),
		slog.String("next_stage", string(StateName)),
	)
	return Reply{Text: PromptName, Stage: StateName}, nil
}

// Handle feeds one message into the user's dialogue.
// Malformed input yields a re-prompt and a Validation error with stage and draft unchanged.
func (e *Engine) Handle(ctx context.Context, userID int64, in Input) (Reply, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return Reply{Text: ReplySaveFailed}, apperr.Storage("session_read", err)
	}
	draft := sess.Data
	text := strings.TrimSpace(in.Text)

	switch sess.State {
	case StateName:
		if in.Attachment != "" || text == "" {
			return e.reject(ctx, userID, sess.State, RepromptName, "empty_name")
		}
		draft.Name = text
		return e.advance(ctx, userID, sess.State, StateDescription, draft, PromptDescription)

	case StateDescription, StateCategory:
		if in.Attachment != "" || text == "" {
			return e.reject(ctx, userID, sess.State, RepromptText, "expected_text")
		}
		if sess.State == StateDescription {
			draft.Description = text
			return e.advance(ctx, userID, sess.State, StateCategory, draft, PromptCategory)
		}
		draft.Category = text
		return e.advance(ctx, userID, sess.State, StatePrice, draft, PromptPrice)

	case StatePrice:
		if in.Attachment != "" {
			return e.reject(ctx, userID, sess.State, RepromptPrice, "expected_text")
		}
		price, err := parsePrice(text)
		if err != nil {
			return e.reject(ctx, userID, sess.State, RepromptPrice, "invalid_price")
		}
		draft.Price = price
		return e.advance(ctx, userID, sess.State, StatePhotos, draft, PromptPhotos)

	case StatePhotos:
		if in.Attachment != "" {
			return e.addPhoto(ctx, userID, draft, in.Attachment)
		}
		if !e.isDone(text) {
			return e.reject(ctx, userID, sess.State, RepromptPhoto, "expected_photo")
		}
		if len(draft.Photos) == 0 && !e.allowEmpty {
			return e.reject(ctx, userID, sess.State, RepromptNoPhotos, "no_photos")
		}
		return e.commit(ctx, userID, draft)
	}

	return Reply{Stage: state.StateIdle}, ErrNotActive
}

// Cancel drops the user's dialogue. It reports whether one was in progress.
func (e *Engine) Cancel(ctx context.Context, userID int64) (bool, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return false, apperr.Storage("session_read", err)
	}
	if !isDialogueStage(sess.State) {
		return false, nil
	}
	if err := e.sessions.Clear(ctx, userID); err != nil {
		return false, apperr.Storage("session_clear", err)
	}
	logger.Info(ctx, logger.CompConversation, "dialogue.cancel",
		slog.Int64("user_id", userID),
		slog.String("stage", string(sess.State)),
		slog.String("outcome", "cancelled"),
	)
	return true, nil
}

// Active reports whether the user has a session in progress.
func (e *Engine) Active(ctx context.Context, userID int64) bool {
	return e.sessions.InProgress(ctx, userID)
}

// Stage returns the user's current stage, idle when nothing is in progress.
func (e *Engine) Stage(ctx context.Context, userID int64) (state.State, error) {
	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return state.StateIdle, apperr.Storage("session_read", err)
	}
	if sess.Idle() {
		return state.StateIdle, nil
	}
	return sess.State, nil
}

func (e *Engine) addPhoto(ctx context.Context, userID int64, draft Draft, token string) (Reply, error) {
	ref, err := e.resolver.ResolveAttachment(ctx, token)
	if err == nil && strings.TrimSpace(ref) == "" {
		err = apperr.Resolution("empty_reference", nil)
	}
	if err != nil {
		if apperr.KindOf(err) != apperr.KindResolution {
			err = apperr.Resolution("resolve_attachment", err)
		}
		logger.Warn(ctx, logger.CompConversation, "photo.resolve.fail",
			slog.Int64("user_id", userID),
			slog.String("stage", string(StatePhotos)),
			logger.ErrAttr(err),
		)
		return Reply{Text: RepromptPhotoRetry, Stage: StatePhotos}, err
	}

	draft.Photos = append(draft.Photos, ref)
	if err := e.put(ctx, userID, StatePhotos, draft); err != nil {
		return Reply{Text: ReplySaveFailed}, err
	}
	logger.Debug(ctx, logger.CompConversation, "photo.added",
		slog.Int64("user_id", userID),
		slog.Int("photos", len(draft.Photos)),
	)
	return Reply{Text: PromptMorePhotos, Stage: StatePhotos}, nil
}

// commit inserts the draft. The session is cleared whatever the outcome:
// a failed insert leaves no rows and is not retried automatically.
func (e *Engine) commit(ctx context.Context, userID int64, draft Draft) (Reply, error) {
	start := time.Now()
	id, insertErr := e.catalog.InsertProduct(ctx, catalog.NewProduct{
		Name:        draft.Name,
		Description: draft.Description,
		Category:    draft.Category,
		Price:       draft.Price,
		Photos:      draft.Photos,
	})

	if err := e.sessions.Clear(ctx, userID); err != nil {
		logger.Error(ctx, logger.CompConversation, "session.clear.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}

	if insertErr != nil {
		if apperr.KindOf(insertErr) == "" {
			insertErr = apperr.Storage("insert_product", insertErr)
		}
		logger.Error(ctx, logger.CompConversation, "product.commit",
			slog.Int64("user_id", userID),
			slog.String("outcome", "fail"),
			slog.Int("photos", len(draft.Photos)),
			slog.String("err", logger.SanitizeLimit(insertErr.Error(), 256)),
		)
		return Reply{Text: ReplySaveFailed, Stage: state.StateIdle}, insertErr
	}

	logger.Info(ctx, logger.CompConversation, "product.commit",
		slog.Int64("user_id", userID),
		slog.String("outcome", "ok"),
		slog.Int64("product_id", id),
		slog.Int("photos", len(draft.Photos)),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	)
	return Reply{
		Text:      fmt.Sprintf("%s (#%d)", ReplySaved, id),
		Stage:     state.StateIdle,
		ProductID: id,
		Committed: true,
	}, nil
}

func (e *Engine) advance(ctx context.Context, userID int64, from, to state.State, draft Draft, prompt string) (Reply, error) {
	if err := e.put(ctx, userID, to, draft); err != nil {
		return Reply{Text: ReplySaveFailed, Stage: from}, err
	}
	logger.Debug(ctx, logger.CompConversation, "stage.advance",
		slog.Int64("user_id", userID),
		slog.String("stage", string(from)),
		slog.String("next_stage", string(to)),
	)
	return Reply{Text: prompt, Stage: to}, nil
}

func (e *Engine) reject(ctx context.Context, userID int64, stage state.State, prompt, reason string) (Reply, error) {
	logger.Debug(ctx, logger.CompConversation, "input.rejected",
		slog.Int64("user_id", userID),
		slog.String("stage", string(stage)),
		slog.String("reason", reason),
	)
	return Reply{Text: prompt, Stage: stage}, apperr.Validation(reason)
}

func (e *Engine) put(ctx context.Context, userID int64, st state.State, draft Draft) error {
	err := e.sessions.Put(ctx, userID, state.Session[Draft]{State: st, Data: draft, UpdatedAt: e.now()})
	if err != nil {
		return apperr.Storage("session_write", err)
	}
	return nil
}

func (e *Engine) isDone(text string) bool {
	_, ok := e.doneWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func parsePrice(text string) (int64, error) {
	price, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, err
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price %d", price)
	}
	return price, nil
}

func isDialogueStage(s state.State) bool {
	switch s {
	case StateName, StateDescription, StateCategory, StatePrice, StatePhotos:
		return true
	}
	return false
}
