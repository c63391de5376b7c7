// Package controller owns the client's session state and decides how each
// user action and each server response changes it.
//
// Every action that can change which session is displayed (select, send,
// new chat, deleting the displayed session) bumps an "active" sequence
// number, and every list fetch bumps a "list" sequence number. A response is
// applied only if its sequence number is still the latest of its kind, so a
// slow response can never overwrite the effect of a later action. List
// responses only ever write the session list.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/neilberkman/cfchat/internal/core/gateway"
	"github.com/neilberkman/cfchat/internal/core/models"
	"github.com/neilberkman/cfchat/internal/core/store"
)

var (
	// ErrSuperseded reports that a later action made this response stale.
	// It is not a failure and should not be shown to the user.
	ErrSuperseded = errors.New("superseded by a newer action")
	// ErrDeletePending rejects an action on a session whose delete is in flight.
	ErrDeletePending = errors.New("session is being deleted")
	// ErrSendInFlight rejects a send while the previous one is unanswered.
	ErrSendInFlight = errors.New("a message is already being sent")
)

// Gateway is the remote session store.
type Gateway interface {
	ListSessions(ctx context.Context) ([]models.Session, error)
	FetchSession(ctx context.Context, id models.SessionID) (models.SessionDetail, error)
	DeleteSession(ctx context.Context, id models.SessionID) error
	SendMessage(ctx context.Context, active models.OptionalID, text string) (models.SendResult, error)
}

type Controller struct {
	gw       Gateway
	notifier Notifier

	mu        sync.Mutex
	store     *store.Store
	listSeq   uint64
	activeSeq uint64
	// selecting is the target of the newest SelectSession, until it lands.
	selecting models.OptionalID
	sending   bool
	deleting  map[models.SessionID]struct{}
	onChange  func(store.State)

	wg sync.WaitGroup
}

// New creates a controller in the new-chat state with an empty session list.
// A nil notifier discards notifications.
func New(gw Gateway, notifier Notifier) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Controller{
		gw:       gw,
		notifier: notifier,
		store:    store.New(),
		deleting: make(map[models.SessionID]struct{}),
	}
}

// SetOnChangeListener registers fn to receive a snapshot after every state
// change. fn runs on the goroutine that made the change, outside the lock.
func (c *Controller) SetOnChangeListener(fn func(store.State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns a snapshot of the current client state.
func (c *Controller) State() store.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Wait blocks until background list refreshes have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Startup loads the session list. On failure the last-known list is kept and
// the error is returned; nothing is retried.
func (c *Controller) Startup(ctx context.Context) error {
	return c.RefreshSessions(ctx)
}

// RefreshSessions fetches the session list and replaces the local copy.
// It never touches the active session or the transcript.
func (c *Controller) RefreshSessions(ctx context.Context) error {
	c.mu.Lock()
	c.listSeq++
	seq := c.listSeq
	c.store.SetSessionsLoading(true)
	c.mu.Unlock()
	c.changed()

	sessions, err := c.gw.ListSessions(ctx)

	c.mu.Lock()
	if seq != c.listSeq {
		c.mu.Unlock()
		slog.Debug("discarding stale session list", "seq", seq)
		return ErrSuperseded
	}
	c.store.SetSessionsLoading(false)
	if err == nil {
		c.store.SetSessions(sessions)
	}
	c.mu.Unlock()
	c.changed()

	if err != nil {
		slog.Warn("session list refresh failed", "error", err)
		return err
	}
	return nil
}

// SelectSession loads id's transcript and makes it the active session.
// If the server no longer knows id, the client returns to a new chat,
// refreshes the list and returns gateway.ErrNotFound.
func (c *Controller) SelectSession(ctx context.Context, id models.SessionID) error {
	c.mu.Lock()
	if _, ok := c.deleting[id]; ok {
		c.mu.Unlock()
		return ErrDeletePending
	}
	c.activeSeq++
	seq := c.activeSeq
	c.selecting = models.Some(id)
	c.store.SetTranscriptLoading(true)
	c.mu.Unlock()
	c.changed()

	detail, err := c.gw.FetchSession(ctx, id)

	c.mu.Lock()
	if seq != c.activeSeq {
		c.mu.Unlock()
		slog.Debug("discarding stale session fetch", "sessionId", id, "seq", seq)
		return ErrSuperseded
	}
	c.selecting = models.None()
	c.store.SetTranscriptLoading(false)

	switch {
	case err == nil:
		c.store.SetActive(id, detail.Messages)
		c.mu.Unlock()
		c.changed()
		c.notifier.Notify(Notification{Kind: SessionLoaded, SessionID: id, Title: detail.Session.Title})
		return nil

	case errors.Is(err, gateway.ErrNotFound):
		// Deleted elsewhere: fall back to a new chat and reconcile the list
		c.store.ClearActive()
		c.mu.Unlock()
		c.changed()
		if rerr := c.RefreshSessions(ctx); rerr != nil && !errors.Is(rerr, ErrSuperseded) {
			slog.Warn("refresh after missing session failed", "sessionId", id, "error", rerr)
		}
		return err

	default:
		c.mu.Unlock()
		c.changed()
		return err
	}
}

// StartNewChat returns to the new-chat state without any network call. The
// server creates the session when the first message is sent.
func (c *Controller) StartNewChat() {
	c.mu.Lock()
	c.activeSeq++
	c.selecting = models.None()
	c.store.ClearActive()
	c.mu.Unlock()
	c.changed()
	c.notifier.Notify(Notification{Kind: NewChatStarted})
}

// SendMessage sends text into the active session, creating the session
// first when the client is in a new chat. On success the user message and
// the reply are appended to the transcript and the list is refreshed in the
// background. On failure the transcript is left exactly as it was.
func (c *Controller) SendMessage(ctx context.Context, text string) (models.SendResult, error) {
	if text == "" {
		return models.SendResult{}, &gateway.Error{Op: "send", Kind: gateway.ErrValidation, Detail: "message is empty"}
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return models.SendResult{}, ErrSendInFlight
	}
	active := c.store.Active()
	if id, ok := active.Get(); ok {
		if _, deleting := c.deleting[id]; deleting {
			c.mu.Unlock()
			return models.SendResult{}, ErrDeletePending
		}
	}
	// Sending is newer than any select still in flight; that select must
	// not replace the transcript this send is about to extend.
	c.activeSeq++
	seq := c.activeSeq
	c.selecting = models.None()
	c.store.SetTranscriptLoading(false)
	c.sending = true
	c.store.SetSending(true)
	c.mu.Unlock()
	c.changed()

	result, err := c.gw.SendMessage(ctx, active, text)

	c.mu.Lock()
	c.sending = false
	c.store.SetSending(false)
	if err != nil {
		c.mu.Unlock()
		c.changed()
		return models.SendResult{}, err
	}

	if seq == c.activeSeq {
		if !active.IsSet() {
			c.store.SetActive(result.SessionID, nil)
		}
		c.store.AppendExchange(models.UserMessage(text), result.Reply)
	} else {
		// The user moved on while the reply was in flight; the message is
		// persisted server-side and shows up when that session is opened.
		slog.Info("reply arrived after active session changed", "sessionId", result.SessionID)
	}
	c.mu.Unlock()
	c.changed()

	c.refreshInBackground(ctx)
	return result, nil
}

// DeleteSession deletes id on the server and drops it from the list at once.
// A session that is already gone counts as deleted. Deleting the active
// session returns the client to a new chat.
func (c *Controller) DeleteSession(ctx context.Context, id models.SessionID) error {
	c.mu.Lock()
	if _, ok := c.deleting[id]; ok {
		c.mu.Unlock()
		return ErrDeletePending
	}
	c.deleting[id] = struct{}{}
	c.mu.Unlock()

	err := c.gw.DeleteSession(ctx, id)

	c.mu.Lock()
	delete(c.deleting, id)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		slog.Debug("session already deleted", "sessionId", id)
	}

	c.store.RemoveSession(id)
	// A list fetched before the delete landed could resurrect the row
	c.listSeq++
	switch {
	case c.selecting.Is(id) || (c.store.Active().Is(id) && !c.selecting.IsSet()):
		c.activeSeq++
		c.selecting = models.None()
		c.store.ClearActive()
	case c.store.Active().Is(id):
		// A select of another session is pending; it still lands
		c.store.ClearActive()
		c.store.SetTranscriptLoading(true)
	}
	c.mu.Unlock()
	c.changed()
	c.notifier.Notify(Notification{Kind: SessionDeleted, SessionID: id})

	c.refreshInBackground(ctx)
	return nil
}

func (c *Controller) refreshInBackground(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.RefreshSessions(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			slog.Warn("background session refresh failed", "error", err)
		}
	}()
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	var st store.State
	if fn != nil {
		st = c.store.Snapshot()
	}
	c.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}
