package store

import (
	"github.com/neilberkman/cfchat/internal/core/models"
)

// State is a point-in-time copy of the client's view of its sessions.
type State struct {
	// Sessions keeps the order the server returned; it is never re-sorted.
	Sessions []models.Session
	// Active is absent while the user is in a new, unsent chat.
	Active     models.OptionalID
	Transcript []models.Message

	SessionsLoading   bool
	TranscriptLoading bool
	Sending           bool
}

// ActiveSession returns the list entry for the active session, if both exist.
func (s State) ActiveSession() (models.Session, bool) {
	id, ok := s.Active.Get()
	if !ok {
		return models.Session{}, false
	}
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return models.Session{}, false
}

// LastReply returns the most recent assistant message of the transcript.
func (s State) LastReply() (models.Message, bool) {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Role == models.RoleAssistant {
			return s.Transcript[i], true
		}
	}
	return models.Message{}, false
}

// Store holds the single ClientState instance. It performs no I/O and no
// locking; its owner serialises access.
type Store struct {
	state State
}

func New() *Store {
	return &Store{}
}

// Snapshot returns a copy that shares no slices with the store.
func (s *Store) Snapshot() State {
	st := s.state
	st.Sessions = append([]models.Session(nil), s.state.Sessions...)
	st.Transcript = append([]models.Message(nil), s.state.Transcript...)
	return st
}

func (s *Store) Active() models.OptionalID {
	return s.state.Active
}

// SetSessions replaces the session list wholesale.
func (s *Store) SetSessions(sessions []models.Session) {
	s.state.Sessions = append([]models.Session(nil), sessions...)
}

// RemoveSession drops the session with the given id. Absent ids are a no-op.
func (s *Store) RemoveSession(id models.SessionID) {
	kept := make([]models.Session, 0, len(s.state.Sessions))
	for _, sess := range s.state.Sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	s.state.Sessions = kept
}

// ClearActive returns to the new-chat state.
func (s *Store) ClearActive() {
	s.state.Active = models.None()
	s.state.Transcript = nil
	s.state.TranscriptLoading = false
}

// SetActive makes id the active session and replaces the transcript.
func (s *Store) SetActive(id models.SessionID, transcript []models.Message) {
	s.state.Active = models.Some(id)
	s.state.Transcript = append([]models.Message(nil), transcript...)
}

// AppendExchange replaces the transcript with a copy extended by one
// user/assistant round trip, user message first.
func (s *Store) AppendExchange(user, reply models.Message) {
	next := make([]models.Message, 0, len(s.state.Transcript)+2)
	next = append(next, s.state.Transcript...)
	next = append(next, user, reply)
	s.state.Transcript = next
}

func (s *Store) SetSessionsLoading(v bool) {
	s.state.SessionsLoading = v
}

func (s *Store) SetTranscriptLoading(v bool) {
	s.state.TranscriptLoading = v
}

func (s *Store) SetSending(v bool) {
	s.state.Sending = v
}
