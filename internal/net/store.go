package net

// SessionStore tracks live sessions by ID. Accessed only from the game
// loop goroutine — no locks.
type SessionStore struct {
	sessions map[uint64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint64]*Session)}
}

func (st *SessionStore) Add(s *Session) {
	st.sessions[s.ID] = s
}

func (st *SessionStore) Remove(id uint64) {
	delete(st.sessions, id)
}

func (st *SessionStore) Get(id uint64) *Session {
	return st.sessions[id]
}

func (st *SessionStore) Count() int {
	return len(st.sessions)
}

// Raw exposes the underlying map for iteration with removal.
func (st *SessionStore) Raw() map[uint64]*Session {
	return st.sessions
}

func (st *SessionStore) ForEach(fn func(*Session)) {
	for _, s := range st.sessions {
		fn(s)
	}
}

// SendTo buffers a packet for one session. No-op if the session is gone.
func (st *SessionStore) SendTo(sessionID uint64, data []byte) {
	if s := st.sessions[sessionID]; s != nil {
		s.Send(data)
	}
}

// Broadcast buffers a packet for every live session.
func (st *SessionStore) Broadcast(data []byte) {
	for _, s := range st.sessions {
		s.Send(data)
	}
}
