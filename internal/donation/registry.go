package donation

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// session tracks the single in-flight attempt and last outcome of one address.
type session struct {
	mu       sync.Mutex
	inFlight bool
	last     Outcome
	lastErr  string
	lastTx   string
}

type sessionView struct {
	InFlight bool
	Last     Outcome
	LastErr  string
	LastTx   string
}

func (s *session) view() sessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sessionView{InFlight: s.inFlight, Last: s.last, LastErr: s.lastErr, LastTx: s.lastTx}
}

// begin claims the session for a new attempt and clears the previous outcome.
func (s *session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrInFlight
	}
	s.inFlight = true
	s.last, s.lastErr, s.lastTx = OutcomeNone, "", ""
	return nil
}

func (s *session) finish(outcome Outcome, errMsg, txHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.last, s.lastErr, s.lastTx = outcome, errMsg, txHash
}

// Registry keeps one session per active address.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

func (r *Registry) get(addr common.Address) *session {
	key := strings.ToLower(addr.Hex())
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		s = &session{}
		r.sessions[key] = s
	}
	return s
}

// InFlight reports whether addr has a donation processing.
func (r *Registry) InFlight(addr common.Address) bool {
	return r.get(addr).view().InFlight
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
