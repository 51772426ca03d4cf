package telegram

import (
	"maps"
	"sync"

	"calc-be/api/internal/calc/types"
)

// VarStore keeps the variables each chat has assigned so far.
type VarStore struct {
	m sync.Map // chatID -> *chatVars
}

type chatVars struct {
	mu   sync.Mutex
	vars types.VariableMap
}

func NewVarStore() *VarStore { return &VarStore{} }

func (s *VarStore) chat(chatID int64) *chatVars {
	v, _ := s.m.LoadOrStore(chatID, &chatVars{vars: types.VariableMap{}})
	return v.(*chatVars)
}

// Snapshot returns a copy that is safe to hand to the analyzer.
func (s *VarStore) Snapshot(chatID int64) types.VariableMap {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.vars)
}

// Bind stores every record flagged assign and returns the bound names.
func (s *VarStore) Bind(chatID int64, recs []types.Record) []string {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.BindAssignments(c.vars, recs)
}

func (s *VarStore) Set(chatID int64, name string, value any) {
	c := s.chat(chatID)
	c.mu.Lock()
	c.vars[name] = value
	c.mu.Unlock()
}

func (s *VarStore) Reset(chatID int64) { s.m.Delete(chatID) }
