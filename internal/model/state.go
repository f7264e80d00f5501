package model

import (
	"fmt"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// ParamState is the serialisable copy of one parameter.
type ParamState struct {
	Name   string
	Rows   int
	Cols   int
	Values []float64
}

// State is the full set of learned values of a model.
type State struct {
	Backend string
	Params  []ParamState
}

// Snapshot copies the parameters of m.
func Snapshot(backend string, m domain.Model) (State, error) {
	t, ok := m.(domain.Trainable)
	if !ok {
		return State{}, fmt.Errorf("snapshot: %w", domain.ErrNotTrainable)
	}
	st := State{Backend: backend}
	for _, p := range t.Params() {
		st.Params = append(st.Params, ParamState{
			Name:   p.Name,
			Rows:   p.Rows,
			Cols:   p.Cols,
			Values: append([]float64(nil), p.Value...),
		})
	}
	return st, nil
}

// Restore builds a model with st.Backend and overwrites its parameters with
// the saved values. Every parameter of the new model must be present with
// the same shape.
func Restore(cfg Config, st State) (domain.Model, error) {
	m, err := New(st.Backend, cfg, 0)
	if err != nil {
		return nil, err
	}
	t, ok := m.(domain.Trainable)
	if !ok {
		return nil, fmt.Errorf("restore: %w", domain.ErrNotTrainable)
	}

	saved := make(map[string]ParamState, len(st.Params))
	for _, p := range st.Params {
		saved[p.Name] = p
	}
	for _, p := range t.Params() {
		s, ok := saved[p.Name]
		if !ok {
			return nil, fmt.Errorf("restore: parameter %s missing from state", p.Name)
		}
		if s.Rows != p.Rows || s.Cols != p.Cols || len(s.Values) != len(p.Value) {
			return nil, fmt.Errorf("restore: parameter %s is %dx%d, state has %dx%d",
				p.Name, p.Rows, p.Cols, s.Rows, s.Cols)
		}
		copy(p.Value, s.Values)
	}
	return m, nil
}
