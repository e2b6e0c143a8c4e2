package manual

import (
	"fmt"
	"sync"

	"github.com/labddb/resistorlens/internal/colorcode"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/reading"
)

// PublishFunc receives each new Result. It runs synchronously inside Apply.
type PublishFunc func(reading.Result)

// Selector holds the picker state and publishes a fresh Result after every
// successful edit. It is safe for concurrent use.
type Selector struct {
	mu      sync.Mutex
	state   State
	current reading.Result
	publish PublishFunc
}

// NewSelector starts from Initial. publish may be nil.
func NewSelector(publish PublishFunc) *Selector {
	return NewSelectorFrom(Initial(), publish)
}

// NewSelectorFrom starts from an arbitrary state. An undecodable state yields
// an empty current Result until the first valid edit.
func NewSelectorFrom(s State, publish PublishFunc) *Selector {
	sel := &Selector{state: s, publish: publish}
	if r, err := Project(s); err == nil {
		sel.current = r
	}
	return sel
}

// State returns the current selection.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the Result for the current selection.
func (s *Selector) Current() reading.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Apply reduces, projects and publishes. On error the previous state is
// kept and nothing is published.
func (s *Selector) Apply(edit Edit) (reading.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, edit)
	if err != nil {
		return reading.Result{}, err
	}
	result, err := Project(next)
	if err != nil {
		return reading.Result{}, err
	}

	s.state = next
	s.current = result
	if s.publish != nil {
		s.publish(result)
	}
	return result, nil
}

// Select is the picker surface: it resolves name and only accepts colours
// that Options offers for slot.
func (s *Selector) Select(slot Slot, name string) (reading.Result, error) {
	c, err := colorcode.Lookup(name)
	if err != nil {
		return reading.Result{}, err
	}
	if !Offered(slot, c) {
		return reading.Result{}, errors.New(fmt.Errorf("%w: %s in %s", ErrOptionNotOffered, c, slot)).
			Component("manual").
			Category(errors.CategoryValidation).
			Context("slot", slot.String()).
			Context("color", c.String()).
			Build()
	}
	return s.Apply(Edit{Slot: slot, Color: c})
}

// Reset returns to the initial selection and publishes its Result.
func (s *Selector) Reset() reading.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Initial()
	s.current, _ = Project(s.state)
	if s.publish != nil {
		s.publish(s.current)
	}
	return s.current
}
