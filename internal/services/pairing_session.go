package services

import (
	"slices"
	"sort"
	"sync"

	"infinite-experiment/reconboard/internal/models/entities"
)

// PairingAction reports what a click did.
type PairingAction string

const (
	ActionArmed     PairingAction = "armed"
	ActionDisarmed  PairingAction = "disarmed"
	ActionRemoved   PairingAction = "removed"
	ActionConfirmed PairingAction = "confirmed"
	ActionCancelled PairingAction = "cancelled"
)

// PairingSession is the working state of the interactive pairing workflow:
// one field list per side, at most one armed field per side and the field
// map being built.
type PairingSession struct {
	ID           string
	MappingID    string
	PlaygroundID string
	LeftTaskID   string
	RightTaskID  string

	mu          sync.Mutex
	leftFields  []string
	rightFields []string
	fieldMap    *entities.FieldMap
	armedLeft   string
	armedRight  string
	lastAction  PairingAction
}

// PairingSnapshot is a consistent copy of a session.
type PairingSnapshot struct {
	ID           string
	MappingID    string
	PlaygroundID string
	LeftTaskID   string
	RightTaskID  string
	LeftFields   []string
	RightFields  []string
	ArmedLeft    string
	ArmedRight   string
	FieldMap     *entities.FieldMap
	LastAction   PairingAction
}

// NewPairingSession starts from fieldMap (copied) and the two field lists.
// Empty field lists accept any field name.
func NewPairingSession(leftFields, rightFields []string, fieldMap *entities.FieldMap) *PairingSession {
	return &PairingSession{
		leftFields:  slices.Clone(leftFields),
		rightFields: slices.Clone(rightFields),
		fieldMap:    fieldMap.Clone(),
	}
}

// ClickLeft removes the pair keyed by field when one exists, otherwise
// toggles field as the armed left selection.
func (p *PairingSession) ClickLeft(field string) (PairingAction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fieldMap.Delete(field) {
		if p.armedLeft == field {
			p.armedLeft = ""
		}
		return p.did(ActionRemoved), nil
	}
	if !allowed(p.leftFields, field) {
		return "", ErrUnknownField
	}
	if p.armedLeft == field {
		p.armedLeft = ""
		return p.did(ActionDisarmed), nil
	}
	p.armedLeft = field
	return p.did(ActionArmed), nil
}

// ClickRight removes the pair targeting field when exactly one left field
// maps to it. A right field targeted by several left fields is armed instead.
func (p *PairingSession) ClickRight(field string) (PairingAction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if left, ok := p.fieldMap.KeyForValue(field); ok {
		p.fieldMap.Delete(left)
		if p.armedRight == field {
			p.armedRight = ""
		}
		return p.did(ActionRemoved), nil
	}
	if !allowed(p.rightFields, field) {
		return "", ErrUnknownField
	}
	if p.armedRight == field {
		p.armedRight = ""
		return p.did(ActionDisarmed), nil
	}
	p.armedRight = field
	return p.did(ActionArmed), nil
}

// Confirm commits the armed pair and clears both selections.
func (p *PairingSession) Confirm() (entities.FieldPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.armedLeft == "" || p.armedRight == "" {
		return entities.FieldPair{}, ErrNothingArmed
	}
	pair := entities.FieldPair{Left: p.armedLeft, Right: p.armedRight}
	p.fieldMap.Set(pair.Left, pair.Right)
	p.armedLeft, p.armedRight = "", ""
	p.did(ActionConfirmed)
	return pair, nil
}

func (p *PairingSession) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armedLeft, p.armedRight = "", ""
	p.did(ActionCancelled)
}

func (p *PairingSession) FieldMap() *entities.FieldMap {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fieldMap.Clone()
}

// BindMapping records the persisted mapping id after a save.
func (p *PairingSession) BindMapping(mappingID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.MappingID = mappingID
}

func (p *PairingSession) Snapshot() PairingSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PairingSnapshot{
		ID:           p.ID,
		MappingID:    p.MappingID,
		PlaygroundID: p.PlaygroundID,
		LeftTaskID:   p.LeftTaskID,
		RightTaskID:  p.RightTaskID,
		LeftFields:   DisplayOrder(p.leftFields, p.fieldMap.Keys(), p.armedLeft),
		RightFields:  DisplayOrder(p.rightFields, p.fieldMap.Values(), p.armedRight),
		ArmedLeft:    p.armedLeft,
		ArmedRight:   p.armedRight,
		FieldMap:     p.fieldMap.Clone(),
		LastAction:   p.lastAction,
	}
}

func (p *PairingSession) did(a PairingAction) PairingAction {
	p.lastAction = a
	return a
}

func allowed(fields []string, field string) bool {
	if field == "" {
		return false
	}
	return len(fields) == 0 || slices.Contains(fields, field)
}

// DisplayOrder orders a field list for display: mapped fields in mapping
// order, then the armed field, then the rest alphabetically. Mapped or armed
// names missing from fields are still listed.
func DisplayOrder(fields, mapped []string, armed string) []string {
	seen := make(map[string]bool, len(fields)+len(mapped))
	out := make([]string, 0, len(fields)+1)

	for _, f := range mapped {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if armed != "" && !seen[armed] {
		seen[armed] = true
		out = append(out, armed)
	}

	rest := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
