package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/models/entities"
)

const PairingSessionIdleTimeout = 30 * time.Minute

// PairingRegistry holds live pairing sessions. Sessions expire after
// PairingSessionIdleTimeout without access.
type PairingRegistry struct {
	fields   FieldSource
	mappings *MappingStore
	sessions *cache.Cache
	idle     time.Duration
}

func NewPairingRegistry(fields FieldSource, mappings *MappingStore) *PairingRegistry {
	return &PairingRegistry{
		fields:   fields,
		mappings: mappings,
		sessions: cache.New(PairingSessionIdleTimeout, 5*time.Minute),
		idle:     PairingSessionIdleTimeout,
	}
}

// Start fetches both tasks' field lists and opens a session. When req names
// an existing mapping its field map seeds the session.
func (r *PairingRegistry) Start(ctx context.Context, req dtos.StartPairingReq) (*PairingSession, error) {
	leftTask, rightTask, playgroundID := req.LeftTaskID, req.RightTaskID, req.PlaygroundID
	seed := entities.NewFieldMap()

	if req.MappingID != "" {
		m, ok := r.mappings.Get(req.MappingID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMapping, req.MappingID)
		}
		seed = m.FieldMap
		leftTask, rightTask, playgroundID = m.LeftTaskID, m.RightTaskID, m.PlaygroundID
	}

	leftFields, _, err := r.fields.GetTaskFields(ctx, leftTask)
	if err != nil {
		return nil, fmt.Errorf("fields for left task %s: %w", leftTask, err)
	}
	rightFields, _, err := r.fields.GetTaskFields(ctx, rightTask)
	if err != nil {
		return nil, fmt.Errorf("fields for right task %s: %w", rightTask, err)
	}

	session := NewPairingSession(leftFields, rightFields, seed)
	session.ID = uuid.NewString()
	session.MappingID = req.MappingID
	session.PlaygroundID = playgroundID
	session.LeftTaskID = leftTask
	session.RightTaskID = rightTask

	r.sessions.Set(r.key(session.ID), session, r.idle)
	logging.Debug("Pairing session started", "session_id", session.ID, "reconciliation_id", req.MappingID)
	return session, nil
}

// Get returns a live session and extends its idle deadline.
func (r *PairingRegistry) Get(sessionID string) (*PairingSession, error) {
	val, found := r.sessions.Get(r.key(sessionID))
	if !found {
		return nil, ErrUnknownSession
	}
	session := val.(*PairingSession)
	r.sessions.Set(r.key(sessionID), session, r.idle)
	return session, nil
}

func (r *PairingRegistry) Close(sessionID string) {
	r.sessions.Delete(r.key(sessionID))
}

// Save persists the session's field map: an update when the session is
// bound to a mapping, a create otherwise.
func (r *PairingRegistry) Save(ctx context.Context, sessionID string) (*entities.ReconciliationMapping, error) {
	session, err := r.Get(sessionID)
	if err != nil {
		return nil, err
	}
	snap := session.Snapshot()

	var saved *entities.ReconciliationMapping
	if snap.MappingID != "" {
		saved, err = r.mappings.Update(ctx, snap.MappingID, snap.FieldMap)
	} else {
		saved, err = r.mappings.Create(ctx, snap.PlaygroundID, snap.LeftTaskID, snap.RightTaskID, snap.FieldMap)
	}
	if err != nil {
		return nil, err
	}

	session.BindMapping(saved.ID)
	return saved, nil
}

func (r *PairingRegistry) Count() int {
	return r.sessions.ItemCount()
}

func (r *PairingRegistry) key(sessionID string) string {
	return string(constants.CachePrefixPairing) + sessionID
}
