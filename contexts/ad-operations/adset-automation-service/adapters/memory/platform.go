package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

// Platform is an in-process ad platform used for local runs and tests.
// Failures can be queued per ad set to exercise the status bridge.
type Platform struct {
	mu sync.Mutex

	adSets   map[string]entities.PlatformAdSet
	failures map[string][]error
	readErr  error
	calls    []SetRunStateCall
}

type SetRunStateCall struct {
	AdSetID string
	State   entities.RunState
}

func NewPlatform(seed []entities.PlatformAdSet) *Platform {
	adSets := make(map[string]entities.PlatformAdSet, len(seed))
	for _, adSet := range seed {
		adSets[adSet.ID] = adSet
	}
	return &Platform{
		adSets:   adSets,
		failures: make(map[string][]error),
	}
}

func (p *Platform) ListAdSets(_ context.Context) ([]entities.PlatformAdSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.readErr != nil {
		return nil, p.readErr
	}
	items := make([]entities.PlatformAdSet, 0, len(p.adSets))
	for _, adSet := range p.adSets {
		items = append(items, adSet)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (p *Platform) SetRunState(_ context.Context, adSetID string, state entities.RunState) (ports.Ack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, SetRunStateCall{AdSetID: adSetID, State: state})
	if queued := p.failures[adSetID]; len(queued) > 0 {
		p.failures[adSetID] = queued[1:]
		return ports.Ack{}, queued[0]
	}
	adSet, exists := p.adSets[adSetID]
	if !exists {
		return ports.Ack{}, domainerrors.ErrPlatformNotFound
	}
	changed := adSet.RunState != state
	adSet.RunState = state
	p.adSets[adSetID] = adSet
	return ports.Ack{
		AdSetID:   adSetID,
		State:     state,
		Changed:   changed,
		AppliedAt: time.Now().UTC(),
	}, nil
}

// Upsert replaces the platform row, e.g. to move spend between cycles.
func (p *Platform) Upsert(adSet entities.PlatformAdSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adSets[adSet.ID] = adSet
}

// FailNext queues errors returned by the next SetRunState calls for adSetID.
func (p *Platform) FailNext(adSetID string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[adSetID] = append(p.failures[adSetID], errs...)
}

func (p *Platform) FailReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

func (p *Platform) Calls() []SetRunStateCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SetRunStateCall(nil), p.calls...)
}

func (p *Platform) RunState(adSetID string) entities.RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.adSets[adSetID].RunState
}
