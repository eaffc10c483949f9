package face

import (
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/ndnlog"
)

// DefaultInterestLifetimeMs is used when an Interest carries no explicit
// lifetime.
const DefaultInterestLifetimeMs = 4000

// Hub is the shared medium a set of SimFaces attach to: it holds the
// virtual Clock they schedule timers on and broadcasts each Interest to
// every other attached Face with a matching registration, and each Data to
// every attached Face (the sender included) with a matching pending
// request, simulating a single shared-medium NDN testbed.
type Hub struct {
	clock *Clock
	faces []*SimFace
	log   *ndnlog.Logger
}

// NewHub returns an empty Hub driven by clock.
func NewHub(clock *Clock) *Hub {
	return &Hub{clock: clock, log: ndnlog.New("simface")}
}

// Clock returns the Hub's shared virtual clock.
func (h *Hub) Clock() *Clock {
	return h.clock
}

// NewFace attaches a new SimFace named id to the Hub.
func (h *Hub) NewFace(id string) *SimFace {
	f := &SimFace{id: id, hub: h, pending: make(map[InterestID]*pendingInterest)}
	h.faces = append(h.faces, f)
	return f
}

type registration struct {
	id         PrefixID
	prefix     ndn.Name
	onInterest OnInterest
}

type pendingInterest struct {
	interest ndn.Interest
	onData   OnData
	onTimeout OnTimeout
	onNack   OnNack
	cancel   Canceler
}

// SimFace is an in-process Face implementation for tests and the demo
// harness: no bytes ever cross the wire, but every ExpressInterest,
// RegisterPrefix, PutData, and CallLater call behaves the way a real Face
// would from the engine's point of view. Interests and Data are delivered
// synchronously, inside the ExpressInterest or PutData call; only interest
// lifetimes and CallLater timers run on the shared Hub's virtual Clock.
type SimFace struct {
	id  string
	hub *Hub

	registrations []registration
	nextPrefixID  PrefixID

	pending        map[InterestID]*pendingInterest
	nextInterestID InterestID
}

var _ Face = (*SimFace)(nil)

func (f *SimFace) ExpressInterest(interest ndn.Interest, onData OnData, onTimeout OnTimeout, onNack OnNack) InterestID {
	f.nextInterestID++
	id := f.nextInterestID

	lifetime := interest.LifetimeMs
	if lifetime < 0 {
		lifetime = DefaultInterestLifetimeMs
	}

	entry := &pendingInterest{interest: interest, onData: onData, onTimeout: onTimeout, onNack: onNack}
	entry.cancel = f.hub.clock.After(lifetime, func() {
		if _, stillPending := f.pending[id]; !stillPending {
			return
		}
		delete(f.pending, id)
		if onTimeout != nil {
			onTimeout(interest)
		}
	})
	f.pending[id] = entry

	f.hub.routeInterest(f, interest)
	return id
}

func (f *SimFace) RemovePendingInterest(id InterestID) {
	entry, ok := f.pending[id]
	if !ok {
		return
	}
	entry.cancel()
	delete(f.pending, id)
}

func (f *SimFace) RegisterPrefix(prefix ndn.Name, onInterest OnInterest, onFail OnRegisterFail) PrefixID {
	f.nextPrefixID++
	id := f.nextPrefixID
	f.registrations = append(f.registrations, registration{id: id, prefix: prefix, onInterest: onInterest})
	return id
}

func (f *SimFace) RemoveRegisteredPrefix(id PrefixID) {
	for i, r := range f.registrations {
		if r.id == id {
			f.registrations = append(f.registrations[:i], f.registrations[i+1:]...)
			return
		}
	}
}

func (f *SimFace) PutData(data ndn.Data) {
	f.hub.routeData(f, data)
}

func (f *SimFace) CallLater(delayMs int64, closure func()) Canceler {
	return f.hub.clock.After(delayMs, closure)
}

// bestMatch returns the longest registered prefix matching name, or false
// if nothing matches.
func (f *SimFace) bestMatch(name ndn.Name) (registration, bool) {
	best := -1
	var bestReg registration
	for _, r := range f.registrations {
		if r.prefix.IsPrefixOf(name) && r.prefix.Size() > best {
			best = r.prefix.Size()
			bestReg = r
		}
	}
	return bestReg, best >= 0
}

func (h *Hub) routeInterest(sender *SimFace, interest ndn.Interest) {
	for _, g := range h.faces {
		if g == sender {
			continue
		}
		if reg, ok := g.bestMatch(interest.Name); ok {
			reg.onInterest(reg.prefix, interest)
		}
	}
}

func (h *Hub) routeData(sender *SimFace, data ndn.Data) {
	for _, g := range h.faces {
		for id, entry := range g.pending {
			if !entry.interest.Name.IsPrefixOf(data.Name) {
				continue
			}
			delete(g.pending, id)
			entry.cancel()
			if entry.onData != nil {
				entry.onData(entry.interest, data)
			}
		}
	}
}
