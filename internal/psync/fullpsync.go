package psync

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ndnsync/ndnsync/internal/face"
	"github.com/ndnsync/ndnsync/internal/iblt"
	"github.com/ndnsync/ndnsync/internal/metrics"
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/ndnlog"
	"github.com/ndnsync/ndnsync/internal/store"
	"github.com/ndnsync/ndnsync/internal/wire"
)

// defaultExpectedNEntries is used when Config.ExpectedNEntries is unset.
const defaultExpectedNEntries = 40

// Signer signs data in place; see chronosync.Signer for the same role in
// the other sync engine. A nil Signer leaves packets unsigned.
type Signer func(data *ndn.Data) error

// OnNamesUpdate is invoked with the names newly learned from a sync Data,
// after they have been inserted into the local IBLT.
type OnNamesUpdate func(added []ndn.Name)

// CanAddToSyncData lets the application suppress a name from an outgoing
// sync Data - e.g. because the peer's own negative set shows it is about to
// learn the name some other way.
type CanAddToSyncData func(name ndn.Name, negative map[uint32]bool) bool

// CanAddReceivedName lets the application reject a name offered by a peer's
// sync Data before it is inserted into the local IBLT.
type CanAddReceivedName func(name ndn.Name) bool

// Config names a FullPSync group and its tuning parameters.
type Config struct {
	// SyncPrefix is the shared name sync interests are exchanged under,
	// e.g. /ndn/psync/demo.
	SyncPrefix ndn.Name

	SyncInterestLifetimeMs int64
	// JitterPercent bounds the self-timer's reissue jitter as a percentage
	// of SyncInterestLifetimeMs (uniform in +/- this percent).
	JitterPercent int

	ExpectedNEntries int

	SegmentFreshnessMs    int64
	CompressLargePayloads bool

	Sign Signer

	CanAddToSyncData   CanAddToSyncData
	CanAddReceivedName CanAddReceivedName

	// JitterSeed seeds the self-timer's PRNG; 0 uses the current time,
	// giving deterministic behavior to tests that set it explicitly.
	JitterSeed int64

	// Store, if non-nil, persists every name this participant publishes so
	// a restart can re-advertise them immediately instead of starting with
	// an empty IBLT. Optional; a nil Store disables persistence entirely.
	Store *store.Store
}

type pendingEntry struct {
	interest  ndn.Interest
	theirIBLT *iblt.IBLT
	timer     face.Canceler
	isRemoved bool
}

// Engine runs one participant's side of FullPSync2017: an IBLT over the set
// of advertised <prefix>/<seq> names, a standing sync interest refreshed by
// a jittered self-timer, and a table of interests parked because nothing
// could be sent to satisfy them yet. Like chronosync.Node, it is
// single-threaded cooperative and must only be driven from its Face's
// event-loop goroutine.
type Engine struct {
	face face.Face
	cfg  Config
	log  *ndnlog.Logger
	rng  *rand.Rand

	// instanceID tags every log line from this Engine, the same way
	// chronosync.Node tags its own.
	instanceID string

	table *iblt.IBLT
	names map[uint32]ndn.Name

	prefixID      face.PrefixID
	outstandingID face.InterestID
	timerCancel   face.Canceler
	version       uint64

	pending map[string]*pendingEntry

	publisher *SegmentPublisher

	onNamesUpdate OnNamesUpdate
	enabled       bool
}

// New constructs an Engine. Call Start to register the sync prefix, express
// the initial sync interest, and arm the self-timer.
func New(f face.Face, cfg Config, onNamesUpdate OnNamesUpdate) *Engine {
	if cfg.ExpectedNEntries <= 0 {
		cfg.ExpectedNEntries = defaultExpectedNEntries
	}
	seed := cfg.JitterSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	instanceID := uuid.New().String()
	e := &Engine{
		face:          f,
		cfg:           cfg,
		log:           ndnlog.New("fullpsync").Named(cfg.SyncPrefix.String()).Named(instanceID),
		instanceID:    instanceID,
		rng:           rand.New(rand.NewSource(seed)),
		table:         iblt.New(cfg.ExpectedNEntries),
		names:         make(map[uint32]ndn.Name),
		pending:       make(map[string]*pendingEntry),
		publisher:     NewSegmentPublisher(f, cfg.SegmentFreshnessMs, cfg.CompressLargePayloads),
		onNamesUpdate: onNamesUpdate,
		enabled:       true,
	}
	if persisted, err := cfg.Store.LoadPSyncNames(cfg.SyncPrefix.String()); err != nil {
		e.log.Printf("load persisted names: %v", err)
	} else {
		for _, raw := range persisted {
			name := ndn.ParseURI(raw)
			key := iblt.HashName(wire.EncodeName(name))
			e.names[key] = name
			e.table.Insert(key)
		}
	}
	return e
}

// Start registers the sync prefix, expresses the first sync interest, and
// arms the self-timer that reissues it regardless of response.
func (e *Engine) Start() {
	e.prefixID = e.face.RegisterPrefix(e.cfg.SyncPrefix, e.handleSyncInterest, nil)
	e.expressSyncInterest()
	e.scheduleSelfTimer()
}

// Shutdown unregisters the sync prefix, cancels the self-timer and any
// outstanding interest, and marks every parked interest removed so its
// timer is a no-op when it fires.
func (e *Engine) Shutdown() {
	if !e.enabled {
		return
	}
	e.enabled = false
	e.face.RemoveRegisteredPrefix(e.prefixID)
	if e.outstandingID != 0 {
		e.face.RemovePendingInterest(e.outstandingID)
	}
	if e.timerCancel != nil {
		e.timerCancel()
	}
	for _, pe := range e.pending {
		pe.isRemoved = true
		pe.timer()
	}
	e.pending = nil
}

// PublishedNames returns the names currently advertised by this
// participant. Callers must not mutate the result.
func (e *Engine) PublishedNames() []ndn.Name {
	out := make([]ndn.Name, 0, len(e.names))
	for _, n := range e.names {
		out = append(out, n)
	}
	return out
}

// PublishName advertises name (already containing its sequence-number
// suffix) in the local IBLT and attempts to satisfy any parked interest it
// now resolves. Publishing an already-advertised name is a no-op.
func (e *Engine) PublishName(name ndn.Name) {
	key := iblt.HashName(wire.EncodeName(name))
	if _, exists := e.names[key]; exists {
		return
	}
	e.names[key] = name
	e.table.Insert(key)
	if err := e.cfg.Store.AddPSyncName(e.cfg.SyncPrefix.String(), name.String()); err != nil {
		e.log.Printf("persist published name %s: %v", name, err)
	}
	e.satisfyPendingInterests()
}

func (e *Engine) expressSyncInterest() {
	if !e.enabled {
		return
	}
	if e.outstandingID != 0 {
		e.face.RemovePendingInterest(e.outstandingID)
	}
	encoded, err := e.table.Encode()
	if err != nil {
		e.log.Printf("encode IBLT for sync interest: %v", err)
		return
	}
	name := e.cfg.SyncPrefix.Append(ndn.Component{Type: ndn.ComponentGeneric, Value: encoded})
	interest := ndn.NewInterest(name)
	interest.LifetimeMs = e.cfg.SyncInterestLifetimeMs
	interest.Nonce = e.randomNonce()
	e.outstandingID = e.face.ExpressInterest(interest, e.handleSyncData, nil, nil)
	metrics.SyncInterestsSent.WithLabelValues("fullpsync", "sync").Inc()
}

func (e *Engine) randomNonce() []byte {
	var n [4]byte
	e.rng.Read(n[:])
	return n[:]
}

func (e *Engine) scheduleSelfTimer() {
	if !e.enabled {
		return
	}
	e.timerCancel = e.face.CallLater(e.jitteredReissueDelay(), func() {
		e.expressSyncInterest()
		e.scheduleSelfTimer()
	})
}

// jitteredReissueDelay computes syncInterestLifetimeMs/2, jittered by a
// uniform +/- JitterPercent of syncInterestLifetimeMs.
func (e *Engine) jitteredReissueDelay() int64 {
	base := e.cfg.SyncInterestLifetimeMs / 2
	jitterRange := e.cfg.SyncInterestLifetimeMs * int64(e.cfg.JitterPercent) / 100
	if jitterRange <= 0 {
		return base
	}
	delta := e.rng.Int63n(2*jitterRange+1) - jitterRange
	return base + delta
}

func (e *Engine) handleSyncInterest(prefix ndn.Name, interest ndn.Interest) {
	if !e.enabled {
		return
	}
	if interest.Name.Size() > e.cfg.SyncPrefix.Size()+1 {
		if data, ok := e.publisher.Lookup(interest.Name); ok {
			e.face.PutData(data)
		}
		return
	}

	theirIBLT, err := e.decodeIBLTFromName(interest.Name)
	if err != nil {
		e.log.Printf("decode IBLT from sync interest %s: %v", interest.Name, err)
		return
	}
	e.respondOrPark(interest, theirIBLT)
}

func (e *Engine) decodeIBLTFromName(name ndn.Name) (*iblt.IBLT, error) {
	if name.Size() <= e.cfg.SyncPrefix.Size() {
		return nil, fmt.Errorf("sync interest name %s has no IBLT component", name)
	}
	blob := name.Components[e.cfg.SyncPrefix.Size()].Value
	t := iblt.New(e.cfg.ExpectedNEntries)
	if err := t.Initialize(blob); err != nil {
		return nil, err
	}
	return t, nil
}

// respondOrPark answers a sync interest carrying theirIBLT: differences
// that decode cleanly are answered with just the names the peer is missing;
// differences that don't decode fall back to a full name-set reply once
// they are large enough (or both-sided-empty) to make individual-name
// recovery hopeless, and are parked otherwise.
func (e *Engine) respondOrPark(interest ndn.Interest, theirIBLT *iblt.IBLT) {
	diff := e.table.Difference(theirIBLT)
	positive, negative, ok := diff.ListEntries()
	threshold := e.cfg.ExpectedNEntries / 2

	if !ok {
		metrics.IBLTDecodeFailures.WithLabelValues("fullpsync").Inc()
		if len(positive)+len(negative) >= threshold || (len(positive) == 0 && len(negative) == 0) {
			e.respondFullNameSet(interest)
			return
		}
		e.parkInterest(interest, theirIBLT)
		return
	}

	names := e.namesForPositive(positive, negative)
	if len(names) == 0 {
		e.parkInterest(interest, theirIBLT)
		return
	}
	e.respondWithNames(interest, names)
}

func (e *Engine) namesForPositive(positive, negative []uint32) []ndn.Name {
	negSet := make(map[uint32]bool, len(negative))
	for _, k := range negative {
		negSet[k] = true
	}
	var names []ndn.Name
	for _, key := range positive {
		name, ok := e.names[key]
		if !ok {
			continue
		}
		if e.cfg.CanAddToSyncData != nil && !e.cfg.CanAddToSyncData(name, negSet) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func (e *Engine) respondWithNames(interest ndn.Interest, names []ndn.Name) {
	e.version++
	e.publisher.Publish(interest.Name, EncodeState(names), e.version, interest.Name, e.cfg.Sign)
}

func (e *Engine) respondFullNameSet(interest ndn.Interest) {
	e.respondWithNames(interest, e.PublishedNames())
}

func (e *Engine) parkInterest(interest ndn.Interest, theirIBLT *iblt.IBLT) {
	key := interest.Name.String()
	if _, exists := e.pending[key]; exists {
		return
	}
	lifetime := interest.LifetimeMs
	if lifetime <= 0 {
		lifetime = e.cfg.SyncInterestLifetimeMs
	}
	pe := &pendingEntry{interest: interest, theirIBLT: theirIBLT}
	pe.timer = e.face.CallLater(lifetime, func() {
		if pe.isRemoved {
			return
		}
		delete(e.pending, key)
	})
	e.pending[key] = pe
}

// satisfyPendingInterests re-runs the difference for every parked interest
// after a local IBLT change, answering (and un-parking) any that now
// resolve to a non-empty name set.
func (e *Engine) satisfyPendingInterests() {
	for key, pe := range e.pending {
		if pe.isRemoved {
			continue
		}
		diff := e.table.Difference(pe.theirIBLT)
		positive, negative, ok := diff.ListEntries()
		if !ok {
			continue
		}
		names := e.namesForPositive(positive, negative)
		if len(names) == 0 {
			continue
		}
		e.respondWithNames(pe.interest, names)
		pe.isRemoved = true
		pe.timer()
		delete(e.pending, key)
	}
}

func (e *Engine) handleSyncData(interest ndn.Interest, data ndn.Data) {
	if !e.enabled {
		return
	}
	raw, err := unframe(data.Content)
	if err != nil {
		e.log.Printf("unframe sync data %s: %v", data.Name, err)
		return
	}
	names, err := DecodeState(raw)
	if err != nil {
		e.log.Printf("decode PSyncState from %s: %v", data.Name, err)
		return
	}

	var accepted []ndn.Name
	for _, name := range names {
		if e.cfg.CanAddReceivedName != nil && !e.cfg.CanAddReceivedName(name) {
			continue
		}
		key := iblt.HashName(wire.EncodeName(name))
		if _, exists := e.names[key]; exists {
			continue
		}
		e.names[key] = name
		e.table.Insert(key)
		accepted = append(accepted, name)
	}

	if len(accepted) > 0 {
		e.satisfyPendingInterests()
		if e.onNamesUpdate != nil {
			e.onNamesUpdate(accepted)
		}
	}
	e.expressSyncInterest()
}
