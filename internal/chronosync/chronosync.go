package chronosync

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ndnsync/ndnsync/internal/digesttree"
	"github.com/ndnsync/ndnsync/internal/face"
	"github.com/ndnsync/ndnsync/internal/metrics"
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/ndnlog"
	"github.com/ndnsync/ndnsync/internal/store"
)

// recoveryDelayMs is how long a participant waits, after receiving a sync
// interest for a digest it has never held, before sending its own recovery
// interest for that digest.
const recoveryDelayMs = 2000

// newcomerFreshnessMs is the freshness period attached to a reply to a
// newcomer's "00" sync interest; such replies may legitimately differ
// between peers, so they are not cached for long.
const newcomerFreshnessMs = 1000

// Default recovery-interest issuance rate, used when Config leaves
// RecoveryRatePerSec unset. Bounds how fast this participant will fire
// recovery interests for distinct unknown digests: a token-bucket limiter
// guarding a hot outbound path against pile-ups.
const (
	defaultRecoveryRatePerSec = 5
	defaultRecoveryBurst      = 5
)

// Signer signs data in place, filling in SignatureInfo and SignatureValue.
// It stands in for a key-management collaborator outside this package's
// concern; a nil Signer leaves packets unsigned, which is fine for the
// in-process demo harness.
type Signer func(data *ndn.Data) error

// OnInitialized is invoked once, the first time this node's own publication
// is added to the digest tree (either as a genuine newcomer, or immediately
// if it is the first participant to publish with nobody to sync against
// yet).
type OnInitialized func()

// OnReceivedSyncState is invoked after every incoming sync Data has been
// applied, whether or not it changed the digest tree. On the ordinary path
// updates holds only the entries that advanced a node's sequence number (it
// may be empty); on the first Data a newcomer applies, it holds every entry
// that Data carried. isRecovery is true when the triggering interest used
// the recovery or newcomer ("00") path rather than ordinary log replay.
type OnReceivedSyncState func(updates []Update, isRecovery bool)

// Config names a ChronoSync group and this participant's identity within
// it.
type Config struct {
	// BroadcastPrefix is the shared name sync interests are exchanged
	// under, e.g. /ndn/broadcast/ndnsync/demo.
	BroadcastPrefix ndn.Name
	// ApplicationDataPrefix identifies this participant's own published
	// data within the group.
	ApplicationDataPrefix ndn.Name
	// SessionNo is this participant's session identifier, normally
	// randomized per process start.
	SessionNo uint64

	SyncLifetimeMs     int64
	RecoveryLifetimeMs int64

	Sign Signer

	// Store, if non-nil, persists this participant's own (SessionNo,
	// SequenceNo) position so a restart resumes numbering instead of
	// rejoining the group from scratch. Optional; a nil Store disables
	// persistence entirely.
	Store *store.Store

	// RecoveryRatePerSec and RecoveryBurst bound how often this
	// participant will issue a recovery interest for a newly-seen unknown
	// digest; 0 uses defaultRecoveryRatePerSec / defaultRecoveryBurst.
	RecoveryRatePerSec float64
	RecoveryBurst      int
}

type pendingRecovery struct {
	interests []ndn.Interest
	timer     face.Canceler
}

// Node runs one participant's side of the ChronoSync2013 protocol: it owns
// a DigestTree, a digest log, and exactly one outstanding sync interest at
// all times, all driven through a Face under a single-threaded cooperative
// model. A Node must only be driven from the event-loop goroutine that owns
// its Face.
type Node struct {
	face face.Face
	cfg  Config
	log  *ndnlog.Logger

	// instanceID tags every log line from this Node, distinguishing
	// multiple engine instances that happen to share an
	// ApplicationDataPrefix (e.g. a demo harness running several
	// participants in one process).
	instanceID string

	tree       *digesttree.Tree
	digestLog  *digestLog
	sequenceNo int64 // -1 until this participant's first publication

	enabled bool

	prefixID        face.PrefixID
	outstandingID   face.InterestID
	outstandingRoot string

	recoveries      map[string]*pendingRecovery
	recoveryLimiter *rate.Limiter

	onInitialized       OnInitialized
	onReceivedSyncState OnReceivedSyncState
}

// New constructs a Node. Call Start to register the broadcast prefix and
// express the initial sync interest.
func New(f face.Face, cfg Config, onInitialized OnInitialized, onReceivedSyncState OnReceivedSyncState) *Node {
	ratePerSec := cfg.RecoveryRatePerSec
	if ratePerSec <= 0 {
		ratePerSec = defaultRecoveryRatePerSec
	}
	burst := cfg.RecoveryBurst
	if burst <= 0 {
		burst = defaultRecoveryBurst
	}
	instanceID := uuid.New().String()
	n := &Node{
		face:                f,
		cfg:                 cfg,
		log:                 ndnlog.New("chronosync").Named(cfg.ApplicationDataPrefix.String()).Named(instanceID),
		instanceID:          instanceID,
		tree:                digesttree.New(),
		digestLog:           newDigestLog(digesttree.EmptyRoot),
		sequenceNo:          -1,
		enabled:             true,
		recoveries:          make(map[string]*pendingRecovery),
		recoveryLimiter:     rate.NewLimiter(rate.Limit(ratePerSec), burst),
		onInitialized:       onInitialized,
		onReceivedSyncState: onReceivedSyncState,
	}
	if sessionNo, sequenceNo, found, err := cfg.Store.LoadChronoSyncPosition(cfg.ApplicationDataPrefix.String()); err != nil {
		n.log.Printf("load persisted position: %v", err)
	} else if found && sessionNo == cfg.SessionNo {
		n.sequenceNo = sequenceNo
	}
	return n
}

// Start registers the broadcast prefix and expresses this node's first sync
// interest, which will carry the empty-tree root "00" until a sync Data
// teaches it about the rest of the group (or it publishes first itself).
func (n *Node) Start() {
	n.prefixID = n.face.RegisterPrefix(n.cfg.BroadcastPrefix, n.handleSyncInterest, nil)
	n.issueSyncInterest()
}

// Shutdown stops all callback handling and unregisters the broadcast
// prefix. Calling PublishNextSequenceNo afterward is undefined behavior.
func (n *Node) Shutdown() {
	if !n.enabled {
		return
	}
	n.enabled = false
	n.face.RemoveRegisteredPrefix(n.prefixID)
	if n.outstandingID != 0 {
		n.face.RemovePendingInterest(n.outstandingID)
	}
	for _, pr := range n.recoveries {
		pr.timer()
	}
	n.recoveries = nil
}

// Root returns the current digest tree root.
func (n *Node) Root() string {
	return n.tree.Root()
}

// SequenceNo returns this participant's own latest published sequence
// number, or -1 if it has never published.
func (n *Node) SequenceNo() int64 {
	return n.sequenceNo
}

// Tree exposes the underlying digest tree for inspection (e.g. by
// cmd/ndnsyncd's status endpoint). Callers must not mutate it.
func (n *Node) Tree() *digesttree.Tree {
	return n.tree
}

// PublishNextSequenceNo increments this participant's sequence number,
// publishes it as a signed sync Data satisfying whichever peers are
// currently holding an interest for the pre-publish root, applies the
// update to the local tree, and expresses a new sync interest for the new
// root.
func (n *Node) PublishNextSequenceNo() error {
	oldRoot := n.tree.Root()
	firstJoin := oldRoot == digesttree.EmptyRoot
	n.sequenceNo++
	self := Update{DataPrefix: n.cfg.ApplicationDataPrefix, SessionNo: n.cfg.SessionNo, SequenceNo: uint64(n.sequenceNo)}
	n.tree.Update(self.DataPrefix.String(), self.SessionNo, self.SequenceNo)
	n.digestLog.append(n.tree.Root(), []Update{self})
	n.updateTreeSizeMetric()
	if err := n.cfg.Store.SaveChronoSyncPosition(n.cfg.ApplicationDataPrefix.String(), n.cfg.SessionNo, n.sequenceNo); err != nil {
		n.log.Printf("persist position: %v", err)
	}

	data := ndn.NewData(n.cfg.BroadcastPrefix.AppendGeneric(oldRoot))
	data.Content = encodeSyncState([]Update{self})
	if n.cfg.Sign != nil {
		if err := n.cfg.Sign(&data); err != nil {
			n.log.Printf("publish: signing failed, dropping publication: %v", err)
			return err
		}
	}
	n.face.PutData(data)

	n.checkPendingRecoveries()
	n.issueSyncInterest()

	if firstJoin && n.onInitialized != nil {
		n.onInitialized()
	}
	return nil
}

// issueSyncInterest cancels any outstanding sync interest and expresses a
// fresh one for the current root. Exactly one sync interest is outstanding
// at any time.
func (n *Node) issueSyncInterest() {
	if !n.enabled {
		return
	}
	if n.outstandingID != 0 {
		n.face.RemovePendingInterest(n.outstandingID)
	}
	root := n.tree.Root()
	interest := ndn.NewInterest(n.cfg.BroadcastPrefix.AppendGeneric(root))
	interest.LifetimeMs = n.cfg.SyncLifetimeMs
	n.outstandingRoot = root
	n.outstandingID = n.face.ExpressInterest(interest, n.handleSyncData, n.handleSyncTimeout, n.handleSyncTimeout)
	metrics.SyncInterestsSent.WithLabelValues("chronosync", "sync").Inc()
}

// handleSyncTimeout reissues the sync interest if the root it was about has
// not since changed (our own publication or another peer's sync Data would
// have already replaced it); a root mismatch means a newer interest has
// already superseded this one, so the timeout is simply dropped.
func (n *Node) handleSyncTimeout(interest ndn.Interest) {
	if !n.enabled {
		return
	}
	if n.outstandingRoot != n.tree.Root() {
		return
	}
	n.issueSyncInterest()
}

// handleSyncInterest answers an incoming sync/recovery interest. Order
// matters: the recovery and newcomer paths are checked before the ordinary
// current-root / digest-log paths.
func (n *Node) handleSyncInterest(prefix ndn.Name, interest ndn.Interest) {
	if !n.enabled {
		return
	}
	if interest.Name.Size() <= n.cfg.BroadcastPrefix.Size() {
		n.log.Printf("sync interest %s has no digest component, dropping", interest.Name)
		return
	}
	rest := interest.Name.Components[n.cfg.BroadcastPrefix.Size():]

	switch {
	case len(rest) == 2 && rest[0].String() == "recovery":
		// Answered only by a peer whose own log holds the digest.
		if _, known := n.digestLog.find(rest[1].String()); known {
			n.respondFullState(interest, false)
		}
	case len(rest) == 1 && rest[0].String() == digesttree.EmptyRoot:
		n.respondFullState(interest, true)
	case len(rest) == 1:
		n.handleDigestInterest(rest[0].String(), interest)
	default:
		n.log.Printf("malformed sync interest name %s, dropping", interest.Name)
	}
}

func (n *Node) handleDigestInterest(digest string, interest ndn.Interest) {
	if digest == n.tree.Root() {
		// Parked implicitly: the Face's own pending-interest bookkeeping
		// holds this request until our root changes and PublishNextSequenceNo
		// (or a later sync Data) satisfies it by name.
		return
	}
	if updates, ok := n.digestLog.updatesSince(digest); ok {
		n.respondWithUpdates(interest, updates, -1)
		return
	}
	n.armRecovery(digest, interest)
}

// armRecovery schedules digest's 2-second recovery timer the first time it
// is seen; subsequent requests for the same unknown digest are folded into
// the same wait.
func (n *Node) armRecovery(digest string, interest ndn.Interest) {
	if pr, ok := n.recoveries[digest]; ok {
		pr.interests = append(pr.interests, interest)
		return
	}
	pr := &pendingRecovery{interests: []ndn.Interest{interest}}
	pr.timer = n.face.CallLater(recoveryDelayMs, func() { n.fireRecovery(digest) })
	n.recoveries[digest] = pr
}

// fireRecovery runs when a digest's recovery timer elapses: if the digest
// became known in the meantime (checkPendingRecoveries would normally have
// already drained it, but a final check here is cheap insurance against
// ordering races), the parked requests are served from the log; otherwise a
// recovery interest is sent.
func (n *Node) fireRecovery(digest string) {
	if !n.enabled {
		return
	}
	pr, ok := n.recoveries[digest]
	if !ok {
		return
	}
	delete(n.recoveries, digest)
	if updates, ok := n.digestLog.updatesSince(digest); ok {
		for _, req := range pr.interests {
			n.respondWithUpdates(req, updates, -1)
		}
		return
	}

	if !n.recoveryLimiter.Allow() {
		pr.timer = n.face.CallLater(recoveryDelayMs, func() { n.fireRecovery(digest) })
		n.recoveries[digest] = pr
		return
	}

	metrics.RecoveryTriggered.WithLabelValues("chronosync").Inc()
	name := n.cfg.BroadcastPrefix.AppendGeneric("recovery").AppendGeneric(digest)
	interest := ndn.NewInterest(name)
	interest.LifetimeMs = n.cfg.RecoveryLifetimeMs
	n.face.ExpressInterest(interest, n.handleSyncData, n.handleRecoveryTimeout, n.handleRecoveryTimeout)
	metrics.SyncInterestsSent.WithLabelValues("chronosync", "recovery").Inc()
}

// handleRecoveryTimeout drops a timed-out recovery interest; recovery is
// never retried by a timeout handler, only re-triggered by a future sync
// interest for the same unknown digest.
func (n *Node) handleRecoveryTimeout(interest ndn.Interest) {
	n.log.Printf("recovery interest %s timed out, dropping", interest.Name)
}

// checkPendingRecoveries serves any parked recovery request whose digest
// has just become reachable from the log, called after every digest-log
// append.
func (n *Node) checkPendingRecoveries() {
	for digest, pr := range n.recoveries {
		updates, ok := n.digestLog.updatesSince(digest)
		if !ok {
			continue
		}
		for _, req := range pr.interests {
			n.respondWithUpdates(req, updates, -1)
		}
		pr.timer()
		delete(n.recoveries, digest)
	}
}

// respondFullState replies to a recovery or newcomer interest with the
// entire current tree state, collapsed to one Update per participant. An
// empty tree has nothing to report, so no reply is sent.
func (n *Node) respondFullState(interest ndn.Interest, isNewcomer bool) {
	nodes := n.tree.Nodes()
	if len(nodes) == 0 {
		return
	}
	updates := make([]Update, len(nodes))
	for i, node := range nodes {
		updates[i] = Update{
			DataPrefix: ndn.ParseURI(node.DataPrefix),
			SessionNo:  node.SessionNo,
			SequenceNo: node.SequenceNo,
		}
	}
	freshness := int64(-1)
	if isNewcomer {
		freshness = newcomerFreshnessMs
	}
	n.respondWithUpdates(interest, updates, freshness)
}

func (n *Node) respondWithUpdates(interest ndn.Interest, updates []Update, freshnessMs int64) {
	data := ndn.NewData(interest.Name)
	data.MetaInfo.FreshnessPeriodMs = freshnessMs
	data.Content = encodeSyncState(updates)
	if n.cfg.Sign != nil {
		if err := n.cfg.Sign(&data); err != nil {
			n.log.Printf("respond: signing failed, dropping reply to %s: %v", interest.Name, err)
			return
		}
	}
	n.face.PutData(data)
}

func (n *Node) isRecoveryOrNewcomerName(name ndn.Name) bool {
	if name.Size() <= n.cfg.BroadcastPrefix.Size() {
		return false
	}
	rest := name.Components[n.cfg.BroadcastPrefix.Size():]
	if len(rest) == 2 && rest[0].String() == "recovery" {
		return true
	}
	return len(rest) == 1 && rest[0].String() == digesttree.EmptyRoot
}

// handleSyncData applies an incoming sync Data's SyncState payload, whether
// it arrived answering our standing sync interest or a one-off recovery
// interest (both are routed here: both carry the same payload shape).
func (n *Node) handleSyncData(interest ndn.Interest, data ndn.Data) {
	if !n.enabled {
		return
	}
	updates, err := decodeSyncState(data.Content)
	if err != nil {
		n.log.Printf("decode sync data %s: %v", data.Name, err)
		return
	}

	if n.tree.Root() == digesttree.EmptyRoot {
		n.applyInitialOnData(updates)
		return
	}

	isRecovery := n.isRecoveryOrNewcomerName(interest.Name)
	changed := n.applyReceivedUpdates(updates)
	if len(changed) > 0 {
		n.digestLog.append(n.tree.Root(), changed)
		n.updateTreeSizeMetric()
		n.checkPendingRecoveries()
	}
	if n.onReceivedSyncState != nil {
		n.onReceivedSyncState(changed, isRecovery)
	}
	n.issueSyncInterest()
}

func (n *Node) applyReceivedUpdates(updates []Update) []Update {
	var changed []Update
	for _, u := range updates {
		if n.tree.Update(u.DataPrefix.String(), u.SessionNo, u.SequenceNo) {
			changed = append(changed, u)
		}
	}
	return changed
}

// applyInitialOnData runs the newcomer path on the first received sync
// Data: apply the peer's state, broadcast our own (joining if we are not
// yet a member) under the root we held before adding it, and invoke
// onInitialized exactly once, the first time we join. Our own entry is
// broadcast only when it changed the tree.
func (n *Node) applyInitialOnData(updates []Update) {
	changed := n.applyReceivedUpdates(updates)
	if len(changed) > 0 {
		n.digestLog.append(n.tree.Root(), changed)
	}

	rootBeforeSelf := n.tree.Root()
	_, alreadyMember := n.tree.SequenceNo(n.cfg.ApplicationDataPrefix.String(), n.cfg.SessionNo)
	firstJoin := !alreadyMember
	if firstJoin && n.sequenceNo < 0 {
		n.sequenceNo = 0
	}
	self := Update{DataPrefix: n.cfg.ApplicationDataPrefix, SessionNo: n.cfg.SessionNo, SequenceNo: uint64(n.sequenceNo)}
	if n.tree.Update(self.DataPrefix.String(), self.SessionNo, self.SequenceNo) {
		n.digestLog.append(n.tree.Root(), []Update{self})
		data := ndn.NewData(n.cfg.BroadcastPrefix.AppendGeneric(rootBeforeSelf))
		data.Content = encodeSyncState([]Update{self})
		var err error
		if n.cfg.Sign != nil {
			err = n.cfg.Sign(&data)
		}
		if err != nil {
			n.log.Printf("join: signing failed, dropping broadcast: %v", err)
		} else {
			n.face.PutData(data)
		}
	}
	n.updateTreeSizeMetric()

	if n.onReceivedSyncState != nil {
		n.onReceivedSyncState(updates, true)
	}

	n.checkPendingRecoveries()
	n.issueSyncInterest()

	if firstJoin && n.onInitialized != nil {
		n.onInitialized()
	}
}

func (n *Node) updateTreeSizeMetric() {
	metrics.DigestTreeSize.WithLabelValues(n.cfg.ApplicationDataPrefix.String()).Set(float64(len(n.tree.Nodes())))
}

func (n *Node) String() string {
	return fmt.Sprintf("chronosync.Node{prefix=%s, root=%s, seq=%d}", n.cfg.ApplicationDataPrefix, n.tree.Root(), n.sequenceNo)
}
