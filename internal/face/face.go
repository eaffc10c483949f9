// Package face defines the Face/transport boundary the sync engines are
// built against and an in-process SimFace double used by their tests and
// by cmd/ndnsyncd's demo mode. A real network transport is out of scope
// here; this package only describes the shape the engines expect.
package face

import "github.com/ndnsync/ndnsync/internal/ndn"

// InterestID identifies one outstanding expressInterest call, for use with
// RemovePendingInterest.
type InterestID uint64

// PrefixID identifies one RegisterPrefix registration, for use with
// RemoveRegisteredPrefix.
type PrefixID uint64

// OnData is invoked when a Data packet satisfies an expressed Interest.
type OnData func(interest ndn.Interest, data ndn.Data)

// OnTimeout is invoked when no Data arrives before an Interest's lifetime
// elapses.
type OnTimeout func(interest ndn.Interest)

// OnNack is invoked when the network reports it cannot forward an Interest.
// Nothing in this core distinguishes Nack reasons; engines treat it like a
// timeout.
type OnNack func(interest ndn.Interest)

// OnInterest is invoked for every incoming Interest matching a registered
// prefix.
type OnInterest func(prefix ndn.Name, interest ndn.Interest)

// OnRegisterFail is invoked if a RegisterPrefix call could not be completed.
type OnRegisterFail func(prefix ndn.Name, reason string)

// Canceler cancels a callLater-scheduled closure; calling it after the
// closure has already fired is a no-op.
type Canceler func()

// Face is the single-threaded cooperative event loop boundary the sync
// engines are driven through: packet I/O and timers alike are suspension
// points whose callbacks are invoked back on this same loop.
// Implementations must never call back into the engine from a different
// goroutine than the one driving the loop.
type Face interface {
	ExpressInterest(interest ndn.Interest, onData OnData, onTimeout OnTimeout, onNack OnNack) InterestID
	RemovePendingInterest(id InterestID)

	RegisterPrefix(prefix ndn.Name, onInterest OnInterest, onFail OnRegisterFail) PrefixID
	RemoveRegisteredPrefix(id PrefixID)

	PutData(data ndn.Data)

	// CallLater schedules closure to run after delayMs on this Face's event
	// loop. The returned Canceler detaches the closure; calling it after
	// firing is a harmless no-op.
	CallLater(delayMs int64, closure func()) Canceler
}
