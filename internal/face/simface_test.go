package face

import (
	"testing"

	"github.com/ndnsync/ndnsync/internal/ndn"
)

func TestSimFaceDeliversInterestToRegisteredPrefix(t *testing.T) {
	clock := NewClock()
	hub := NewHub(clock)
	consumer := hub.NewFace("consumer")
	producer := hub.NewFace("producer")

	var gotName ndn.Name
	producer.RegisterPrefix(ndn.ParseURI("/a"), func(prefix ndn.Name, interest ndn.Interest) {
		gotName = interest.Name
		producer.PutData(ndn.NewData(interest.Name))
	}, nil)

	var dataReceived bool
	interest := ndn.NewInterest(ndn.ParseURI("/a/b"))
	consumer.ExpressInterest(interest, func(i ndn.Interest, d ndn.Data) {
		dataReceived = true
	}, nil, nil)

	if !gotName.Equal(ndn.ParseURI("/a/b")) {
		t.Fatalf("producer did not see the expressed interest name: got %s", gotName)
	}
	if !dataReceived {
		t.Fatal("consumer never received the Data satisfying its Interest")
	}
}

func TestSimFaceTimesOutWithoutAResponse(t *testing.T) {
	clock := NewClock()
	hub := NewHub(clock)
	consumer := hub.NewFace("consumer")
	hub.NewFace("producer") // registers nothing, so nothing answers

	interest := ndn.NewInterest(ndn.ParseURI("/nobody/home"))
	interest.LifetimeMs = 1000

	var timedOut bool
	consumer.ExpressInterest(interest, nil, func(i ndn.Interest) { timedOut = true }, nil)

	clock.Advance(999)
	if timedOut {
		t.Fatal("timeout fired before the Interest's lifetime elapsed")
	}
	clock.Advance(2)
	if !timedOut {
		t.Fatal("timeout did not fire after the Interest's lifetime elapsed")
	}
}

func TestSimFaceRemovePendingInterestSuppressesTimeout(t *testing.T) {
	clock := NewClock()
	hub := NewHub(clock)
	consumer := hub.NewFace("consumer")

	interest := ndn.NewInterest(ndn.ParseURI("/a"))
	interest.LifetimeMs = 500
	var timedOut bool
	id := consumer.ExpressInterest(interest, nil, func(i ndn.Interest) { timedOut = true }, nil)
	consumer.RemovePendingInterest(id)

	clock.Advance(1000)
	if timedOut {
		t.Fatal("timeout should not fire for a removed pending interest")
	}
}

func TestClockAdvanceRunsTimersInOrderIncludingRescheduled(t *testing.T) {
	clock := NewClock()
	var order []int
	clock.After(30, func() { order = append(order, 3) })
	clock.After(10, func() {
		order = append(order, 1)
		clock.After(5, func() { order = append(order, 2) }) // fires at t=15
	})

	clock.Advance(100)
	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
