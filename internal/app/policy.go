package app

import "fmt"

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickPeer
)

// Policy decides what happens when a peer's outbound queue is full.
type Policy interface {
	OnBackPressure(target *Conn) BackpressureAction
}

type DropPolicy struct{}

func (DropPolicy) OnBackPressure(*Conn) BackpressureAction { return DropFrame }

type KickPolicy struct{}

func (KickPolicy) OnBackPressure(*Conn) BackpressureAction { return KickPeer }

func PolicyFromName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
