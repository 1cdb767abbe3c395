package behaviour //nolint:misspell

import (
	"errors"
	"fmt"
	"math"
)

// PeerID identifies a peer in the trust tracker.
type PeerID string

// Kind names a behaviour in scenario files and logs.
type Kind string

const (
	KindConsensusVote     Kind = "consensus_vote"
	KindBlockPart         Kind = "block_part"
	KindBadMessage        Kind = "bad_message"
	KindMessageOutOfOrder Kind = "message_out_of_order"
	KindIntroduce         Kind = "introduce"
	KindVouch             Kind = "vouch"
	KindDenounce          Kind = "denounce"
	KindEndorse           Kind = "endorse"
)

var (
	ErrUnknownKind     = errors.New("unknown behaviour kind")
	ErrMissingPeer     = errors.New("behaviour has no peer")
	ErrMissingSender   = errors.New("behaviour has no sender")
	ErrInvalidAmount   = errors.New("behaviour amount must be finite and non-negative")
	ErrUnknownBehavior = errors.New("unknown reason reported")
)

// PeerBehaviour is a struct describing a behaviour a peer performed.
// `peerID` identifies the peer and reason characterizes the specific
// behaviour performed by the peer. Behaviours heard from another peer carry
// that peer as `sender`.
type PeerBehaviour struct {
	peerID PeerID
	sender PeerID
	reason interface{}
}

type badMessage struct {
	explanation string
}

// BadMessage returns a badMessage PeerBehaviour.
func BadMessage(peerID PeerID, explanation string) PeerBehaviour {
	return PeerBehaviour{peerID: peerID, reason: badMessage{explanation}}
}

type messageOutOfOrder struct {
	explanation string
}

// MessageOutOfOrder returns a messageOutOfOrder PeerBehaviour.
func MessageOutOfOrder(peerID PeerID, explanation string) PeerBehaviour {
	return PeerBehaviour{peerID: peerID, reason: messageOutOfOrder{explanation}}
}

type consensusVote struct {
	explanation string
}

// ConsensusVote returns a consensusVote PeerBehaviour.
func ConsensusVote(peerID PeerID, explanation string) PeerBehaviour {
	return PeerBehaviour{peerID: peerID, reason: consensusVote{explanation}}
}

type blockPart struct {
	explanation string
}

// BlockPart returns blockPart PeerBehaviour.
func BlockPart(peerID PeerID, explanation string) PeerBehaviour {
	return PeerBehaviour{peerID: peerID, reason: blockPart{explanation}}
}

type introduce struct {
	trust float64
}

// Introduce sets our own trust in a newly met peer.
func Introduce(peerID PeerID, trust float64) PeerBehaviour {
	return PeerBehaviour{peerID: peerID, reason: introduce{trust}}
}

type vouch struct {
	amount float64
}

// Vouch returns a PeerBehaviour in which sender speaks for peerID.
func Vouch(sender, peerID PeerID, amount float64) PeerBehaviour {
	return PeerBehaviour{peerID: peerID, sender: sender, reason: vouch{amount}}
}

type denounce struct {
	amount float64
}

// Denounce returns a PeerBehaviour in which sender speaks against peerID.
func Denounce(sender, peerID PeerID, amount float64) PeerBehaviour {
	return PeerBehaviour{peerID: peerID, sender: sender, reason: denounce{amount}}
}

type endorse struct {
	trust float64
}

// Endorse seeds the global trust sender reports for peerID.
func Endorse(sender, peerID PeerID, trust float64) PeerBehaviour {
	return PeerBehaviour{peerID: peerID, sender: sender, reason: endorse{trust}}
}

// PeerID returns the peer the behaviour is about.
func (pb PeerBehaviour) PeerID() PeerID { return pb.peerID }

// Sender returns the reporting peer, or "" for behaviours we observed
// ourselves.
func (pb PeerBehaviour) Sender() PeerID { return pb.sender }

// Kind returns the behaviour kind.
func (pb PeerBehaviour) Kind() Kind {
	switch pb.reason.(type) {
	case consensusVote:
		return KindConsensusVote
	case blockPart:
		return KindBlockPart
	case badMessage:
		return KindBadMessage
	case messageOutOfOrder:
		return KindMessageOutOfOrder
	case introduce:
		return KindIntroduce
	case vouch:
		return KindVouch
	case denounce:
		return KindDenounce
	case endorse:
		return KindEndorse
	}
	return ""
}

// Global reports whether the behaviour affects global trust.
func (pb PeerBehaviour) Global() bool {
	switch pb.reason.(type) {
	case vouch, denounce, endorse:
		return true
	}
	return false
}

func (pb PeerBehaviour) String() string {
	if pb.sender != "" {
		return fmt.Sprintf("%s(%s->%s)", pb.Kind(), pb.sender, pb.peerID)
	}
	return fmt.Sprintf("%s(%s)", pb.Kind(), pb.peerID)
}

// ValidateBasic performs basic validation.
func (pb PeerBehaviour) ValidateBasic() error {
	if pb.peerID == "" {
		return ErrMissingPeer
	}
	if pb.Kind() == "" {
		return ErrUnknownBehavior
	}
	if pb.Global() && pb.sender == "" {
		return fmt.Errorf("%w: %s", ErrMissingSender, pb)
	}
	var amount float64
	switch r := pb.reason.(type) {
	case introduce:
		amount = r.trust
	case vouch:
		amount = r.amount
	case denounce:
		amount = r.amount
	case endorse:
		amount = r.trust
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return nil
}

// New builds the behaviour of the given kind. explanation is used by the
// locally observed kinds, amount by the others; sender is required for
// global kinds.
func New(kind Kind, sender, peerID PeerID, amount float64, explanation string) (PeerBehaviour, error) {
	var pb PeerBehaviour
	switch kind {
	case KindConsensusVote:
		pb = ConsensusVote(peerID, explanation)
	case KindBlockPart:
		pb = BlockPart(peerID, explanation)
	case KindBadMessage:
		pb = BadMessage(peerID, explanation)
	case KindMessageOutOfOrder:
		pb = MessageOutOfOrder(peerID, explanation)
	case KindIntroduce:
		pb = Introduce(peerID, amount)
	case KindVouch:
		pb = Vouch(sender, peerID, amount)
	case KindDenounce:
		pb = Denounce(sender, peerID, amount)
	case KindEndorse:
		pb = Endorse(sender, peerID, amount)
	default:
		return PeerBehaviour{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return pb, pb.ValidateBasic()
}
