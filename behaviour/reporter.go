package behaviour //nolint:misspell

import (
	"fmt"
	"math"
	"sync"

	"github.com/decentrust/decentrust/libs/log"
	"github.com/decentrust/decentrust/trust"
)

// Reporter provides an interface for reactors to report the behaviour
// of peers synchronously to other components.
type Reporter interface {
	Report(behaviour PeerBehaviour) error
}

// Weights is the local trust delta applied for each locally observed
// behaviour kind.
type Weights struct {
	ConsensusVote     float64 `mapstructure:"consensus_vote"`
	BlockPart         float64 `mapstructure:"block_part"`
	BadMessage        float64 `mapstructure:"bad_message"`
	MessageOutOfOrder float64 `mapstructure:"message_out_of_order"`
}

// DefaultWeights returns the default weights. Misbehaviour costs more than
// good behaviour earns.
func DefaultWeights() Weights {
	return Weights{
		ConsensusVote:     1,
		BlockPart:         1,
		BadMessage:        10,
		MessageOutOfOrder: 5,
	}
}

// ValidateBasic performs basic validation.
func (w Weights) ValidateBasic() error {
	for name, v := range map[string]float64{
		"consensus_vote":       w.ConsensusVote,
		"block_part":           w.BlockPart,
		"bad_message":          w.BadMessage,
		"message_out_of_order": w.MessageOutOfOrder,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidAmount, name, v)
		}
	}
	return nil
}

// TrustReporter reports peer behaviour to a trust tracker. Locally observed
// behaviour moves local trust by its weight; behaviour relayed by a sender
// moves global trust, weighted by the tracker by the sender's normalized
// local trust.
type TrustReporter struct {
	logger  log.Logger
	tracker trust.Tracker[PeerID, float64]
	weights Weights
}

// NewTrustReporter returns a new TrustReporter instance which wraps the
// tracker. Pass a *trust.Store when reporting from several goroutines.
func NewTrustReporter(logger log.Logger, tracker trust.Tracker[PeerID, float64], weights Weights) *TrustReporter {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &TrustReporter{
		logger:  logger,
		tracker: tracker,
		weights: weights,
	}
}

// Report applies the behaviour of a peer to the tracker.
func (r *TrustReporter) Report(behaviour PeerBehaviour) error {
	if err := behaviour.ValidateBasic(); err != nil {
		return err
	}
	peerID := behaviour.peerID

	switch reason := behaviour.reason.(type) {
	case consensusVote:
		return r.tracker.UpdateLocal(peerID, r.weights.ConsensusVote, trust.Increment)
	case blockPart:
		return r.tracker.UpdateLocal(peerID, r.weights.BlockPart, trust.Increment)
	case badMessage:
		r.logger.Info("peer sent bad message", "peer", peerID, "explanation", reason.explanation)
		return r.tracker.UpdateLocal(peerID, r.weights.BadMessage, trust.Decrement)
	case messageOutOfOrder:
		r.logger.Info("peer sent message out of order", "peer", peerID, "explanation", reason.explanation)
		return r.tracker.UpdateLocal(peerID, r.weights.MessageOutOfOrder, trust.Decrement)
	case introduce:
		return r.tracker.InitLocal(peerID, reason.trust)
	case vouch:
		return r.tracker.UpdateGlobal(behaviour.sender, peerID, reason.amount, trust.Increment)
	case denounce:
		return r.tracker.UpdateGlobal(behaviour.sender, peerID, reason.amount, trust.Decrement)
	case endorse:
		return r.tracker.InitGlobal(behaviour.sender, peerID, reason.trust)
	default:
		return ErrUnknownBehavior
	}
}

// MockReporter is a concrete implementation of the Reporter
// interface used in reactor tests to ensure reactors report the correct
// behaviour in manufactured scenarios.
type MockReporter struct {
	mtx sync.RWMutex
	pb  map[PeerID][]PeerBehaviour
}

// NewMockReporter returns a Reporter which records all reported
// behaviours in memory.
func NewMockReporter() *MockReporter {
	return &MockReporter{
		pb: map[PeerID][]PeerBehaviour{},
	}
}

// Report stores the PeerBehaviour produced by the peer identified by peerID.
func (mpbr *MockReporter) Report(behaviour PeerBehaviour) error {
	mpbr.mtx.Lock()
	defer mpbr.mtx.Unlock()
	mpbr.pb[behaviour.peerID] = append(mpbr.pb[behaviour.peerID], behaviour)

	return nil
}

// GetBehaviours returns all behaviours reported on the peer identified by peerID.
func (mpbr *MockReporter) GetBehaviours(peerID PeerID) []PeerBehaviour {
	mpbr.mtx.RLock()
	defer mpbr.mtx.RUnlock()
	if items, ok := mpbr.pb[peerID]; ok {
		result := make([]PeerBehaviour, len(items))
		copy(result, items)

		return result
	}

	return []PeerBehaviour{}
}

// ReportAll reports every behaviour in order and stops at the first error.
func ReportAll(r Reporter, behaviours []PeerBehaviour) error {
	for i, b := range behaviours {
		if err := r.Report(b); err != nil {
			return fmt.Errorf("behaviour #%d %s: %w", i, b, err)
		}
	}
	return nil
}
