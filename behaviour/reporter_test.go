package behaviour_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bh "github.com/decentrust/decentrust/behaviour"
	"github.com/decentrust/decentrust/libs/log"
	tmmath "github.com/decentrust/decentrust/libs/math"
	"github.com/decentrust/decentrust/trust"
)

// TestMockReporter tests the MockReporter's ability to store reported
// peer behaviour in memory indexed by the peerID.
func TestMockReporter(t *testing.T) {
	var peerID bh.PeerID = "MockPeer"
	pr := bh.NewMockReporter()

	behaviours := pr.GetBehaviours(peerID)
	if len(behaviours) != 0 {
		t.Error("Expected to have no behaviours reported")
	}

	badMessage := bh.BadMessage(peerID, "bad message")
	require.NoError(t, pr.Report(badMessage))
	behaviours = pr.GetBehaviours(peerID)
	if len(behaviours) != 1 {
		t.Error("Expected the peer have one reported behaviour")
	}

	if behaviours[0] != badMessage {
		t.Error("Expected Bad Message to have been reported")
	}
}

type scriptItem struct {
	peerID    bh.PeerID
	behaviour bh.PeerBehaviour
}

// equalBehaviours returns true if a and b contain the same PeerBehaviours with
// the same frequencies and otherwise false.
func equalBehaviours(a []bh.PeerBehaviour, b []bh.PeerBehaviour) bool {
	aHistogram := map[bh.PeerBehaviour]int{}
	bHistogram := map[bh.PeerBehaviour]int{}

	for _, behaviour := range a {
		aHistogram[behaviour]++
	}

	for _, behaviour := range b {
		bHistogram[behaviour]++
	}

	if len(aHistogram) != len(bHistogram) {
		return false
	}

	for _, behaviour := range a {
		if aHistogram[behaviour] != bHistogram[behaviour] {
			return false
		}
	}

	for _, behaviour := range b {
		if bHistogram[behaviour] != aHistogram[behaviour] {
			return false
		}
	}

	return true
}

// TestEqualPeerBehaviours tests that equalBehaviours can tell that two slices
// of peer behaviours can be compared for the behaviours they contain and the
// frequencies that those behaviours occur.
func TestEqualPeerBehaviours(t *testing.T) {
	var (
		peerID        bh.PeerID = "MockPeer"
		consensusVote        = bh.ConsensusVote(peerID, "voted")
		blockPart            = bh.BlockPart(peerID, "blocked")
		equals               = []struct {
			left  []bh.PeerBehaviour
			right []bh.PeerBehaviour
		}{
			// Empty sets
			{[]bh.PeerBehaviour{}, []bh.PeerBehaviour{}},
			// Single behaviours
			{[]bh.PeerBehaviour{consensusVote}, []bh.PeerBehaviour{consensusVote}},
			// Equal Frequencies
			{[]bh.PeerBehaviour{consensusVote, consensusVote},
				[]bh.PeerBehaviour{consensusVote, consensusVote}},
			// Equal frequencies different orders
			{[]bh.PeerBehaviour{consensusVote, blockPart},
				[]bh.PeerBehaviour{blockPart, consensusVote}},
		}
		unequals = []struct {
			left  []bh.PeerBehaviour
			right []bh.PeerBehaviour
		}{
			// Comparing empty sets to non empty sets
			{[]bh.PeerBehaviour{}, []bh.PeerBehaviour{consensusVote}},
			// Different behaviours
			{[]bh.PeerBehaviour{consensusVote}, []bh.PeerBehaviour{blockPart}},
			// Same behaviour with different frequencies
			{[]bh.PeerBehaviour{consensusVote},
				[]bh.PeerBehaviour{consensusVote, consensusVote}},
		}
	)

	for _, test := range equals {
		if !equalBehaviours(test.left, test.right) {
			t.Errorf("Expected %#v and %#v to be equal", test.left, test.right)
		}
	}

	for _, test := range unequals {
		if equalBehaviours(test.left, test.right) {
			t.Errorf("Expected %#v and %#v to be unequal", test.left, test.right)
		}
	}
}

// TestPeerBehaviourConcurrency constructs a scenario in which
// multiple goroutines are using the same MockReporter instance.
// This test reproduces the conditions in which MockReporter will
// be used within a Reactor `Receive` method tests to ensure thread safety.
func TestMockPeerBehaviourReporterConcurrency(t *testing.T) {
	var (
		behaviourScript = []struct {
			peerID     bh.PeerID
			behaviours []bh.PeerBehaviour
		}{
			{"1", []bh.PeerBehaviour{bh.ConsensusVote("1", "")}},
			{"2", []bh.PeerBehaviour{bh.ConsensusVote("2", ""), bh.ConsensusVote("2", ""), bh.ConsensusVote("2", "")}},
			{"3", []bh.PeerBehaviour{bh.BlockPart("3", ""), bh.ConsensusVote("3", ""), bh.BlockPart("3", ""), bh.ConsensusVote("3", "")}},
			{"4", []bh.PeerBehaviour{bh.ConsensusVote("4", ""), bh.ConsensusVote("4", ""), bh.ConsensusVote("4", ""), bh.ConsensusVote("4", "")}},
			{"5", []bh.PeerBehaviour{bh.BlockPart("5", ""), bh.ConsensusVote("5", ""), bh.BlockPart("5", ""), bh.ConsensusVote("5", "")}},
		}
	)

	var receiveWg sync.WaitGroup
	pr := bh.NewMockReporter()
	scriptItems := make(chan scriptItem)
	done := make(chan int)
	numConsumers := 3
	for i := 0; i < numConsumers; i++ {
		receiveWg.Add(1)
		go func() {
			defer receiveWg.Done()
			for {
				select {
				case pb := <-scriptItems:
					_ = pr.Report(pb.behaviour)
				case <-done:
					return
				}
			}
		}()
	}

	var sendingWg sync.WaitGroup
	sendingWg.Add(1)
	go func() {
		defer sendingWg.Done()
		for _, item := range behaviourScript {
			for _, reason := range item.behaviours {
				scriptItems <- scriptItem{item.peerID, reason}
			}
		}
	}()

	sendingWg.Wait()

	for i := 0; i < numConsumers; i++ {
		done <- 1
	}

	receiveWg.Wait()

	for _, items := range behaviourScript {
		reported := pr.GetBehaviours(items.peerID)
		if !equalBehaviours(reported, items.behaviours) {
			t.Errorf("Expected peer %s to have behaved \nExpected: %#v \nGot %#v \n",
				items.peerID, items.behaviours, reported)
		}
	}
}

func newTrustReporter(t *testing.T) (*bh.TrustReporter, *trust.Exact[bh.PeerID, float64]) {
	t.Helper()
	tracker, err := trust.NewExact[bh.PeerID](tmmath.NonNegative[float64]())
	require.NoError(t, err)
	return bh.NewTrustReporter(log.TestingLogger(), tracker, bh.DefaultWeights()), tracker
}

func TestTrustReporterLocalBehaviour(t *testing.T) {
	r, tracker := newTrustReporter(t)

	for i := 0; i < 12; i++ {
		require.NoError(t, r.Report(bh.ConsensusVote("a", "voted")))
	}
	require.NoError(t, r.Report(bh.BlockPart("b", "sent part")))

	v, ok := tracker.RawLocal("a")
	require.True(t, ok)
	assert.Equal(t, 12.0, v)

	require.NoError(t, r.Report(bh.BadMessage("a", "garbage")))
	v, _ = tracker.RawLocal("a")
	assert.Equal(t, 2.0, v)

	require.NoError(t, r.Report(bh.MessageOutOfOrder("a", "early")))
	v, _ = tracker.RawLocal("a")
	assert.Equal(t, 0.0, v, "local trust floors at zero")

	n, _ := tracker.NormalizedLocal("b")
	assert.Equal(t, 1.0, n)
}

func TestTrustReporterGlobalBehaviour(t *testing.T) {
	r, tracker := newTrustReporter(t)

	require.NoError(t, r.Report(bh.Introduce("a", 3)))
	require.NoError(t, r.Report(bh.Introduce("b", 1)))

	// a carries 0.75 of our local trust and b 0.25
	require.NoError(t, r.Report(bh.Vouch("a", "c", 4)))
	v, _ := tracker.RawGlobal("c")
	assert.Equal(t, 3.0, v)

	require.NoError(t, r.Report(bh.Denounce("b", "c", 4)))
	v, _ = tracker.RawGlobal("c")
	assert.Equal(t, 2.0, v)

	require.NoError(t, r.Report(bh.Endorse("a", "d", 2)))
	v, _ = tracker.RawGlobal("d")
	assert.Equal(t, 1.5, v)

	require.NoError(t, r.Report(bh.Vouch("stranger", "c", 100)))
	v, _ = tracker.RawGlobal("c")
	assert.Equal(t, 2.0, v, "an unknown sender carries no weight")
}

func TestTrustReporterRejectsInvalidBehaviour(t *testing.T) {
	r, tracker := newTrustReporter(t)

	require.ErrorIs(t, r.Report(bh.PeerBehaviour{}), bh.ErrMissingPeer)
	require.ErrorIs(t, r.Report(bh.Vouch("", "c", 1)), bh.ErrMissingSender)
	require.ErrorIs(t, r.Report(bh.Vouch("a", "c", -1)), bh.ErrInvalidAmount)
	require.ErrorIs(t, r.Report(bh.Introduce("a", math.Inf(1))), bh.ErrInvalidAmount)

	assert.Equal(t, 0, tracker.LocalRawLen())
	assert.Equal(t, 0, tracker.GlobalRawLen())
}

func TestTrustReporterConcurrentStore(t *testing.T) {
	tracker, err := trust.NewExact[bh.PeerID](tmmath.NonNegative[float64]())
	require.NoError(t, err)
	store := trust.NewStore[bh.PeerID, float64](log.TestingLogger(), tracker)
	r := bh.NewTrustReporter(log.TestingLogger(), store, bh.DefaultWeights())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				assert.NoError(t, r.Report(bh.ConsensusVote("a", "")))
			}
		}()
	}
	wg.Wait()

	v, ok := store.RawLocal("a")
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestReportAllStopsAtFirstError(t *testing.T) {
	r, tracker := newTrustReporter(t)

	err := bh.ReportAll(r, []bh.PeerBehaviour{
		bh.ConsensusVote("a", ""),
		bh.Vouch("", "b", 1),
		bh.ConsensusVote("a", ""),
	})
	require.ErrorIs(t, err, bh.ErrMissingSender)
	assert.Contains(t, err.Error(), "#1")

	v, _ := tracker.RawLocal("a")
	assert.Equal(t, 1.0, v)
}

func TestNewBehaviour(t *testing.T) {
	testCases := []struct {
		kind      bh.Kind
		sender    bh.PeerID
		amount    float64
		global    bool
		expectErr error
	}{
		{bh.KindConsensusVote, "", 0, false, nil},
		{bh.KindBlockPart, "", 0, false, nil},
		{bh.KindBadMessage, "", 0, false, nil},
		{bh.KindMessageOutOfOrder, "", 0, false, nil},
		{bh.KindIntroduce, "", 0.5, false, nil},
		{bh.KindVouch, "s", 1, true, nil},
		{bh.KindDenounce, "s", 1, true, nil},
		{bh.KindEndorse, "s", 1, true, nil},
		{bh.KindVouch, "", 1, true, bh.ErrMissingSender},
		{bh.KindIntroduce, "", math.NaN(), false, bh.ErrInvalidAmount},
		{"gossip", "", 0, false, bh.ErrUnknownKind},
	}

	for _, tc := range testCases {
		pb, err := bh.New(tc.kind, tc.sender, "p", tc.amount, "why")
		if tc.expectErr != nil {
			require.ErrorIs(t, err, tc.expectErr, "%s", tc.kind)
			continue
		}
		require.NoError(t, err, "%s", tc.kind)
		assert.Equal(t, tc.kind, pb.Kind())
		assert.Equal(t, tc.global, pb.Global())
		assert.Equal(t, bh.PeerID("p"), pb.PeerID())
		assert.Equal(t, tc.sender, pb.Sender())
	}

	assert.Equal(t, "vouch(s->p)", bh.Vouch("s", "p", 1).String())
	assert.Equal(t, "block_part(p)", bh.BlockPart("p", "").String())
}
