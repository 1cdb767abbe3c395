// Package scenario loads TOML scripts of peer behaviour that the CLI
// replays against a trust tracker.
//
//	name  = "gossip"
//	peers = ["a", "b", "c"]
//
//	[[event]]
//	behaviour = "introduce"
//	peer      = "a"
//	amount    = 3.0
//
//	[[event]]
//	behaviour = "vouch"
//	sender    = "a"
//	peer      = "c"
//	amount    = 4.0
//	repeat    = 2
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	bh "github.com/decentrust/decentrust/behaviour"
)

var ErrEmpty = errors.New("scenario has no events")

// Scenario represents a TOML behaviour script.
type Scenario struct {
	// Name is a label for logs and reports.
	Name string `toml:"name"`

	// Peers fixes the order peers are reported in. Peers that appear only
	// in events are appended in sorted order by AllPeers.
	Peers []string `toml:"peers"`

	// Events are applied in order.
	Events []Event `toml:"event"`
}

// Event is a single behaviour, applied Repeat times.
type Event struct {
	Behaviour   string  `toml:"behaviour"`
	Peer        string  `toml:"peer"`
	Sender      string  `toml:"sender,omitempty"`
	Amount      float64 `toml:"amount,omitempty"`
	Explanation string  `toml:"explanation,omitempty"`

	// Repeat defaults to 1.
	Repeat int `toml:"repeat,omitempty"`
}

// PeerBehaviour converts the event into a peer behaviour.
func (e Event) PeerBehaviour() (bh.PeerBehaviour, error) {
	return bh.New(bh.Kind(e.Behaviour), bh.PeerID(e.Sender), bh.PeerID(e.Peer), e.Amount, e.Explanation)
}

func (e Event) times() int {
	if e.Repeat == 0 {
		return 1
	}
	return e.Repeat
}

// Load loads a scenario from a file.
func Load(file string) (*Scenario, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario %q: %w", file, err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %q: %w", file, err)
	}
	return s, nil
}

// Decode reads and validates a scenario. Unknown keys are rejected so that
// typos do not silently drop events.
func Decode(r io.Reader) (*Scenario, error) {
	s := &Scenario{}
	md, err := toml.NewDecoder(r).Decode(s)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save saves the scenario to a file.
func (s Scenario) Save(file string) error {
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create scenario file %q: %w", file, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}

// Validate checks every event and the peer list.
func (s Scenario) Validate() error {
	if len(s.Events) == 0 {
		return ErrEmpty
	}
	seen := make(map[string]struct{}, len(s.Peers))
	for _, p := range s.Peers {
		if p == "" {
			return errors.New("empty peer in peers list")
		}
		if _, ok := seen[p]; ok {
			return fmt.Errorf("duplicate peer %q", p)
		}
		seen[p] = struct{}{}
	}
	for i, e := range s.Events {
		if e.Repeat < 0 {
			return fmt.Errorf("event #%d: negative repeat %d", i, e.Repeat)
		}
		if _, err := e.PeerBehaviour(); err != nil {
			return fmt.Errorf("event #%d: %w", i, err)
		}
	}
	return nil
}

// Behaviours expands the events into the behaviours they describe, in
// order, honouring Repeat.
func (s Scenario) Behaviours() ([]bh.PeerBehaviour, error) {
	var out []bh.PeerBehaviour
	for i, e := range s.Events {
		b, err := e.PeerBehaviour()
		if err != nil {
			return nil, fmt.Errorf("event #%d: %w", i, err)
		}
		for n := 0; n < e.times(); n++ {
			out = append(out, b)
		}
	}
	return out, nil
}

// AllPeers returns the declared peers followed, in sorted order, by every
// other peer or sender the events mention.
func (s Scenario) AllPeers() []bh.PeerID {
	seen := make(map[string]struct{})
	out := make([]bh.PeerID, 0, len(s.Peers))
	for _, p := range s.Peers {
		seen[p] = struct{}{}
		out = append(out, bh.PeerID(p))
	}

	var extra []string
	for _, e := range s.Events {
		for _, p := range []string{e.Sender, e.Peer} {
			if p == "" {
				continue
			}
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				extra = append(extra, p)
			}
		}
	}
	sort.Strings(extra)
	for _, p := range extra {
		out = append(out, bh.PeerID(p))
	}
	return out
}
