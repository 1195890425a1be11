package peer

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/airview/internal/logging"
	"github.com/junsooki/airview/internal/transport"
)

// Source is the answering side: it accepts a viewer's offer and sends frames
// on the data channel the viewer opened.
type Source struct {
	pc        *webrtc.PeerConnection
	sig       Signaler
	transport *transport.DataChannelTransport

	mu     sync.Mutex
	viewer string
}

// NewSource creates a Source peer.
func NewSource(sig Signaler) (*Source, error) {
	pc, err := NewPeerConnection()
	if err != nil {
		return nil, err
	}

	s := &Source{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(nil),
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		log := logging.Logger()
		if dc.Label() != FramesLabel {
			log.Warn("ignoring data channel", "label", dc.Label())
			return
		}
		dc.OnOpen(func() {
			log.Info("frames data channel open", "viewer", s.Viewer())
		})
		s.transport.SetFramesChannel(dc)
	})
	trickle(pc, sig, s.Viewer)

	return s, nil
}

// Transport returns the frame transport.
func (s *Source) Transport() *transport.DataChannelTransport {
	return s.transport
}

// Viewer returns the ID of the viewer being served.
func (s *Source) Viewer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewer
}

// HandleOffer answers an offer from viewer from.
func (s *Source) HandleOffer(from string, payload json.RawMessage) error {
	s.mu.Lock()
	s.viewer = from
	s.mu.Unlock()

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return err
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return err
	}

	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return s.sig.SendAnswer(from, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (s *Source) HandleICECandidate(payload json.RawMessage) error {
	return addICECandidate(s.pc, payload)
}

// Close shuts down the peer connection.
func (s *Source) Close() {
	if s.pc != nil {
		s.pc.Close()
	}
}
