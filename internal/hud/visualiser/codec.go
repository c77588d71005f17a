package visualiser

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/overlay.report/internal/hud/engine"
)

// EncodeFrame serialises a frame bundle to the JSON wire format consumed by
// the browser overlay. One frame becomes one websocket text message.
func EncodeFrame(frame *engine.FrameBundle) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("cannot encode nil frame")
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame %d: %w", frame.FrameID, err)
	}
	return data, nil
}

// DecodeFrame parses a wire-format frame back into a bundle. Used by replay
// tooling and tests.
func DecodeFrame(data []byte) (*engine.FrameBundle, error) {
	frame := &engine.FrameBundle{}
	if err := json.Unmarshal(data, frame); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return frame, nil
}
