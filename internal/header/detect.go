package header

import (
	"io"

	"github.com/SkynetNext/mesh-gateway/internal/sniff"
)

// DetectHeader exposes ReadPrefaced as a pluggable protocol detector so
// connection-handling code can try it alongside other sniffers over the
// same shared buffer. It holds no state; one instance serves all
// connections.
type DetectHeader struct{}

var _ sniff.Detector[Header] = DetectHeader{}

// Detect implements sniff.Detector. A nil Header means the preface was
// absent and the buffer is untouched; errors from the frame reader
// propagate unchanged.
func (DetectHeader) Detect(rd io.Reader, buf *sniff.Buffer) (*Header, error) {
	return ReadPrefaced(rd, buf)
}
