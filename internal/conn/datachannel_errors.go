//go:build !js

package conn

import "github.com/pion/webrtc/v4"

// onError closes d with the error the underlying transport reports.
func (d *DataChannel) onError(dc *webrtc.DataChannel) {
	dc.OnError(d.shutdown)
}
