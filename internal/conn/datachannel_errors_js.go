//go:build js

package conn

import "github.com/pion/webrtc/v4"

// Browser data channels surface failures through OnClose only.
func (d *DataChannel) onError(*webrtc.DataChannel) {}
