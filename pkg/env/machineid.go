// Package env provides facts about the host.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// appID keys machineid.ProtectedID.
const appID = "cpudbg"

// idLen is the number of hex digits kept.
const idLen = 12

// MachineID retrieves a stable ID for this machine, falling back to the
// hostname when the machine ID is unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.V(2).Infof("machine id unavailable: %v", err)
		if host, err := os.Hostname(); err == nil && host != "" {
			return host
		}
		return "cpudbg"
	}
	if len(id) > idLen {
		id = id[:idLen]
	}
	return id
}
