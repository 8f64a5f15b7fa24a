package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID scopes the hashed machine id to this application.
const AppID = "purpledrop"

// MachineID retrieves an ID identifying the machine, hashed with AppID
// so the raw machine id isn't exposed on the network.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return AppID
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
