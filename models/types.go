package models

import (
	"nmpanel/network"
)

// Messages the panel exchanges with its popups and with the client bridge.

type DevicesMsg []network.DeviceInfo
type ConnectionsMsg []network.ConnectionInfo
type AccessPointsMsg []network.AccessPointInfo
type GlobalStateMsg network.GlobalState

type ErrMsg struct{ Err error }

// NoticeMsg is a one-line status for the user, such as a successful
// activation request.
type NoticeMsg string

type PeriodicRefreshMsg struct{}
type PerformScanRefreshMsg struct{}

type ExitFormMsg struct{}
type SubmitEapFormMsg struct{ Auth network.EnterpriseAuth }
type SubmitConfirmationMsg struct{ Value bool }
