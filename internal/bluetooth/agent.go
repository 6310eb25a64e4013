package bluetooth

import (
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// PairingAgent implements org.bluez.Agent1, registered at
// /com/wayle/BluetoothAgent (spec.md §6). PIN/passkey requests are
// forwarded to the front end via the Requests channel rather than
// answered synchronously here; Reply must be called with the front
// end's answer before the corresponding method returns.
type PairingAgent struct {
	logger   *slog.Logger
	Requests chan<- PairingRequest
}

// PairingRequest describes a single agent callback awaiting a
// front-end decision.
type PairingRequest struct {
	Device  dbus.ObjectPath
	Kind    string // "pincode", "passkey", "confirmation", "authorization"
	Passkey uint32
	Reply   chan PairingReply
}

// PairingReply is the front end's answer to a PairingRequest.
type PairingReply struct {
	Accept  bool
	PinCode string
}

// NewPairingAgent creates an agent that forwards requests on reqCh.
func NewPairingAgent(reqCh chan<- PairingRequest, logger *slog.Logger) *PairingAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &PairingAgent{logger: logger, Requests: reqCh}
}

func (a *PairingAgent) ask(device dbus.ObjectPath, kind string, passkey uint32) PairingReply {
	replyCh := make(chan PairingReply, 1)
	a.Requests <- PairingRequest{Device: device, Kind: kind, Passkey: passkey, Reply: replyCh}
	return <-replyCh
}

// RequestPinCode implements org.bluez.Agent1.RequestPinCode.
func (a *PairingAgent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	reply := a.ask(device, "pincode", 0)
	if !reply.Accept {
		return "", dbus.MakeFailedError(errRejected)
	}
	return reply.PinCode, nil
}

// RequestPasskey implements org.bluez.Agent1.RequestPasskey.
func (a *PairingAgent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	reply := a.ask(device, "passkey", 0)
	if !reply.Accept {
		return 0, dbus.MakeFailedError(errRejected)
	}
	return 0, nil
}

// RequestConfirmation implements org.bluez.Agent1.RequestConfirmation.
func (a *PairingAgent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	reply := a.ask(device, "confirmation", passkey)
	if !reply.Accept {
		return dbus.MakeFailedError(errRejected)
	}
	return nil
}

// RequestAuthorization implements org.bluez.Agent1.RequestAuthorization.
func (a *PairingAgent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	reply := a.ask(device, "authorization", 0)
	if !reply.Accept {
		return dbus.MakeFailedError(errRejected)
	}
	return nil
}

// Cancel implements org.bluez.Agent1.Cancel.
func (a *PairingAgent) Cancel() *dbus.Error {
	a.logger.Debug("bluetooth pairing request cancelled by bluez")
	return nil
}

// Release implements org.bluez.Agent1.Release.
func (a *PairingAgent) Release() *dbus.Error {
	return nil
}

var errRejected = &pairingRejectedError{}

type pairingRejectedError struct{}

func (e *pairingRejectedError) Error() string { return "org.bluez.Error.Rejected" }
