package hub

import "log/slog"

// MessageTrackerObserver logs every registry mutation and routed message
// at Debug level. This is the pluggable-observer substitute for the
// source's message-tracker hub subclass called out in spec §9: rather than
// a hub variant with an inheritance relationship to the basic hub, it is
// one Observer among any number a deployment chooses to add.
type MessageTrackerObserver struct {
	logger *slog.Logger
}

// NewMessageTrackerObserver returns an Observer that logs through logger.
func NewMessageTrackerObserver(logger *slog.Logger) *MessageTrackerObserver {
	return &MessageTrackerObserver{logger: logger}
}

func (o *MessageTrackerObserver) OnRegister(clientID string) {
	o.logger.Debug("client registered", "client", clientID)
}

func (o *MessageTrackerObserver) OnUnregister(clientID string) {
	o.logger.Debug("client unregistered", "client", clientID)
}

func (o *MessageTrackerObserver) OnMetadata(clientID string) {
	o.logger.Debug("client declared metadata", "client", clientID)
}

func (o *MessageTrackerObserver) OnSubscriptions(clientID string) {
	o.logger.Debug("client declared subscriptions", "client", clientID)
}

func (o *MessageTrackerObserver) OnMessage(kind, senderID, recipientID, mtype string) {
	o.logger.Debug("message routed", "kind", kind, "sender", senderID, "recipient", recipientID, "mtype", mtype)
}

func (o *MessageTrackerObserver) OnShutdown() {
	o.logger.Debug("hub shutting down")
}
