package standard

import (
	"context"
	"time"

	"github.com/lvalerom/samphub/hub"
	"github.com/lvalerom/samphub/sampvalue"
	"github.com/lvalerom/samphub/transport"
)

// registerMethods wires every samp.hub.* method onto the dispatcher,
// replacing the reflective per-method wiring spec §9 flags for
// re-architecture with an explicit table built once at construction.
func (s *Server) registerMethods() {
	d := s.dispatcher

	d.Register("samp.hub.register", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		secret := r.str()
		if r.err != nil {
			return nil, r.err
		}
		if secret != s.secret {
			return nil, &hub.AuthFailure{Reason: "secret does not match lockfile"}
		}
		res, err := s.hub.Register(nil)
		if err != nil {
			return nil, err
		}
		result := sampvalue.NewMapping()
		result.Set("samp.hub-id", res.HubID)
		result.Set("samp.self-id", res.SelfID)
		result.Set("samp.private-key", res.PrivateKey)
		return result, nil
	})

	d.Register("samp.hub.unregister", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		if r.err != nil {
			return nil, r.err
		}
		return nil, s.hub.Unregister(key)
	})

	d.Register("samp.hub.setXmlrpcCallback", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		url := r.str()
		if r.err != nil {
			return nil, r.err
		}
		if err := sampvalue.CheckURL(url); err != nil {
			return nil, err
		}
		deliverer := &standardDeliverer{outbound: s.outbound, url: url}
		return nil, s.hub.DeclareCallback(key, deliverer)
	})

	d.Register("samp.hub.declareMetadata", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		meta := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		return nil, s.hub.DeclareMetadata(key, meta)
	})

	d.Register("samp.hub.getMetadata", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		target := r.str()
		if r.err != nil {
			return nil, r.err
		}
		return s.hub.GetMetadata(key, target)
	})

	d.Register("samp.hub.declareSubscriptions", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		subs := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		return nil, s.hub.DeclareSubscriptions(key, subs)
	})

	d.Register("samp.hub.getSubscriptions", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		target := r.str()
		if r.err != nil {
			return nil, r.err
		}
		return s.hub.GetSubscriptions(key, target)
	})

	d.Register("samp.hub.getRegisteredClients", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		if r.err != nil {
			return nil, r.err
		}
		ids, err := s.hub.GetRegisteredClients(key)
		if err != nil {
			return nil, err
		}
		return stringsToValues(ids), nil
	})

	d.Register("samp.hub.getSubscribedClients", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		mtype := r.str()
		if r.err != nil {
			return nil, r.err
		}
		return s.hub.GetSubscribedClients(key, mtype)
	})

	d.Register("samp.hub.notify", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		recipient := r.str()
		msg := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		return nil, s.hub.Notify(key, recipient, msg)
	})

	d.Register("samp.hub.notifyAll", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		msg := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		ids, err := s.hub.NotifyAll(key, msg)
		if err != nil {
			return nil, err
		}
		return stringsToValues(ids), nil
	})

	d.Register("samp.hub.call", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		recipient := r.str()
		tag := r.str()
		msg := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		return s.hub.Call(key, recipient, tag, msg)
	})

	d.Register("samp.hub.callAll", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		tag := r.str()
		msg := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		return s.hub.CallAll(key, tag, msg)
	})

	d.Register("samp.hub.callAndWait", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		recipient := r.str()
		msg := r.mapping()
		timeout := r.durationSeconds()
		if r.err != nil {
			return nil, r.err
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
		defer cancel()
		return s.hub.CallAndWait(ctx, key, recipient, msg, timeout)
	})

	d.Register("samp.hub.reply", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		msgID := r.str()
		response := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		return nil, s.hub.Reply(key, msgID, response)
	})
}

// faultText renders err through transport's fault-mapping convention for
// the faultString of the XML-RPC fault this profile returns.
func faultText(err error) string {
	m := transport.FaultMapping(err)
	txt, _ := m.GetString("samp.errortxt")
	code, _ := m.GetString("samp.code")
	return code + ": " + txt
}
