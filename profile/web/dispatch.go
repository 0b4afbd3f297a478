package web

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lvalerom/samphub/hub"
	"github.com/lvalerom/samphub/sampvalue"
)

// argReader mirrors the Standard Profile's positional-argument reader;
// kept as its own small copy here rather than exported from profile/standard
// since the two profiles' argument shapes (JSON values vs XML-RPC values)
// happen to coincide but aren't guaranteed to stay that way.
type argReader struct {
	args []sampvalue.Value
	pos  int
	err  error
}

func newArgReader(args []sampvalue.Value) *argReader {
	return &argReader{args: args}
}

func (r *argReader) str() string {
	if r.err != nil {
		return ""
	}
	if r.pos >= len(r.args) {
		r.err = fmt.Errorf("missing argument %d", r.pos)
		return ""
	}
	s, ok := r.args[r.pos].(string)
	if !ok {
		r.err = fmt.Errorf("argument %d is not a string", r.pos)
		return ""
	}
	r.pos++
	return s
}

func (r *argReader) mapping() *sampvalue.Mapping {
	if r.err != nil {
		return nil
	}
	if r.pos >= len(r.args) {
		return sampvalue.NewMapping()
	}
	m, ok := r.args[r.pos].(*sampvalue.Mapping)
	if !ok {
		r.err = fmt.Errorf("argument %d is not a mapping", r.pos)
		return nil
	}
	r.pos++
	return m
}

func (r *argReader) durationSeconds() time.Duration {
	s := r.str()
	if r.err != nil {
		return 0
	}
	n, err := sampvalue.DecodeInt(s)
	if err != nil {
		r.err = fmt.Errorf("malformed timeout: %w", err)
		return 0
	}
	return time.Duration(n) * time.Second
}

func stringsToValues(ss []string) sampvalue.Value {
	vs := make([]sampvalue.Value, len(ss))
	for i, s := range ss {
		vs[i] = s
	}
	return vs
}

// rawKey strips the wk: prefix a Web client's private key carries on the
// wire, so every hub.* call underneath sees the same unprefixed key the
// hub minted.
func rawKey(prefixed string) (string, error) {
	if !strings.HasPrefix(prefixed, KeyPrefix) {
		return "", &hub.AuthFailure{Reason: "missing wk: private key prefix"}
	}
	return strings.TrimPrefix(prefixed, KeyPrefix), nil
}

func (s *Server) registerMethods() {
	d := s.dispatcher

	d.Register("samp.hub.register", func(args []sampvalue.Value) (sampvalue.Value, error) {
		queue := newPullQueue(s.maxQueue)
		deliverer := &webDeliverer{queue: queue}

		res, err := s.hub.Register(deliverer)
		if err != nil {
			return nil, err
		}
		if err := s.hub.DeclareCallback(res.PrivateKey, deliverer); err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.queues[res.PrivateKey] = queue
		s.mu.Unlock()

		result := sampvalue.NewMapping()
		result.Set("samp.hub-id", res.HubID)
		result.Set("samp.self-id", res.SelfID)
		result.Set("samp.private-key", KeyPrefix+res.PrivateKey)
		return result, nil
	})

	d.Register("samp.hub.unregister", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		if err := s.hub.Unregister(raw); err != nil {
			return nil, err
		}
		s.mu.Lock()
		delete(s.queues, raw)
		s.mu.Unlock()
		return nil, nil
	})

	d.Register("samp.hub.declareMetadata", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		meta := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		return nil, s.hub.DeclareMetadata(raw, meta)
	})

	d.Register("samp.hub.getMetadata", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		target := r.str()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		return s.hub.GetMetadata(raw, target)
	})

	d.Register("samp.hub.declareSubscriptions", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		subs := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		return nil, s.hub.DeclareSubscriptions(raw, subs)
	})

	d.Register("samp.hub.getSubscriptions", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		target := r.str()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		return s.hub.GetSubscriptions(raw, target)
	})

	d.Register("samp.hub.getRegisteredClients", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		ids, err := s.hub.GetRegisteredClients(raw)
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
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		return s.hub.GetSubscribedClients(raw, mtype)
	})

	d.Register("samp.hub.notify", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		recipient := r.str()
		msg := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		return nil, s.hub.Notify(raw, recipient, msg)
	})

	d.Register("samp.hub.notifyAll", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		msg := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		ids, err := s.hub.NotifyAll(raw, msg)
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
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		return s.hub.Call(raw, recipient, tag, msg)
	})

	d.Register("samp.hub.callAll", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		tag := r.str()
		msg := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		return s.hub.CallAll(raw, tag, msg)
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
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
		defer cancel()
		return s.hub.CallAndWait(ctx, raw, recipient, msg, timeout)
	})

	d.Register("samp.hub.reply", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		msgID := r.str()
		response := r.mapping()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}
		return nil, s.hub.Reply(raw, msgID, response)
	})

	// pullCallbacks is Web-only: it has no hub.* counterpart since the hub
	// core only knows how to push (through the Deliverer it was handed at
	// Register time); draining the pulled batch is this profile's job.
	d.Register("samp.hub.pullCallbacks", func(args []sampvalue.Value) (sampvalue.Value, error) {
		r := newArgReader(args)
		key := r.str()
		timeout := r.durationSeconds()
		if r.err != nil {
			return nil, r.err
		}
		raw, err := rawKey(key)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		queue, ok := s.queues[raw]
		s.mu.Unlock()
		if !ok {
			return nil, &hub.UnknownClient{}
		}

		batch := queue.pull(timeout)
		if queue.isLagging() {
			s.logger.Info("web client pull-queue overflowed, oldest callbacks dropped", "client", raw)
		}
		out := make([]sampvalue.Value, 0, len(batch))
		for _, cb := range batch {
			entry := sampvalue.NewMapping()
			entry.Set("samp.methodName", "samp.client."+cb.method)
			entry.Set("samp.params", cb.args)
			out = append(out, entry)
		}
		return out, nil
	})
}
