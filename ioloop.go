package stratumclient

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"stratumclient/internal/rpcframe"
	"stratumclient/internal/transport"
	"stratumclient/stratum"
)

// ioSession is the single owner of the socket, the framer buffers, the
// pending-call table and the protocol state for one connection. It runs
// on its own goroutine; the façade never touches any of these fields.
type ioSession struct {
	conn   *transport.Conn
	framer *rpcframe.Framer
	state  *stratum.State
	log    *logrus.Entry

	cmds   <-chan command
	events chan<- event

	cancel context.CancelFunc
}

// run drives the transport event loop until the connection closes for
// any reason. It is the only goroutine that ever calls into framer or
// state.
func (s *ioSession) run(ctx context.Context) {
	cb := transport.Callbacks{
		OnReadable: s.onReadable,
		OnIdle:     s.onIdle,
		OnError:    s.onError,
	}
	if err := s.conn.Run(ctx, cb); err != nil && err != context.Canceled {
		s.log.WithError(err).Debug("transport loop exited")
	}
	close(s.events)
}

func (s *ioSession) onReadable(data []byte, sender transport.Sender) {
	frames, err := s.framer.Feed(data)
	for _, f := range frames {
		s.handleFrame(f, sender)
	}
	if err != nil {
		s.fatal(ErrFraming, "decode", err, sender)
		return
	}
}

func (s *ioSession) onError(text string, sender transport.Sender) {
	s.fatal(ErrTransport, "socket", errString(text), sender)
}

func (s *ioSession) onIdle(sender transport.Sender) {
	for {
		select {
		case cmd, ok := <-s.cmds:
			if !ok {
				return
			}
			s.handleCommand(cmd, sender)
		default:
			return
		}
	}
}

func (s *ioSession) handleCommand(cmd command, sender transport.Sender) {
	switch cmd.kind {
	case cmdSend:
		id, line, err := s.framer.EncodeRequest(string(cmd.method), cmd.params)
		if err != nil {
			s.fatal(ErrFraming, "encode", err, sender)
			return
		}
		sender.Send(line)
		s.events <- event{kind: eventSent, id: id, method: cmd.method}
	case cmdSubmit:
		s.handleSubmit(cmd.result, sender)
	case cmdCancel:
		s.framer.CancelPending(cmd.id)
	case cmdClose:
		sender.Close()
		s.cancel()
	}
}

// handleSubmit is the sole place mining.submit's local-reject decision
// is made: against s.state, the I/O goroutine's own authoritative job
// table, never the façade's read-only mirror. An unknown or evicted
// job_id never reaches EncodeRequest/Send.
func (s *ioSession) handleSubmit(result stratum.JobResult, sender transport.Sender) {
	if result.IsEmpty() {
		s.events <- event{kind: eventLocalReject, localErr: newErr(ErrLocalReject, "submit", fmt.Errorf("empty job result"))}
		return
	}

	snapshot, ok := s.state.SnapshotFor(result.JobID)
	if !ok {
		s.events <- event{kind: eventLocalReject, localErr: newErr(ErrLocalReject, "submit", fmt.Errorf("unknown job_id %q", result.JobID))}
		return
	}

	params, err := stratum.SubmitParams(result, snapshot)
	if err != nil {
		s.events <- event{kind: eventLocalReject, localErr: newErr(ErrLocalReject, "submit", err)}
		return
	}

	id, line, err := s.framer.EncodeRequest(string(stratum.MethodSubmit), params)
	if err != nil {
		s.fatal(ErrFraming, "encode", err, sender)
		return
	}
	sender.Send(line)
	s.events <- event{kind: eventSent, id: id, method: stratum.MethodSubmit}
}

func (s *ioSession) handleFrame(f rpcframe.Frame, sender transport.Sender) {
	switch f.Kind {
	case rpcframe.KindNotification:
		s.handleNotification(f, sender)
	case rpcframe.KindSuccess:
		if stratum.ParseMethod(f.Method) == stratum.MethodSubscribe {
			if res, err := stratum.ParseSubscribeResult(f.Result); err == nil {
				s.state.ApplySubscribeResult(res)
			}
		}
		s.events <- event{kind: eventResponse, id: f.ID, method: stratum.Method(f.Method), result: f.Result}
	case rpcframe.KindError:
		s.events <- event{kind: eventResponse, id: f.ID, method: stratum.Method(f.Method), isError: true, errPay: f.Error}
	case rpcframe.KindDropped:
		s.log.WithField("id", f.ID).Warn("dropped response with unknown id")
	}
}

func (s *ioSession) handleNotification(f rpcframe.Frame, sender transport.Sender) {
	method := stratum.ParseMethod(f.Method)
	switch method {
	case stratum.MethodNotify:
		n, err := stratum.ParseNotify(f.Params)
		if err != nil {
			s.fatal(ErrProtocolShape, "mining.notify", err, sender)
			return
		}
		s.state.ApplyNotify(n)
		s.events <- event{kind: eventNotifyJob, notify: n}
	case stratum.MethodSetDifficulty:
		d, err := stratum.ParseSetDifficulty(f.Params)
		if err != nil {
			s.fatal(ErrProtocolShape, "mining.set_difficulty", err, sender)
			return
		}
		s.state.ApplySetDifficulty(d)
		s.events <- event{kind: eventSetDifficulty, difficulty: d}
	case stratum.MethodSetExtranonce:
		se, err := stratum.ParseSetExtranonce(f.Params)
		if err != nil {
			s.fatal(ErrProtocolShape, "mining.set_extranonce", err, sender)
			return
		}
		s.state.ApplySetExtranonce(se)
		s.events <- event{kind: eventSetExtranonce, setExtranonce: se}
	case stratum.MethodReconnect:
		s.log.Info("received client.reconnect, closing")
		s.events <- event{kind: eventReconnect}
		sender.Close()
		s.cancel()
	default:
		s.log.WithField("method", f.Method).Warn("unknown notification method, ignoring")
	}
}

func (s *ioSession) fatal(kind ErrKind, op string, err error, sender transport.Sender) {
	s.log.WithError(err).WithField("op", op).Error("connection-fatal error")
	s.events <- event{kind: eventFatal, fatal: newErr(kind, op, err)}
	sender.Close()
	s.cancel()
}

type errString string

func (e errString) Error() string { return string(e) }
