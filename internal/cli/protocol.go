package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/typist/internal/bridge"
)

// Line protocol ports.
const (
	portAppendHistory = "appendHistory"
	portSaveConfig    = "saveConfig"
	portHistory       = "history"
	portConfig        = "config"
	portError         = "error"
)

// Protocol error codes, used alongside the bridge's own codes.
const (
	errCodeInvalidMessage = "INVALID_MESSAGE"
	errCodeUnknownPort    = "UNKNOWN_PORT"
)

// maxLineSize bounds one inbound message.
const maxLineSize = 1 << 20

// inboundMessage is one line from the host.
type inboundMessage struct {
	Port  string          `json:"port"`
	Value json.RawMessage `json:"value"`
}

// outboundMessage is one line to the host.
type outboundMessage struct {
	Port    string          `json:"port"`
	Value   json.RawMessage `json:"value,omitempty"`
	Present *bool           `json:"present,omitempty"`
	Code    string          `json:"code,omitempty"`
	Slot    string          `json:"slot,omitempty"`
	Message string          `json:"message,omitempty"`
}

// linePorts writes bridge deliveries and faults as JSON lines.
// Writes are serialized so lines never interleave.
type linePorts struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

var (
	_ bridge.Outbound      = (*linePorts)(nil)
	_ bridge.FaultReporter = (*linePorts)(nil)
)

func newLinePorts(w io.Writer) *linePorts {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &linePorts{enc: enc}
}

// InitialHistory implements bridge.Outbound.
func (p *linePorts) InitialHistory(log bridge.HistoryLog) {
	p.send(outboundMessage{Port: portHistory, Value: historyJSON(log)})
}

// InitialConfig implements bridge.Outbound. An absent config is sent as
// null with present=false.
func (p *linePorts) InitialConfig(cfg bridge.InitialConfig) {
	value := json.RawMessage("null")
	if cfg.Present {
		value = cfg.Value
	}
	present := cfg.Present
	p.send(outboundMessage{Port: portConfig, Value: value, Present: &present})
}

// ReportFault implements bridge.FaultReporter.
func (p *linePorts) ReportFault(err error) {
	msg := outboundMessage{Port: portError, Code: faultCode(err), Message: err.Error()}
	var be *bridge.Error
	if errors.As(err, &be) {
		msg.Slot = string(be.Slot)
	}
	p.send(msg)
}

// reportProtocolError sends an error line for a message that could not be routed.
func (p *linePorts) reportProtocolError(code, message string) {
	p.send(outboundMessage{Port: portError, Code: code, Message: message})
}

func (p *linePorts) send(msg outboundMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	p.err = p.enc.Encode(msg)
}

// Err returns the first write error, after which nothing more is sent.
func (p *linePorts) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// forwardBoot writes the boot deliveries waiting on core: history, then
// config, then the faults Boot reported. A faulted slot has no delivery.
func (p *linePorts) forwardBoot(core *bridge.ChanPorts) {
	select {
	case log := <-core.History:
		p.InitialHistory(log)
	default:
	}
	select {
	case cfg := <-core.Config:
		p.InitialConfig(cfg)
	default:
	}
	p.drainFaults(core)
}

// forwardFaults writes faults from core until stop is closed, then writes
// any still buffered.
func (p *linePorts) forwardFaults(core *bridge.ChanPorts, stop <-chan struct{}) {
	for {
		select {
		case err := <-core.Faults:
			p.ReportFault(err)
		case <-stop:
			p.drainFaults(core)
			return
		}
	}
}

func (p *linePorts) drainFaults(core *bridge.ChanPorts) {
	for {
		select {
		case err := <-core.Faults:
			p.ReportFault(err)
		default:
			return
		}
	}
}

// eventSink accepts routed events.
type eventSink interface {
	Enqueue(ev bridge.Event) bool
}

// errBridgeStopped is returned by readMessages when the sink refuses events.
var errBridgeStopped = errors.New("bridge stopped")

// readMessages routes each inbound line to sink until EOF or a read error.
// Lines that cannot be routed, including lines over maxLineSize, are answered
// with an error line and skipped.
func readMessages(r io.Reader, sink eventSink, ports *linePorts) error {
	br := bufio.NewReader(r)

	for line := 1; ; line++ {
		data, tooLong, err := readLine(br, maxLineSize)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("line %d: %w", line, err)
		}
		eof := err != nil

		switch {
		case tooLong:
			ports.reportProtocolError(errCodeInvalidMessage, fmt.Sprintf("line %d: longer than %d bytes", line, maxLineSize))
		case len(bytes.TrimSpace(data)) > 0:
			if !routeMessage(line, data, sink, ports) {
				return errBridgeStopped
			}
		}

		if eof {
			return nil
		}
	}
}

// routeMessage decodes one line and enqueues its event. It reports false
// only when the sink refused the event.
func routeMessage(line int, data []byte, sink eventSink, ports *linePorts) bool {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		ports.reportProtocolError(errCodeInvalidMessage, fmt.Sprintf("line %d: %v", line, err))
		return true
	}

	var ev bridge.Event
	switch msg.Port {
	case portAppendHistory:
		ev = bridge.HistoryEntryEvent(msg.Value)
	case portSaveConfig:
		ev = bridge.ConfigChangedEvent(msg.Value)
	default:
		ports.reportProtocolError(errCodeUnknownPort, fmt.Sprintf("line %d: unknown port %q", line, msg.Port))
		return true
	}
	return sink.Enqueue(ev)
}

// readLine reads through the next newline. A line over limit bytes is
// consumed to its end but not returned, and tooLong is set. At EOF the
// unterminated remainder is returned with io.EOF.
func readLine(br *bufio.Reader, limit int) (data []byte, tooLong bool, err error) {
	for {
		chunk, readErr := br.ReadSlice('\n')
		if !tooLong {
			if len(data)+len(chunk) > limit {
				tooLong, data = true, nil
			} else {
				data = append(data, chunk...)
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		return data, tooLong, readErr
	}
}
