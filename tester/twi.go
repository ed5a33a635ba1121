package tester

import (
	"fmt"

	"tinygo.org/x/avrdrivers/avr"
)

// Target is a device on the simulated I2C bus.
type Target interface {
	// Address is the 7-bit address the target answers to.
	Address() uint8
	// Begin is called when the target has been addressed, read being the direction bit.
	Begin(read bool)
	// Write receives one byte from the master and returns the acknowledge bit.
	Write(b byte) bool
	// Read supplies the next byte. ack is the bit the master answers with.
	Read(ack bool) byte
	// End is called on a stop or a repeated start.
	End()
}

// EventKind classifies a bus event.
type EventKind uint8

const (
	EventStart EventKind = iota
	EventRestart
	EventStop
	EventWrite
	EventRead
)

// Event is one step observed on the bus. For writes Ack is the receiver's answer, for
// reads it is the master's.
type Event struct {
	Kind EventKind
	Byte byte
	Ack  bool
}

func (e Event) String() string {
	switch e.Kind {
	case EventStart:
		return "START"
	case EventRestart:
		return "RESTART"
	case EventStop:
		return "STOP"
	case EventWrite:
		return fmt.Sprintf("WRITE %#02x ack=%v", e.Byte, e.Ack)
	case EventRead:
		return fmt.Sprintf("READ %#02x ack=%v", e.Byte, e.Ack)
	}
	return "unknown event"
}

// Transaction is everything between a start condition and its stop condition.
type Transaction []Event

// Written returns the bytes the master sent, address bytes included.
func (t Transaction) Written() []byte {
	var b []byte
	for _, e := range t {
		if e.Kind == EventWrite {
			b = append(b, e.Byte)
		}
	}
	return b
}

// Read returns the bytes the master received.
func (t Transaction) Read() []byte {
	var b []byte
	for _, e := range t {
		if e.Kind == EventRead {
			b = append(b, e.Byte)
		}
	}
	return b
}

const (
	phaseIdle = iota
	phaseAddress
	phaseWrite
	phaseRead
	phaseIgnored // address not acknowledged
)

// TWI models the two-wire interface in master mode and doubles as a bus monitor: it
// fails the test when data moves outside a start/stop bracket and records every
// completed transaction.
type TWI struct {
	c Failer

	TWBR, TWSR, TWCR, TWDR Reg8

	// Latency is the number of TWCR reads an operation takes before TWINT is set.
	Latency int
	// Stalled keeps TWINT clear forever, like a bus held low.
	Stalled bool

	targets map[uint8]Target
	active  Target
	readDir bool
	phase   int
	pending int
	open    bool
	current Transaction
	done    []Transaction
}

func NewTWI(c Failer) *TWI {
	t := &TWI{c: c, targets: make(map[uint8]Target), pending: -1}
	t.TWCR.OnSet = t.control
	t.TWCR.OnGet = t.poll
	t.TWSR.OnSet = func(r *Reg8, v uint8) {
		// only the prescaler bits are writable
		r.Value = r.Value&avr.TWSRMask | v&^avr.TWSRMask
	}
	return t
}

// Attach puts a target on the bus.
func (t *TWI) Attach(target Target) {
	t.targets[target.Address()] = target
}

// Regs returns the register block for the driver.
func (t *TWI) Regs() avr.TWI {
	return avr.TWI{TWBR: &t.TWBR, TWSR: &t.TWSR, TWCR: &t.TWCR, TWDR: &t.TWDR}
}

// Transactions returns the completed transactions in order.
func (t *TWI) Transactions() []Transaction {
	return t.done
}

// Idle reports whether no transaction is open.
func (t *TWI) Idle() bool {
	return !t.open
}

// Reset forgets the recorded transactions.
func (t *TWI) Reset() {
	t.done = nil
}

func (t *TWI) status(code uint8) {
	t.TWSR.Value = code | t.TWSR.Value&^avr.TWSRMask
}

func (t *TWI) record(e Event) {
	t.current = append(t.current, e)
}

func (t *TWI) control(r *Reg8, v uint8) {
	t.c.Helper()
	// TWINT is cleared by writing a one; the stored value never carries it
	r.Value = v &^ (1 << avr.TWINT)
	if v&(1<<avr.TWEN) == 0 || v&(1<<avr.TWINT) == 0 {
		return
	}

	switch {
	case v&(1<<avr.TWSTO) != 0:
		if !t.open {
			t.c.Fatalf("stop condition on an idle bus")
			return
		}
		t.end()
		t.record(Event{Kind: EventStop})
		t.done = append(t.done, t.current)
		t.current = nil
		t.open = false
		t.phase = phaseIdle
		// the stop executes at once and TWSTO clears itself; TWINT stays low
		r.Value &^= 1 << avr.TWSTO
		return

	case v&(1<<avr.TWSTA) != 0:
		if t.open {
			t.end()
			t.record(Event{Kind: EventRestart})
			t.status(avr.StatusRestart)
		} else {
			t.open = true
			t.record(Event{Kind: EventStart})
			t.status(avr.StatusStart)
		}
		t.phase = phaseAddress

	default:
		if !t.open {
			t.c.Fatalf("data transfer outside a start/stop bracket (TWCR=%#02x)", v)
			return
		}
		t.transfer(v&(1<<avr.TWEA) != 0)
	}
	t.schedule()
}

func (t *TWI) transfer(ack bool) {
	b := t.TWDR.Value
	switch t.phase {
	case phaseAddress:
		t.readDir = b&1 != 0
		target, ok := t.targets[b>>1]
		if !ok {
			t.phase = phaseIgnored
			t.record(Event{Kind: EventWrite, Byte: b})
			if t.readDir {
				t.status(avr.StatusSLARNack)
			} else {
				t.status(avr.StatusSLAWNack)
			}
			return
		}
		t.active = target
		target.Begin(t.readDir)
		t.record(Event{Kind: EventWrite, Byte: b, Ack: true})
		if t.readDir {
			t.phase = phaseRead
			t.status(avr.StatusSLARAck)
		} else {
			t.phase = phaseWrite
			t.status(avr.StatusSLAWAck)
		}

	case phaseWrite:
		acked := t.active.Write(b)
		t.record(Event{Kind: EventWrite, Byte: b, Ack: acked})
		if acked {
			t.status(avr.StatusDataAck)
		} else {
			t.status(avr.StatusDataNack)
		}

	case phaseRead:
		in := t.active.Read(ack)
		t.TWDR.Value = in
		t.record(Event{Kind: EventRead, Byte: in, Ack: ack})
		if ack {
			t.status(avr.StatusRecvAck)
		} else {
			t.status(avr.StatusRecvNack)
		}

	case phaseIgnored:
		// nobody answered the address: the lines float high
		if t.readDir {
			t.TWDR.Value = 0xFF
			t.record(Event{Kind: EventRead, Byte: 0xFF, Ack: ack})
			t.status(avr.StatusRecvNack)
		} else {
			t.record(Event{Kind: EventWrite, Byte: b})
			t.status(avr.StatusDataNack)
		}
	}
}

func (t *TWI) end() {
	if t.active != nil {
		t.active.End()
		t.active = nil
	}
}

func (t *TWI) schedule() {
	t.pending = t.Latency
	t.complete()
}

func (t *TWI) poll(r *Reg8) {
	if t.pending > 0 {
		t.pending--
	}
	t.complete()
}

func (t *TWI) complete() {
	if t.pending == 0 && !t.Stalled {
		t.TWCR.Value |= 1 << avr.TWINT
		t.pending = -1
	}
}

// Memory is a register-pointer I2C device: the first byte of a write sets the pointer,
// further bytes are stored at it, and reads continue from it. The pointer wraps at the
// end of Mem.
type Memory struct {
	Addr uint8
	Mem  []byte

	ptr    int
	gotPtr bool
}

// NewMemory returns a device of the given size at addr.
func NewMemory(addr uint8, size int) *Memory {
	return &Memory{Addr: addr, Mem: make([]byte, size)}
}

func (m *Memory) Address() uint8 { return m.Addr }

func (m *Memory) Begin(read bool) {
	m.gotPtr = read
}

func (m *Memory) Write(b byte) bool {
	if !m.gotPtr {
		m.ptr = int(b) % len(m.Mem)
		m.gotPtr = true
		return true
	}
	m.Mem[m.ptr] = b
	m.advance()
	return true
}

func (m *Memory) Read(ack bool) byte {
	b := m.Mem[m.ptr]
	m.advance()
	return b
}

func (m *Memory) End() {}

// Pointer returns the current register pointer.
func (m *Memory) Pointer() int {
	return m.ptr
}

func (m *Memory) advance() {
	m.ptr = (m.ptr + 1) % len(m.Mem)
}

// NewDS1307 returns the clock chip: 8 timekeeping registers followed by 56 bytes of
// RAM at address 0x68, with the oscillator halted as on first power-up.
func NewDS1307() *Memory {
	m := NewMemory(0x68, 64)
	m.Mem[0] = 0x80
	return m
}

// PCF8574 is a quasi-bidirectional 8-bit expander. Writes set the latch; reads return
// Input(latch), or the latch itself when Input is nil.
type PCF8574 struct {
	Addr   uint8
	Latch  uint8
	Input  func(latch uint8) uint8
	Output func(latch uint8)
}

// NewPCF8574 returns an expander at addr with every pin released high.
func NewPCF8574(addr uint8) *PCF8574 {
	return &PCF8574{Addr: addr, Latch: 0xFF}
}

func (p *PCF8574) Address() uint8 { return p.Addr }

func (p *PCF8574) Begin(read bool) {}

func (p *PCF8574) Write(b byte) bool {
	p.Latch = b
	if p.Output != nil {
		p.Output(b)
	}
	return true
}

func (p *PCF8574) Read(ack bool) byte {
	if p.Input != nil {
		return p.Input(p.Latch)
	}
	return p.Latch
}

func (p *PCF8574) End() {}
