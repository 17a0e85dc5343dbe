// Package wire is the binary protocol spoken between matchctl and
// matchd: fixed-header messages carrying new-order/cancel-order
// instructions and execution/error reports.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"ironbook/internal/model"
)

var (
	ErrInvalidMessageType = errors.New("wire: invalid message type")
	ErrMessageTooShort    = errors.New("wire: message too short")
)

// MessageType identifies the payload that follows the 2-byte header.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

// ReportType identifies a Report's payload shape.
type ReportType uint8

const (
	ExecutionReport ReportType = iota
	ErrorReport
)

const instrumentFieldLen = 8

// Message is any parsed client request.
type Message interface {
	GetType() MessageType
}

// BaseMessage carries the 2-byte type header common to every message.
type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

const (
	baseHeaderLen = 2
	// instrument(8) + price(8) + volume(8) + side(1) + orderType(1) +
	// flag(1) + exchangeLen(1)
	newOrderHeaderLen = instrumentFieldLen + 8 + 8 + 1 + 1 + 1 + 1
	// instrument(8) + orderID(16, raw uuid) + side(1) + price(8)
	cancelOrderHeaderLen = instrumentFieldLen + 16 + 1 + 8
)

// ParseMessage reads the 2-byte type header off msg and dispatches to
// the matching parser.
func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < baseHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	default:
		return nil, ErrInvalidMessageType
	}
}

// NewOrderMessage requests a new order enter the book.
type NewOrderMessage struct {
	BaseMessage
	Instrument  string
	Price       float64
	Volume      float64
	Side        model.Side
	OrderType   model.OrderType
	Flag        model.OrderFlag
	ExchangeLen uint8
	Exchange    string
}

// Order builds the model.Order this message describes, minting a
// fresh ID.
func (m *NewOrderMessage) Order() *model.Order {
	return &model.Order{
		ID:         uuid.NewString(),
		Side:       m.Side,
		Price:      m.Price,
		Volume:     m.Volume,
		OrderType:  m.OrderType,
		Flag:       m.Flag,
		Instrument: m.Instrument,
		Exchange:   m.Exchange,
	}
}

func parseNewOrder(msg []byte) (*NewOrderMessage, error) {
	if len(msg) < newOrderHeaderLen {
		return nil, ErrMessageTooShort
	}
	m := &NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}
	m.Instrument = trimNulls(msg[0:8])
	m.Price = math.Float64frombits(binary.BigEndian.Uint64(msg[8:16]))
	m.Volume = math.Float64frombits(binary.BigEndian.Uint64(msg[16:24]))
	m.Side = model.Side(msg[24])
	m.OrderType = model.OrderType(msg[25])
	m.Flag = model.OrderFlag(msg[26])
	m.ExchangeLen = msg[27]

	expected := newOrderHeaderLen + int(m.ExchangeLen)
	if len(msg) < expected {
		return nil, ErrMessageTooShort
	}
	m.Exchange = string(msg[28 : 28+m.ExchangeLen])
	return m, nil
}

// Serialize encodes the message back onto the wire, the inverse of
// parseNewOrder.
func (m *NewOrderMessage) Serialize() []byte {
	buf := make([]byte, baseHeaderLen+newOrderHeaderLen+len(m.Exchange))
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	copy(buf[2:10], padInstrument(m.Instrument))
	binary.BigEndian.PutUint64(buf[10:18], math.Float64bits(m.Price))
	binary.BigEndian.PutUint64(buf[18:26], math.Float64bits(m.Volume))
	buf[26] = byte(m.Side)
	buf[27] = byte(m.OrderType)
	buf[28] = byte(m.Flag)
	buf[29] = uint8(len(m.Exchange))
	copy(buf[30:], m.Exchange)
	return buf
}

// CancelOrderMessage requests a resting order be removed. The caller
// supplies (instrument, side, price, id) since the book keeps no
// id-to-level index of its own (see internal/book.Cancel).
type CancelOrderMessage struct {
	BaseMessage
	Instrument string
	OrderID    string
	Side       model.Side
	Price      float64
}

func parseCancelOrder(msg []byte) (*CancelOrderMessage, error) {
	if len(msg) < cancelOrderHeaderLen {
		return nil, ErrMessageTooShort
	}
	id, err := uuid.FromBytes(msg[8:24])
	if err != nil {
		return nil, err
	}
	return &CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		Instrument:  trimNulls(msg[0:8]),
		OrderID:     id.String(),
		Side:        model.Side(msg[24]),
		Price:       math.Float64frombits(binary.BigEndian.Uint64(msg[25:33])),
	}, nil
}

// Serialize encodes the message back onto the wire.
func (m *CancelOrderMessage) Serialize() ([]byte, error) {
	id, err := uuid.Parse(m.OrderID)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, baseHeaderLen+cancelOrderHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	copy(buf[2:10], padInstrument(m.Instrument))
	copy(buf[10:26], id[:])
	buf[26] = byte(m.Side)
	binary.BigEndian.PutUint64(buf[27:35], math.Float64bits(m.Price))
	return buf, nil
}

// Report is a server response describing the outcome of one
// submission: either an execution summary or an error.
type Report struct {
	Type       ReportType
	Instrument string
	Side       model.Side
	Timestamp  int64
	Price      float64
	Volume     float64
	ErrLen     uint32
	Err        string
}

const reportFixedHeaderLen = 1 + instrumentFieldLen + 1 + 8 + 8 + 8 + 4

// Serialize converts the report to its wire form.
func (r *Report) Serialize() []byte {
	buf := make([]byte, reportFixedHeaderLen+len(r.Err))
	buf[0] = byte(r.Type)
	copy(buf[1:9], padInstrument(r.Instrument))
	buf[9] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[10:18], uint64(r.Timestamp))
	binary.BigEndian.PutUint64(buf[18:26], math.Float64bits(r.Price))
	binary.BigEndian.PutUint64(buf[26:34], math.Float64bits(r.Volume))
	binary.BigEndian.PutUint32(buf[34:38], r.ErrLen)
	copy(buf[reportFixedHeaderLen:], r.Err)
	return buf
}

// ParseReport decodes a Report off the wire.
func ParseReport(msg []byte) (*Report, error) {
	if len(msg) < reportFixedHeaderLen {
		return nil, ErrMessageTooShort
	}
	r := &Report{
		Type:       ReportType(msg[0]),
		Instrument: trimNulls(msg[1:9]),
		Side:       model.Side(msg[9]),
		Timestamp:  int64(binary.BigEndian.Uint64(msg[10:18])),
		Price:      math.Float64frombits(binary.BigEndian.Uint64(msg[18:26])),
		Volume:     math.Float64frombits(binary.BigEndian.Uint64(msg[26:34])),
		ErrLen:     binary.BigEndian.Uint32(msg[34:38]),
	}
	if len(msg) < reportFixedHeaderLen+int(r.ErrLen) {
		return nil, ErrMessageTooShort
	}
	r.Err = string(msg[reportFixedHeaderLen : reportFixedHeaderLen+int(r.ErrLen)])
	return r, nil
}

// TradeReport builds the execution Report for a fill.
func TradeReport(trade *model.Trade, side model.Side) *Report {
	return &Report{
		Type:       ExecutionReport,
		Instrument: trade.Instrument,
		Side:       side,
		Timestamp:  trade.Timestamp.Unix(),
		Price:      trade.Price,
		Volume:     trade.Volume,
	}
}

// ErrorReportFor builds an error Report for err.
func ErrorReportFor(instrument string, err error) *Report {
	return &Report{
		Type:       ErrorReport,
		Instrument: instrument,
		Timestamp:  time.Now().Unix(),
		Err:        err.Error(),
		ErrLen:     uint32(len(err.Error())),
	}
}

func padInstrument(s string) []byte {
	buf := make([]byte, instrumentFieldLen)
	copy(buf, s)
	return buf
}

func trimNulls(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
