// Package server is the TCP driver around the matching core: it
// accepts client connections, parses wire messages into book
// operations, and reports fills and errors back to the owning
// connections.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"ironbook/internal/book"
	"ironbook/internal/handler"
	"ironbook/internal/model"
	"ironbook/internal/wire"
	"ironbook/internal/workerpool"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 5 * time.Second
)

var ErrImproperConversion = errors.New("server: improper type conversion")

type clientMessage struct {
	clientAddress string
	message       wire.Message
}

// Server owns one OrderBook and the TCP listener that feeds it.
type Server struct {
	address string
	port    int
	book    *book.OrderBook

	pool   workerpool.Pool
	cancel context.CancelFunc

	sessionsLock sync.Mutex
	sessions     map[string]net.Conn

	ownersLock sync.Mutex
	owners     map[string]string // order ID -> client address

	messages chan clientMessage
}

// New creates a server for instrument/exchange, listening on
// address:port once Run is called.
func New(address string, port int, instrument, exchange string) *Server {
	s := &Server{
		address:  address,
		port:     port,
		pool:     workerpool.New(defaultNWorkers),
		sessions: make(map[string]net.Conn),
		owners:   make(map[string]string),
		messages: make(chan clientMessage, 1),
	}
	s.book = book.New(instrument, exchange, handler.Dispatch(&reportingHandler{srv: s}))
	return s
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run blocks accepting connections until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client added")
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case cm := <-s.messages:
			if err := s.handleMessage(cm); err != nil {
				log.Error().Err(err).Str("clientAddress", cm.clientAddress).Msg("error handling message")
				s.reportError(cm.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(cm clientMessage) error {
	switch m := cm.message.(type) {
	case *wire.NewOrderMessage:
		order := m.Order()
		s.setOwner(order.ID, cm.clientAddress)
		if err := s.book.Submit(order); err != nil {
			return err
		}
		return nil

	case *wire.CancelOrderMessage:
		order := &model.Order{ID: m.OrderID, Side: m.Side, Price: m.Price, Instrument: m.Instrument}
		return s.book.Cancel(order)

	default:
		return wire.ErrInvalidMessageType
	}
}

// handleConnection reads one message off conn, forwards it to
// sessionHandler, then requeues the connection for its next message.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("failed setting deadline")
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			s.deleteSession(conn.RemoteAddr().String())
			return nil
		}

		message, err := wire.ParseMessage(buffer[:n])
		if err != nil {
			log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing message")
			return nil
		}

		s.messages <- clientMessage{clientAddress: conn.RemoteAddr().String(), message: message}
		s.pool.AddTask(conn)
	}
	return nil
}

func (s *Server) reportError(clientAddress string, err error) {
	s.sessionsLock.Lock()
	conn, ok := s.sessions[clientAddress]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}
	report := wire.ErrorReportFor(s.book.Instrument, err)
	if _, err := conn.Write(report.Serialize()); err != nil {
		log.Error().Err(err).Str("address", clientAddress).Msg("unable to send error report")
	}
}

func (s *Server) reportTrade(trade *model.Trade) {
	s.reportTo(trade.Maker.ID, wire.TradeReport(trade, trade.Maker.Side))
	s.reportTo(trade.Taker.ID, wire.TradeReport(trade, trade.Taker.Side))
}

func (s *Server) reportTo(orderID string, report *wire.Report) {
	s.ownersLock.Lock()
	clientAddress, ok := s.owners[orderID]
	s.ownersLock.Unlock()
	if !ok {
		return
	}

	s.sessionsLock.Lock()
	conn, ok := s.sessions[clientAddress]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}

	if _, err := conn.Write(report.Serialize()); err != nil {
		log.Error().Err(err).Str("address", clientAddress).Msg("unable to send trade report")
	}
}

func (s *Server) setOwner(orderID, clientAddress string) {
	s.ownersLock.Lock()
	defer s.ownersLock.Unlock()
	s.owners[orderID] = clientAddress
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.RemoteAddr().String()] = conn
}

func (s *Server) deleteSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	delete(s.sessions, address)
}

// reportingHandler adapts book events into wire reports sent back to
// the owning client connections. Open/Fill/Change/Cancel are logged
// only; Trade is the one event a client actually needs on the wire.
type reportingHandler struct {
	srv *Server
}

func (h *reportingHandler) OnOpen(order *model.Order) {
	log.Debug().Str("orderID", order.ID).Msg("order opened")
}

func (h *reportingHandler) OnFill(order *model.Order) {
	log.Debug().Str("orderID", order.ID).Float64("filled", order.Filled).Msg("order filled")
}

func (h *reportingHandler) OnChange(order *model.Order) {
	log.Debug().Str("orderID", order.ID).Float64("filled", order.Filled).Msg("order changed")
}

func (h *reportingHandler) OnCancel(order *model.Order) {
	log.Debug().Str("orderID", order.ID).Msg("order cancelled")
}

func (h *reportingHandler) OnTrade(trade *model.Trade) {
	h.srv.reportTrade(trade)
}
