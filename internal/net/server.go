package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"vidar/internal/common"
	"vidar/internal/engine"
	"vidar/internal/utils"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// ClientSession tracks one connected TCP session.
type ClientSession struct {
	id   uuid.UUID
	conn net.Conn
}

// ClientMessage links a parsed message to the session that sent it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

// Engine is the command surface the gateway drives. All calls happen from a
// single goroutine; the gateway is what establishes the engine's
// single-writer precondition.
type Engine interface {
	PlaceOrder(order common.Order, timestamp uint64) (engine.MatchResult, error)
	CancelOrder(id uint64) (common.Order, bool)
	LogBook()
}

type Server struct {
	address string
	port    int
	engine  Engine
	pool    utils.WorkerPool
	cancel  context.CancelFunc

	clientSessions     map[string]ClientSession
	userSessions       map[uint64]string
	clientSessionsLock sync.Mutex

	clientMessages chan ClientMessage

	// Arrival sequence; used as the engine timestamp so replays of the
	// command log are deterministic.
	seq uint64
}

func New(address string, port int, eng Engine) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         eng,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		clientSessions: make(map[string]ClientSession),
		userSessions:   make(map[uint64]string),
		clientMessages: make(chan ClientMessage, 1),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

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
	// Closing the listener on shutdown unblocks the accept loop.
	t.Go(func() error {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
		return nil
	})

	// Start the worker pool.
	s.pool.Setup(t, s.handleConnection)

	// Start the session handler. This is the only goroutine that touches
	// the engine.
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			session := s.addClientSession(conn)
			log.Info().
				Str("address", conn.RemoteAddr().String()).
				Str("session", session.id.String()).
				Msg("new client added")

			s.pool.AddTask(conn)
		}
	}
}

// ReportTrade pushes the execution report at both counterparties. A missing
// session is not an error worth failing the trade for; it is reported for
// whichever party is still connected.
func (s *Server) ReportTrade(trade common.Trade) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	report := EncodeExecutionReport(trade)
	makerErr := s.sendToUser(trade.MakerUserID, report)
	takerErr := s.sendToUser(trade.TakerUserID, report)
	return errors.Join(makerErr, takerErr)
}

// sendToUser writes to the user's most recent session. Callers hold the
// session lock.
func (s *Server) sendToUser(userID uint64, report []byte) error {
	address, ok := s.userSessions[userID]
	if !ok {
		return nil
	}
	client, ok := s.clientSessions[address]
	if !ok {
		delete(s.userSessions, userID)
		return nil
	}
	if _, err := client.conn.Write(report); err != nil {
		delete(s.clientSessions, address)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func (s *Server) ReportError(clientAddress string, cause error) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	client, ok := s.clientSessions[clientAddress]
	if !ok {
		return ErrClientDoesNotExist
	}
	if _, err := client.conn.Write(EncodeErrorReport(cause)); err != nil {
		delete(s.clientSessions, clientAddress)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

// sessionHandler drains incoming messages and applies them to the engine in
// arrival order.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case message := <-s.clientMessages:
			if err := s.handleMessage(message); err != nil {
				log.Error().
					Err(err).
					Str("clientAddress", message.clientAddress).
					Msg("error handling message")
				s.ReportError(message.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(message ClientMessage) error {
	switch message.message.GetType() {
	case SubmitOrder:
		submit, ok := message.message.(SubmitOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		s.bindUserSession(submit.Order.UserID, message.clientAddress)

		s.seq++
		order := submit.Order
		if order.Timestamp == 0 {
			order.Timestamp = s.seq
		}
		if _, err := s.engine.PlaceOrder(order, s.seq); err != nil {
			return err
		}
	case CancelOrder:
		cancel, ok := message.message.(CancelOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		s.seq++
		if _, ok := s.engine.CancelOrder(cancel.OrderID); !ok {
			log.Debug().
				Uint64("orderID", cancel.OrderID).
				Msg("cancel for unknown order")
		}
	case LogBook:
		s.engine.LogBook()
	case Heartbeat:
	default:
		log.Error().
			Int("messageType", int(message.message.GetType())).
			Msg("invalid message type")
		return ErrInvalidMessageType
	}
	return nil
}

// handleConnection is a short-lived worker method which reads the next
// message off the connection, parses it and passes it to sessionHandler.
// A dead connection cleans up its session and drops the task.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	address := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("address", address).
			Err(err).
			Msg("failed setting deadline for connection")
		s.dropClientSession(conn)
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			if isTimeout(err) {
				// Idle client; requeue and let another worker poll it.
				s.pool.AddTask(conn)
				return nil
			}
			log.Info().
				Err(err).
				Str("address", address).
				Msg("connection closed")
			s.dropClientSession(conn)
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("address", address).
				Msg("error parsing message")
			s.ReportError(address, err)
			s.pool.AddTask(conn)
			return nil
		}

		s.clientMessages <- ClientMessage{
			message:       message,
			clientAddress: address,
		}

		// Push the connection back to handle its next message.
		s.pool.AddTask(conn)
	}
	return nil
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// addClientSession is an atomic map add.
func (s *Server) addClientSession(conn net.Conn) ClientSession {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	session := ClientSession{
		id:   uuid.New(),
		conn: conn,
	}
	s.clientSessions[conn.RemoteAddr().String()] = session
	return session
}

// bindUserSession routes future execution reports for userID at the session.
func (s *Server) bindUserSession(userID uint64, address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	s.userSessions[userID] = address
}

// dropClientSession is an atomic map remove; it also closes the connection.
func (s *Server) dropClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	delete(s.clientSessions, conn.RemoteAddr().String())
	if err := conn.Close(); err != nil {
		log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("error closing connection")
	}
}
