package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/enclaveapi"
)

// EnclaveServer accepts one JSON request per connection and answers it from the auction house
type EnclaveServer struct {
	cfg   Config
	house *AuctionHouse
}

func NewEnclaveServer(cfg Config, house *AuctionHouse) *EnclaveServer {
	return &EnclaveServer{cfg: cfg, house: house}
}

// getEnclaveAttester attempts to get the NSM attester, returns error if not available
func getEnclaveAttester() (EnclaveAttester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

func (s *EnclaveServer) listen() (net.Listener, error) {
	switch s.cfg.Transport {
	case TransportTCP:
		listener, err := net.Listen("tcp", s.cfg.TCPAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		log.Printf("INFO: TEE server listening on tcp %s", listener.Addr())
		return listener, nil
	default:
		listener, err := vsock.Listen(s.cfg.Port, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		log.Printf("INFO: TEE server listening on vsock port %d", s.cfg.Port)
		return listener, nil
	}
}

func (s *EnclaveServer) Start() error {
	listener, err := s.listen()
	if err != nil {
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()
	return s.Serve(listener)
}

// Serve runs the accept loop until the listener is closed
func (s *EnclaveServer) Serve(listener net.Listener) error {
	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.cfg.MaxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Printf("INFO: Listener closed, stopping server")
				return nil
			}
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *EnclaveServer) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	var response enclaveapi.EnclaveResponse
	var req enclaveapi.EnclaveRequest
	if err := json.Unmarshal(buf.Bytes(), &req); err != nil {
		log.Printf("ERROR: Failed to decode request: %v", err)
		response = enclaveapi.EnclaveResponse{
			Type:      "error",
			Message:   fmt.Sprintf("Failed to decode request: %v", err),
			ErrorCode: "bad_request",
		}
	} else {
		log.Printf("INFO: Received request type: %s", req.Type)
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReadTimeout)
		response = s.house.Handle(ctx, req)
		cancel()
	}

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	} else {
		log.Printf("INFO: Successfully sent response for %s", req.Type)
	}
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("ERROR: Invalid configuration: %v", err)
	}

	ledger := NewAccountLedger(cfg.FrozenIdentities()...)
	house, err := NewAuctionHouse(HouseConfig{
		AuctionID:       cfg.AuctionID,
		Beneficiary:     core.Identity(cfg.Beneficiary),
		DurationMinutes: cfg.DurationMinutes,
		Ledger:          ledger,
	})
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	details := house.auction.Details()
	log.Printf("INFO: Auction %s open for %s until %s", details.ID, details.Beneficiary, details.Deadline.Format(time.RFC3339))

	server := NewEnclaveServer(cfg, house)
	log.Fatal(server.Start())
}
