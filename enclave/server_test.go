package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/escrowauction/client"
	"github.com/cloudx-io/escrowauction/enclaveapi"
)

func startTestServer(t *testing.T, h *testHouse) (*client.Client, string) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)

	server := NewEnclaveServer(Config{
		Transport:   TransportTCP,
		MaxWorkers:  4,
		ReadTimeout: 5 * time.Second,
	}, h.AuctionHouse)

	done := make(chan error, 1)
	go func() { done <- server.Serve(listener) }()
	t.Cleanup(func() {
		_ = listener.Close()
		check.NoError(t, <-done)
	})

	c, err := client.New(client.Target{Transport: client.TransportTCP, Address: listener.Addr().String()})
	assert.NoError(t, err)
	return c, listener.Addr().String()
}

func TestEnclaveServer_Auction(t *testing.T) {
	h := newTestHouse(t, CreateMockEnclave(t))
	c, _ := startTestServer(t, h)
	ctx := context.Background()

	send := func(req enclaveapi.EnclaveRequest) *enclaveapi.EnclaveResponse {
		t.Helper()
		resp, err := c.Do(ctx, req)
		assert.NoError(t, err)
		return resp
	}

	resp := send(enclaveapi.EnclaveRequest{Type: enclaveapi.RequestPing})
	check.Equal(t, "pong", resp.Type)
	check.True(t, resp.Success)

	send(enclaveapi.EnclaveRequest{Type: enclaveapi.RequestDeposit, Caller: testAlice, Amount: decimal.NewFromInt(5000)})
	resp = send(enclaveapi.EnclaveRequest{Type: enclaveapi.RequestPlaceBid, Caller: testAlice, Amount: decimal.NewFromInt(5000)})
	assert.True(t, resp.Success)

	h.clock.Advance(time.Hour)

	resp = send(enclaveapi.EnclaveRequest{Type: enclaveapi.RequestFinalize, Caller: testBeneficiary})
	assert.True(t, resp.Success)
	check.Equal(t, "finalize_response", resp.Type)
	check.Equal(t, "4900", resp.Settlement.Payout.String())

	doc := parseSettlementFromCOSE(t, resp.AttestationCOSEBase64)
	check.Equal(t, "4900", doc.UserData.Payout.String())

	resp = send(enclaveapi.EnclaveRequest{Type: enclaveapi.RequestGetEvents})
	check.Equal(t, 2, len(resp.Events))
}

func TestEnclaveServer_MalformedRequest(t *testing.T) {
	h := newTestHouse(t, CreateMockEnclave(t))
	c, addr := startTestServer(t, h)

	ping, err := c.Do(context.Background(), enclaveapi.EnclaveRequest{Type: enclaveapi.RequestPing})
	assert.NoError(t, err)
	assert.True(t, ping.Success)

	// Raw connection to send invalid JSON
	conn, err := net.Dial("tcp", addr)
	assert.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{not json"))
	assert.NoError(t, err)
	assert.NoError(t, conn.(*net.TCPConn).CloseWrite())

	data, err := io.ReadAll(conn)
	assert.NoError(t, err)

	var resp enclaveapi.EnclaveResponse
	assert.NoError(t, json.Unmarshal(data, &resp))
	check.False(t, resp.Success)
	check.Equal(t, "error", resp.Type)
	check.Equal(t, "bad_request", resp.ErrorCode)
}
