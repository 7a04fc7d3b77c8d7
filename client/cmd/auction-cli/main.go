package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/escrowauction/client"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/enclaveapi"
)

func main() {
	var (
		transport = flag.String("transport", client.TransportVsock, "Transport: vsock or tcp")
		address   = flag.String("addr", "127.0.0.1:5000", "Enclave address (tcp)")
		cid       = flag.Uint("cid", 16, "Enclave CID (vsock)")
		port      = flag.Uint("port", 5000, "Enclave port (vsock)")
		caller    = flag.String("caller", "", "Acting account")
		amount    = flag.String("amount", "", "Amount in whole base units (deposit, place_bid)")
		since     = flag.Uint64("since", 0, "Return events after this sequence (get_events)")
		timeout   = flag.Duration("timeout", 30*time.Second, "Request timeout")
		help      = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: exactly one request type is required\n")
		os.Exit(1)
	}

	req := enclaveapi.EnclaveRequest{
		Type:   flag.Arg(0),
		Caller: core.Identity(*caller),
		Since:  *since,
	}
	if *amount != "" {
		parsed, err := decimal.NewFromString(*amount)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
			os.Exit(1)
		}
		req.Amount = parsed
	}

	c, err := client.New(client.Target{
		Transport: *transport,
		Address:   *address,
		CID:       uint32(*cid),
		Port:      uint32(*port),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	resp, err := c.DoWithTimeout(req, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(2)
	}

	output, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding response: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(output))

	if !resp.Success {
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("Escrow Auction CLI")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  auction-cli [flags] <request-type>")
	fmt.Println()
	fmt.Println("Request types:")
	fmt.Println("  ping, deposit, get_balance, place_bid, finalize, withdraw,")
	fmt.Println("  get_winner, get_auction_details, get_events")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  auction-cli --caller 0xalice --amount 1000 deposit")
	fmt.Println("  auction-cli --caller 0xalice --amount 600 place_bid")
	fmt.Println("  auction-cli --transport tcp --addr 127.0.0.1:5000 get_winner")
	fmt.Println()
	fmt.Println("Exit codes:")
	fmt.Println("  0 - Request succeeded")
	fmt.Println("  1 - Request rejected or invalid input")
	fmt.Println("  2 - Transport error")
}
