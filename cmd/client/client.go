package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"vidar/internal/common"
	"vidar/internal/fixed"
	vidarNet "vidar/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	user := flag.Uint64("user", 0, "User id (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'log']")

	// Order parameters
	sideStr := flag.String("side", "buy", "Order side: ['buy', 'sell']")
	priceStr := flag.String("price", "", "Limit price as a decimal string, e.g. 50000.25")
	qtyStr := flag.String("qty", "", "Quantity as a decimal string; comma-separate to send several")
	orderID := flag.Uint64("id", 0, "Order id (0 = assigned by the venue; required for cancel)")

	flag.Parse()

	if *user == 0 && strings.ToLower(*action) != "log" {
		log.Fatal("Error: -user is required")
	}

	var side common.Side
	switch strings.ToLower(*sideStr) {
	case "buy":
		side = common.Buy
	case "sell":
		side = common.Sell
	default:
		log.Fatalf("Unknown side: %s", *sideStr)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		price, err := fixed.ToFixed(*priceStr)
		if err != nil {
			log.Fatalf("Invalid price %q: %v", *priceStr, err)
		}
		for _, qty := range parseQuantities(*qtyStr) {
			order := common.NewOrder(*orderID, *user, side, price, qty, 0)
			if _, err := conn.Write(vidarNet.EncodeSubmitOrder(order)); err != nil {
				log.Printf("Failed to place order (qty %s): %v", fixed.FromFixed(qty), err)
				continue
			}
			fmt.Printf("-> Sent %s %s @ %s\n",
				strings.ToUpper(*sideStr), fixed.FromFixed(qty), fixed.FromFixed(price))
			// Small optional sleep so the server processes the sequence distinctly.
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == 0 {
			log.Fatal("Error: -id is required for cancellation")
		}
		if _, err := conn.Write(vidarNet.EncodeCancelOrder(*orderID)); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent cancel request for order %d\n", *orderID)
		}

	case "log":
		if _, err := conn.Write(vidarNet.EncodeLogBook()); err != nil {
			log.Printf("Failed to send log request: %v", err)
		} else {
			fmt.Println("-> Sent log request")
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive execution reports.
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

// parseQuantities converts a comma-separated list of decimal strings into
// fixed-point quantities.
func parseQuantities(input string) []uint64 {
	var result []uint64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		qty, err := fixed.ToFixed(p)
		if err != nil {
			log.Printf("Warning: invalid quantity %q, skipping.", p)
			continue
		}
		result = append(result, qty)
	}
	return result
}

// readReports continuously reads and prints report frames from the server.
func readReports(conn net.Conn) {
	header := make([]byte, vidarNet.ReportHeaderLen)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("Connection lost: %v", err)
			}
			os.Exit(0)
		}

		switch vidarNet.ReportType(header[0]) {
		case vidarNet.ExecutionReport:
			body := make([]byte, common.TradeEncodedLen)
			if _, err := io.ReadFull(conn, body); err != nil {
				log.Printf("Error reading execution report: %v", err)
				return
			}
			trade, err := vidarNet.DecodeExecutionReport(body)
			if err != nil {
				log.Printf("Error decoding execution report: %v", err)
				return
			}
			fmt.Printf("\n[EXECUTION] %s\n", trade)

		case vidarNet.ErrorReport:
			lenBuf := make([]byte, 4)
			if _, err := io.ReadFull(conn, lenBuf); err != nil {
				log.Printf("Error reading error report: %v", err)
				return
			}
			msg := make([]byte, binary.LittleEndian.Uint32(lenBuf))
			if _, err := io.ReadFull(conn, msg); err != nil {
				log.Printf("Error reading error report: %v", err)
				return
			}
			fmt.Printf("\n[SERVER ERROR] %s\n", msg)

		default:
			log.Printf("Unknown report type %d", header[0])
			return
		}
	}
}
