// Command matchctl is a CLI client for matchd: it places or cancels
// orders and prints execution/error reports as they arrive.
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

	"ironbook/internal/model"
	"ironbook/internal/wire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the matchd server")
	action := flag.String("action", "place", "action to perform: place, cancel")

	instrument := flag.String("instrument", "AAPL", "instrument symbol")
	sideStr := flag.String("side", "buy", "buy or sell")
	typeStr := flag.String("type", "limit", "limit or market")
	flagStr := flag.String("flag", "none", "none, fok, aon, or ioc")
	price := flag.Float64("price", 0, "limit price")
	volume := flag.Float64("volume", 1, "order volume")
	exchange := flag.String("exchange", "NASDAQ", "exchange name")

	orderID := flag.String("id", "", "order ID to cancel")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		msg := &wire.NewOrderMessage{
			Instrument: *instrument,
			Price:      *price,
			Volume:     *volume,
			Side:       parseSide(*sideStr),
			OrderType:  parseOrderType(*typeStr),
			Flag:       parseFlag(*flagStr),
			Exchange:   *exchange,
		}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Fatalf("failed to send order: %v", err)
		}
		fmt.Printf("-> sent %s %s order: %.2f @ %.2f\n", *sideStr, *typeStr, *volume, *price)

	case "cancel":
		if *orderID == "" {
			log.Fatal("-id is required for cancel")
		}
		msg := &wire.CancelOrderMessage{
			Instrument: *instrument,
			OrderID:    *orderID,
			Side:       parseSide(*sideStr),
			Price:      *price,
		}
		encoded, err := msg.Serialize()
		if err != nil {
			log.Fatalf("failed to encode cancel: %v", err)
		}
		if _, err := conn.Write(encoded); err != nil {
			log.Fatalf("failed to send cancel: %v", err)
		}
		fmt.Printf("-> sent cancel for %s\n", *orderID)

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (ctrl-c to exit)")
	select {}
}

func readReports(conn net.Conn) {
	for {
		header := make([]byte, 38)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		errLen := int(binary.BigEndian.Uint32(header[34:38]))
		full := header
		if errLen > 0 {
			rest := make([]byte, errLen)
			if _, err := io.ReadFull(conn, rest); err != nil {
				log.Printf("error reading report body: %v", err)
				return
			}
			full = append(full, rest...)
		}

		report, err := wire.ParseReport(full)
		if err != nil {
			log.Printf("error parsing report: %v", err)
			continue
		}

		if report.Type == wire.ErrorReport {
			fmt.Printf("\n[ERROR] %s\n", report.Err)
			continue
		}
		fmt.Printf("\n[TRADE] %s %s %.2f @ %.2f\n", report.Instrument, report.Side, report.Volume, report.Price)
	}
}

func parseSide(s string) model.Side {
	if strings.EqualFold(s, "sell") {
		return model.Sell
	}
	return model.Buy
}

func parseOrderType(s string) model.OrderType {
	if strings.EqualFold(s, "market") {
		return model.MarketOrder
	}
	return model.LimitOrder
}

func parseFlag(s string) model.OrderFlag {
	switch strings.ToLower(s) {
	case "fok":
		return model.FillOrKill
	case "aon":
		return model.AllOrNone
	case "ioc":
		return model.ImmediateOrCancel
	default:
		return model.None
	}
}
