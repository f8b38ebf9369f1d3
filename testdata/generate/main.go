package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// Generates one deterministic sample trading day: the order book CSV,
// the call-candidate JSON and the email-instruction JSON. The outputs
// include clean matches, a split execution, a CMP instruction, a
// quantity typo and orders with no evidence at all.

const tradingDay = "2025-08-05"

type order struct {
	id       int64
	clientID string
	symbol   string
	side     string
	qty      int64
	price    string
	status   string
	placedAt time.Time
}

type call struct {
	CallID       string `json:"call_id"`
	ClientID     string `json:"client_id"`
	MobileNumber string `json:"mobile_number"`
	Recording    string `json:"recording"`
	CallStart    string `json:"call_start"`
	CallEnd      string `json:"call_end"`
}

type instruction struct {
	GroupID    string   `json:"group_id"`
	ClientCode string   `json:"client_code"`
	Symbol     string   `json:"symbol"`
	BuySell    string   `json:"buy_sell"`
	Quantity   any      `json:"quantity,omitempty"`
	Price      any      `json:"price,omitempty"`
	OrderTime  string   `json:"order_time,omitempty"`
	MessageIDs []string `json:"message_ids,omitempty"`
}

func main() {
	rng := rand.New(rand.NewSource(7))
	baseDir := findTestdataDir()
	day, _ := time.Parse("2006-01-02", tradingDay)

	at := func(h, m, s int) time.Time {
		return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second).UTC()
	}

	nextID := int64(25090000000001)
	mkID := func() int64 {
		id := nextID
		nextID += 1 + int64(rng.Intn(40))
		return id
	}

	orders := []order{
		// Clean email match.
		{mkID(), "NEOWM00101", "MANAPPURAM-EQ", "B", 5000, "185.50", "COMPLETE", at(9, 47, 12)},
		// Split execution: three fills against one 100k instruction.
		{mkID(), "NEOWM00217", "BLUEJET", "B", 40000, "310.00", "COMPLETE", at(10, 2, 5)},
		{mkID(), "NEOWM00217", "BLUEJET", "B", 35000, "310.00", "COMPLETE", at(10, 6, 40)},
		{mkID(), "NEOWM00217", "BLUEJET", "B", 25000, "310.00", "COMPLETE", at(10, 11, 18)},
		// CMP instruction: price left to the desk.
		{mkID(), "NEOWM00330", "ENERGYINF", "S", 12000, "128.75", "COMPLETE", at(11, 20, 3)},
		// Quantity typo pair: instructed 1731271, executed 1731.
		{mkID(), "NEOWM00412", "RELIANCE", "B", 1731, "2940.10", "COMPLETE", at(12, 5, 55)},
		// Audio-only client: two orders near calls, one far away.
		{mkID(), "NEOWM00555", "TATASTEEL", "B", 800, "164.30", "COMPLETE", at(9, 31, 9)},
		{mkID(), "NEOWM00555", "TATASTEEL", "S", 800, "166.10", "COMPLETE", at(13, 44, 27)},
		// Cancelled order: excluded from no-evidence highlighting.
		{mkID(), "NEOWM00601", "INFY", "B", 250, "1820.00", "CANCELLED", at(10, 55, 41)},
		// Executed with no evidence anywhere: must surface for audit.
		{mkID(), "NEOWM00601", "INFY", "B", 600, "1822.40", "COMPLETE", at(14, 12, 2)},
	}

	calls := []call{
		{"CALL-0001", "NEOWM00555", "9820011001", "rec_0001.wav", at(9, 28, 0).Format(time.RFC3339), at(9, 33, 30).Format(time.RFC3339)},
		{"CALL-0002", "NEOWM00555", "9820011001", "rec_0002.wav", at(13, 10, 0).Format(time.RFC3339), at(13, 15, 45).Format(time.RFC3339)},
		{"CALL-0003", "NEOWM00330", "9820022002", "rec_0003.wav", at(11, 16, 0).Format(time.RFC3339), at(11, 22, 10).Format(time.RFC3339)},
	}

	insts := []instruction{
		{
			GroupID:    "NEOWM00101_MANAPPURAM",
			ClientCode: "WM00101",
			Symbol:     "Manappuram Finance Limited",
			BuySell:    "BUY",
			Quantity:   5000,
			Price:      "185.50",
			OrderTime:  at(9, 30, 0).Format(time.RFC3339),
			MessageIDs: []string{"<msg-101-a@neowealth>"},
		},
		{
			GroupID:    "NEOWM00217_BLUEJET",
			ClientCode: "NEOWM00217",
			Symbol:     "Blue Jet Healthcare",
			BuySell:    "BUY",
			Quantity:   100000,
			Price:      "310",
			OrderTime:  at(9, 55, 0).Format(time.RFC3339),
			MessageIDs: []string{"<msg-217-a@neowealth>", "<msg-217-b@neowealth>"},
		},
		{
			GroupID:    "NEOWM00330_ENERGYINF",
			ClientCode: "NEOWM00330",
			Symbol:     "Energy Infrastructure Trust",
			BuySell:    "SELL",
			Quantity:   12000,
			Price:      "CMP",
			OrderTime:  at(11, 0, 0).Format(time.RFC3339),
			MessageIDs: []string{"<msg-330-a@neowealth>"},
		},
		{
			GroupID:    "NEOWM00412_RELIANCE",
			ClientCode: "NEOWM00412",
			Symbol:     "RELIANCE",
			BuySell:    "BUY",
			Quantity:   1731271,
			Price:      "2940.10",
			OrderTime:  at(11, 45, 0).Format(time.RFC3339),
			MessageIDs: []string{"<msg-412-a@neowealth>"},
		},
		// Instruction with no matching order at all.
		{
			GroupID:    "NEOWM00999_HDFCBANK",
			ClientCode: "NEOWM00999",
			Symbol:     "HDFCBANK",
			BuySell:    "SELL",
			Quantity:   300,
			Price:      "1650",
			OrderTime:  at(12, 30, 0).Format(time.RFC3339),
			MessageIDs: []string{"<msg-999-a@neowealth>"},
		},
	}

	writeOrderBook(filepath.Join(baseDir, "orderbook.csv"), orders)
	writeJSONFile(filepath.Join(baseDir, "calls.json"), calls)
	writeJSONFile(filepath.Join(baseDir, "emails.json"), insts)

	fmt.Printf("Generated %d orders, %d calls, %d instructions for %s\n",
		len(orders), len(calls), len(insts), tradingDay)
}

func writeOrderBook(path string, orders []order) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{
		"NorenOrderID", "ClientID", "Symbol", "Qty", "Price",
		"BuySell", "Status", "OrgTimeStamp", "ExchOrderID",
	})
	for i, o := range orders {
		w.Write([]string{
			fmt.Sprintf("%d", o.id),
			o.clientID,
			o.symbol,
			fmt.Sprintf("%d", o.qty),
			o.price,
			o.side,
			o.status,
			o.placedAt.Format(time.RFC3339),
			fmt.Sprintf("EX%08d", i+1),
		})
	}
	fmt.Printf("Generated %d order rows -> orderbook.csv\n", len(orders))
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	candidates := []string{
		"testdata",
		"./testdata",
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
