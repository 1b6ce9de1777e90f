// rentflow seeds a listing and drives a booking through the happy path
// against a locally running API: request, accept, pay (signed webhook),
// confirm pickup both sides, confirm return both sides.
//
// System transitions (ACCEPTED->PICKUP, IN_PROGRESS->RETURN) come from the
// scheduler sweep; run the API with a short SCHEDULER_SWEEP_INTERVAL so this
// tool does not wait an hour between phases.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"gearshare/pkg/config"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "", "api base url (defaults to http://localhost<HTTP_ADDR>)")
		ownerID  = flag.String("owner", uuid.NewString(), "owner user id")
		renterID = flag.String("renter", uuid.NewString(), "renter user id")
		days     = flag.Int("days", 3, "rental length in days")
		secret   = flag.String("webhook-secret", "", "PAYMENT_WEBHOOK_SECRET used by the server")
		wait     = flag.Duration("wait", 2*time.Minute, "how long to wait for each scheduler-driven phase")
	)
	flag.Parse()

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = defaultBaseURL(cfg.HTTPAddr)
	}
	if *secret == "" {
		*secret = cfg.PaymentWebhookSecret
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing -webhook-secret (or PAYMENT_WEBHOOK_SECRET in env/.env)")
		os.Exit(2)
	}

	c := client{base: *baseURL, http: &http.Client{Timeout: 10 * time.Second}}

	// Owner lists an item.
	var listing struct {
		ID string `json:"id"`
	}
	c.call("POST", "/v1/listings", *ownerID, map[string]any{
		"title":     "Cordless drill",
		"dailyRate": "12.50",
	}, &listing)
	fmt.Printf("listing_id=%s\n", listing.ID)

	// Renter requests dates starting today so the pickup window opens on the
	// next sweep.
	start := time.Now().UTC()
	end := start.AddDate(0, 0, *days)
	var created struct {
		Booking struct {
			ID string `json:"id"`
		} `json:"booking"`
	}
	c.call("POST", "/v1/bookings", *renterID, map[string]any{
		"listingId": listing.ID,
		"startDate": start.Format("2006-01-02"),
		"endDate":   end.Format("2006-01-02"),
		"note":      "weekend project",
	}, &created)
	bookingID := created.Booking.ID
	fmt.Printf("booking_id=%s status=PENDING\n", bookingID)

	c.call("POST", "/v1/bookings/"+bookingID+"/accept", *ownerID, nil, nil)
	fmt.Println("owner accepted")

	// Payment arrives via the provider webhook.
	payload, _ := json.Marshal(map[string]any{
		"bookingId": bookingID,
		"reference": "rentflow-" + uuid.NewString(),
		"amount":    "37.50",
		"status":    "completed",
	})
	req, _ := http.NewRequest(http.MethodPost, *baseURL+"/v1/webhooks/payments/simulated", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Payment-Signature", sign(payload, *secret))
	resp, err := c.http.Do(req)
	if err != nil {
		fail("post webhook: %v", err)
	}
	drain(resp)
	if resp.StatusCode != http.StatusOK {
		fail("webhook status=%d", resp.StatusCode)
	}
	fmt.Println("payment recorded")

	c.waitForStatus(bookingID, *renterID, "PICKUP", *wait)

	c.call("POST", "/v1/bookings/"+bookingID+"/photos", *renterID, map[string]any{
		"phase":      "pickup",
		"storageUrl": "https://storage.example/pickup.jpg",
	}, nil)
	c.call("POST", "/v1/bookings/"+bookingID+"/confirm-pickup", *renterID, nil, nil)
	c.call("POST", "/v1/bookings/"+bookingID+"/confirm-pickup", *renterID, nil, nil)
	fmt.Println("pickup confirmed (renter first, converged to IN_PROGRESS via renter second confirm)")

	c.waitForStatus(bookingID, *renterID, "RETURN", *wait)

	c.call("POST", "/v1/bookings/"+bookingID+"/photos", *renterID, map[string]any{
		"phase":      "return",
		"storageUrl": "https://storage.example/return.jpg",
	}, nil)
	c.call("POST", "/v1/bookings/"+bookingID+"/confirm-return", *renterID, nil, nil)
	c.call("POST", "/v1/bookings/"+bookingID+"/verify-complete", *ownerID, nil, nil)
	fmt.Println("return confirmed, booking COMPLETED")

	c.call("POST", "/v1/bookings/"+bookingID+"/mark-reviewed", *renterID, nil, nil)
	fmt.Println("renter reviewed; flow complete")

	var history struct {
		Items []struct {
			Status    string `json:"status"`
			ActorRole string `json:"actorRole"`
		} `json:"items"`
	}
	c.call("GET", "/v1/bookings/"+bookingID+"/history", *renterID, nil, &history)
	fmt.Println("ledger:")
	for _, e := range history.Items {
		fmt.Printf("  - %s (%s)\n", e.Status, e.ActorRole)
	}
}

type client struct {
	base string
	http *http.Client
}

func (c client) call(method, path, userID string, body, out any) {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		fail("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	resp, err := c.http.Do(req)
	if err != nil {
		fail("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fail("%s %s: status=%d body=%s", method, path, resp.StatusCode, string(b))
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			fail("%s %s: decode: %v", method, path, err)
		}
	}
}

func (c client) waitForStatus(bookingID, userID, want string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for {
		var b struct {
			CurrentStatus string `json:"currentStatus"`
		}
		c.call("GET", "/v1/bookings/"+bookingID, userID, nil, &b)
		if b.CurrentStatus == want {
			fmt.Printf("status=%s\n", want)
			return
		}
		if time.Now().After(deadline) {
			fail("timed out waiting for %s (currently %s); is the scheduler sweeping?", want, b.CurrentStatus)
		}
		time.Sleep(2 * time.Second)
	}
}

func defaultBaseURL(httpAddr string) string {
	addr := strings.TrimSpace(httpAddr)
	if addr == "" {
		addr = ":8081"
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		return "http://localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
