package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
	"github.com/Hariprasath006/Campus-Resource-Management/pkg/config"
)

// devflow drives the booking lifecycle against a running API:
//
//	A: U1 books R1 (PENDING), U2 tries the same slot (SLOT_TAKEN)
//	B: staff approves, U1 asks to cancel, admin approves the cancellation
//	C: U1 books again, staff approves, admin force-rejects, admin undoes it
//
// Every run creates a fresh resource so it can be repeated against Postgres.
func main() {
	var (
		baseURL = flag.String("base-url", "", "API base url (defaults to http://localhost<HTTP_ADDR>)")
		date    = flag.String("date", "2024-06-01", "booking date")
		slot    = flag.String("slot", "10:00-11:00", "time slot label")
	)
	flag.Parse()

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = defaultBaseURL(cfg.HTTPAddr)
	}

	c := &client{
		base: strings.TrimRight(*baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
	if cfg.Auth.JWTSecret != "" {
		c.tokens = identity.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	}

	var (
		admin = identity.Actor{ID: "devflow-admin", Role: identity.RoleAdmin, Name: "Admin"}
		staff = identity.Actor{ID: "devflow-staff", Role: identity.RoleStaff, Name: "Staff"}
		u1    = identity.Actor{ID: "devflow-u1", Role: identity.RoleStudent, Name: "U1"}
		u2    = identity.Actor{ID: "devflow-u2", Role: identity.RoleStudent, Name: "U2"}
	)

	var res struct {
		ID string `json:"id"`
	}
	c.must(admin, http.MethodPost, "/v1/resources", map[string]any{
		"name": fmt.Sprintf("R1 devflow %d", time.Now().Unix()),
		"type": "ROOM",
	}, http.StatusCreated, &res)
	fmt.Printf("resource_id=%s\n", res.ID)

	req := map[string]any{"resourceId": res.ID, "bookingDate": *date, "timeSlot": *slot}

	fmt.Println("\nScenario A")
	var a bookingResp
	c.must(u1, http.MethodPost, "/v1/bookings", req, http.StatusCreated, &a)
	fmt.Printf("  U1 booked %s -> %s\n", a.ID, a.Status)
	c.must(u2, http.MethodPost, "/v1/bookings", req, http.StatusConflict, nil)
	fmt.Println("  U2 same slot -> SLOT_TAKEN")

	fmt.Println("\nScenario B")
	c.transition(staff, a.ID, "APPROVED")
	c.transition(u1, a.ID, "CANCELLATION_REQUESTED")
	c.transition(admin, a.ID, "CANCELLED")

	fmt.Println("\nScenario C")
	var b bookingResp
	c.must(u1, http.MethodPost, "/v1/bookings", req, http.StatusCreated, &b)
	fmt.Printf("  U1 booked %s -> %s\n", b.ID, b.Status)
	c.transition(staff, b.ID, "APPROVED")
	c.transition(admin, b.ID, "REJECTED")
	c.transition(admin, b.ID, "APPROVED")

	var hist struct {
		Items []struct {
			Action     string `json:"action"`
			FromStatus string `json:"fromStatus"`
			ToStatus   string `json:"toStatus"`
			ActorID    string `json:"actorId"`
		} `json:"items"`
	}
	c.must(admin, http.MethodGet, "/v1/bookings/"+b.ID+"/history", nil, http.StatusOK, &hist)
	fmt.Printf("\nHistory of %s:\n", b.ID)
	for _, e := range hist.Items {
		fmt.Printf("  - %-22s %s -> %s by %s\n", e.Action, e.FromStatus, e.ToStatus, e.ActorID)
	}
}

type bookingResp struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type client struct {
	base   string
	http   *http.Client
	tokens *identity.TokenService
}

func (c *client) transition(actor identity.Actor, id, to string) {
	var out bookingResp
	c.must(actor, http.MethodPatch, "/v1/bookings/"+id+"/status", map[string]any{"status": to}, http.StatusOK, &out)
	fmt.Printf("  %s %s -> %s\n", actor.Role, id, out.Status)
}

// must sends the request as actor and exits unless the API answers with want.
func (c *client) must(actor identity.Actor, method, path string, body any, want int, out any) {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	if err != nil {
		fail("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		tok, err := c.tokens.Issue(actor, 10*time.Minute, time.Now())
		if err != nil {
			fail("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		// Accepted only when the API is not running with APP_ENV=prod.
		req.Header.Set("X-User-ID", actor.ID)
		req.Header.Set("X-User-Role", string(actor.Role))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fail("%s %s: %v\ntip: is the API running, and is HTTP_ADDR set correctly? base_url=%s", method, path, err, c.base)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		fail("%s %s: status=%d want=%d body=%s", method, path, resp.StatusCode, want, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fail("%s %s: decode: %v", method, path, err)
		}
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func defaultBaseURL(httpAddr string) string {
	// httpAddr is typically ":8080" or "0.0.0.0:8080".
	addr := strings.TrimSpace(httpAddr)
	switch {
	case addr == "":
		return "http://localhost:8080"
	case strings.HasPrefix(addr, ":"):
		return "http://localhost" + addr
	case strings.HasPrefix(addr, "0.0.0.0:"):
		return "http://localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	default:
		return "http://" + addr
	}
}
