// Command cartctl is a CLI client for the cartd HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ---- guest cookie store ----

type cookieFile struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "cartd")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cartd")
}

func cookiePath() string { return filepath.Join(cfgDir(), "guest_session.json") }

func saveCookie(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(cookiePath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cookieFile{Token: tok, ExpiresAt: exp})
}

func loadCookie() (string, error) {
	b, err := os.ReadFile(cookiePath())
	if err != nil {
		return "", err
	}
	var cf cookieFile
	if err := json.Unmarshal(b, &cf); err != nil {
		return "", err
	}
	if !cf.ExpiresAt.IsZero() && cf.ExpiresAt.Before(time.Now()) {
		return "", nil
	}
	return cf.Token, nil
}

// ---- HTTP client ----

const guestCookieName = "guest_session"

type client struct {
	base   string
	bearer string
	hc     *http.Client
}

// do sends one request with auth and guest cookie attached, persisting
// any refreshed guest cookie from the response.
func (c *client) do(method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if tok, err := loadCookie(); err == nil && tok != "" {
		req.AddCookie(&http.Cookie{Name: guestCookieName, Value: tok})
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	for _, ck := range resp.Cookies() {
		if ck.Name == guestCookieName {
			exp := time.Now().Add(time.Duration(ck.MaxAge) * time.Second)
			if err := saveCookie(ck.Value, exp); err != nil {
				fmt.Fprintf(os.Stderr, "warn: save guest cookie: %v\n", err)
			}
		}
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, e.Error)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type cartView struct {
	Items []struct {
		ItemID  string `json:"itemId"`
		Variant struct {
			SKU        string `json:"sku"`
			PriceCents int64  `json:"priceCents"`
		} `json:"variant"`
		Quantity int32 `json:"quantity"`
	} `json:"items"`
	TotalItems      int32 `json:"totalItems"`
	TotalPriceCents int64 `json:"totalPriceCents"`
}

// ---- commands ----

func cmdAdd(c *client, variantID string) error {
	in := map[string]string{"productVariantId": variantID}
	return c.do(http.MethodPost, "/api/cart/items", in, nil)
}

func cmdView(c *client, w io.Writer) error {
	var view cartView
	if err := c.do(http.MethodGet, "/api/cart", nil, &view); err != nil {
		return err
	}
	for _, it := range view.Items {
		fmt.Fprintf(w, "%s\t%s\tx%d\t%d.%02d\n",
			it.ItemID, it.Variant.SKU, it.Quantity,
			it.Variant.PriceCents/100, it.Variant.PriceCents%100)
	}
	fmt.Fprintf(w, "items: %d\ttotal: %d.%02d\n",
		view.TotalItems, view.TotalPriceCents/100, view.TotalPriceCents%100)
	return nil
}

func cmdSet(c *client, itemID, qty string) error {
	var q int32
	if _, err := fmt.Sscanf(qty, "%d", &q); err != nil {
		return fmt.Errorf("bad quantity %q", qty)
	}
	in := map[string]int32{"quantity": q}
	return c.do(http.MethodPatch, "/api/cart/items/"+itemID, in, nil)
}

func cmdRemove(c *client, itemID string) error {
	return c.do(http.MethodDelete, "/api/cart/items/"+itemID, nil, nil)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cartctl [flags] <command>
commands:
  add <variant-id>        add one unit of a variant to the cart
  view                    print the cart with totals
  set <item-id> <qty>     set an item's quantity (0 removes it)
  rm <item-id>            remove an item`)
	flag.PrintDefaults()
}

func main() {
	server := flag.String("server", "http://localhost:8080", "cartd base URL")
	bearer := flag.String("token", "", "user access token (optional)")
	flag.Usage = usage
	flag.Parse()

	c := &client{base: *server, bearer: *bearer, hc: &http.Client{Timeout: 10 * time.Second}}

	var err error
	switch flag.Arg(0) {
	case "add":
		if flag.NArg() != 2 {
			usage()
			os.Exit(2)
		}
		err = cmdAdd(c, flag.Arg(1))
	case "view":
		err = cmdView(c, os.Stdout)
	case "set":
		if flag.NArg() != 3 {
			usage()
			os.Exit(2)
		}
		err = cmdSet(c, flag.Arg(1), flag.Arg(2))
	case "rm":
		if flag.NArg() != 2 {
			usage()
			os.Exit(2)
		}
		err = cmdRemove(c, flag.Arg(1))
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
