// Package currency formats and converts monetary values over the fixed
// currency set the marketplace supports. Rates default to a static table and
// may be refreshed from a remote source; an unreachable source leaves the
// defaults in effect.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Code string

const (
	GHS Code = "GHS"
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
	NGN Code = "NGN"
)

// DefaultCode is used when a lookup key is unknown.
const DefaultCode = GHS

var symbols = map[Code]string{
	GHS: "GH₵",
	USD: "$",
	EUR: "€",
	GBP: "£",
	NGN: "₦",
}

// defaultRates are units per 1 USD.
var defaultRates = map[Code]float64{
	USD: 1.0,
	GHS: 15.20,
	EUR: 0.92,
	GBP: 0.79,
	NGN: 1650.0,
}

func Supported(code Code) bool {
	_, ok := defaultRates[code]
	return ok
}

// Normalize upper-cases the code and falls back to DefaultCode when unknown.
func Normalize(raw string) Code {
	code := Code(strings.ToUpper(strings.TrimSpace(raw)))
	if !Supported(code) {
		return DefaultCode
	}
	return code
}

func Symbol(code Code) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return symbols[DefaultCode]
}

// FormatOptions controls Format output. The zero value gives a symbol prefix
// with two decimals and no currency-code suffix.
type FormatOptions struct {
	WithCode  bool // append " USD" style suffix
	NoDecimal bool // drop the fractional part
}

// Format renders an amount as a symbol-prefixed string, e.g. "$100.00".
// The currency code is appended only when opts.WithCode is set.
func Format(amount float64, code Code, opts ...FormatOptions) string {
	var opt FormatOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	code = Normalize(string(code))

	var body string
	if opt.NoDecimal {
		body = groupThousands(fmt.Sprintf("%.0f", amount))
	} else {
		fixed := fmt.Sprintf("%.2f", amount)
		dot := strings.LastIndexByte(fixed, '.')
		body = groupThousands(fixed[:dot]) + fixed[dot:]
	}

	out := Symbol(code) + body
	if opt.WithCode {
		out += " " + string(code)
	}
	return out
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Table holds the live rate set. Reads and refreshes are goroutine-safe.
type Table struct {
	mu        sync.RWMutex
	rates     map[Code]float64
	source    string
	client    *http.Client
	log       *logrus.Logger
	refreshed time.Time
	remote    bool
}

// NewTable starts from the static defaults. sourceURL may be empty, in which
// case Refresh is a no-op and the defaults stay in effect.
func NewTable(sourceURL string, log *logrus.Logger) *Table {
	rates := make(map[Code]float64, len(defaultRates))
	for k, v := range defaultRates {
		rates[k] = v
	}

	return &Table{
		rates:  rates,
		source: sourceURL,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Rate returns units of code per 1 USD.
func (t *Table) Rate(code Code) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if r, ok := t.rates[Normalize(string(code))]; ok {
		return r
	}
	return t.rates[DefaultCode]
}

// Convert re-denominates amount from one supported currency to another.
func (t *Table) Convert(amount float64, from, to Code) float64 {
	if from == to {
		return amount
	}
	usd := amount / t.Rate(from)
	return usd * t.Rate(to)
}

// Snapshot returns a copy of the current rates plus the active source label
// ("remote" once a refresh has succeeded, "default" otherwise).
func (t *Table) Snapshot() (map[Code]float64, string, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[Code]float64, len(t.rates))
	for k, v := range t.rates {
		out[k] = v
	}

	source := "default"
	if t.remote {
		source = "remote"
	}
	return out, source, t.refreshed
}

// Refresh pulls the remote feed. Any failure leaves the current table
// untouched; the caller keeps serving the last known rates.
func (t *Table) Refresh(ctx context.Context) error {
	if t.source == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.source, nil)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if t.log != nil {
			t.log.WithError(err).Warn("currency rate refresh failed, keeping previous rates")
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}

	fresh := make(map[Code]float64, len(defaultRates))
	for code := range defaultRates {
		r, ok := payload.Rates[string(code)]
		if !ok || r <= 0 {
			// Partial feeds keep the default for the missing currency.
			r = defaultRates[code]
		}
		fresh[code] = r
	}

	t.mu.Lock()
	t.rates = fresh
	t.refreshed = time.Now()
	t.remote = true
	t.mu.Unlock()

	return nil
}
