package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/medhelper/labcart/internal/domain"
)

// Card is the payment payload of a checkout. It is never persisted or
// logged; only the last four digits leave this package.
type Card struct {
	Number   string  `json:"card_number"`
	ExpMonth int     `json:"exp_month"`
	ExpYear  ExpYear `json:"exp_year"`
	CVC      string  `json:"cvc"`
}

// ExpYear accepts both "30" and 2030 style JSON values.
type ExpYear string

func (y *ExpYear) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*y = ExpYear(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("exp_year must be a string or number: %w", err)
	}
	*y = ExpYear(n.String())
	return nil
}

// Digits strips everything but 0-9 from the card number.
func (c Card) Digits() string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, c.Number)
}

// Last4 is the only part of the number that may be stored.
func (c Card) Last4() string {
	d := c.Digits()
	if len(d) <= 4 {
		return d
	}
	return d[len(d)-4:]
}

// NormalizedYear expands a two digit year to 20NN.
func (c Card) NormalizedYear() (int, error) {
	s := string(c.ExpYear)
	if s == "" {
		return 0, fmt.Errorf("year is required")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("year must be numeric")
		}
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("year must be numeric")
	}
	if len(s) == 2 {
		year += 2000
	}
	return year, nil
}

// Validate checks the card against the acceptance rules at now.
func Validate(c Card, now time.Time) error {
	verr := &domain.ValidationError{}

	if n := len(c.Digits()); n < 12 || n > 19 {
		verr.Add("card_number", "must be 12-19 digits")
	}
	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		verr.Add("exp_month", "must be between 1 and 12")
	}

	year, err := c.NormalizedYear()
	switch {
	case err != nil:
		verr.Add("exp_year", err.Error())
	case year < now.Year() || year > now.Year()+10:
		verr.Add("exp_year", "invalid expiration year")
	}

	if n := len(c.CVC); n < 3 || n > 4 {
		verr.Add("cvc", "must be 3 or 4 characters")
	}

	return verr.OrNil()
}
