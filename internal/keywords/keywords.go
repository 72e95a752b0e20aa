// Package keywords scans call transcripts for fixed spam and business phrases.
package keywords

import "strings"

// SpamTerms are phrases typical of scam and fraud calls.
var SpamTerms = []string{
	"otp", "urgent", "verify", "bank account", "blocked", "suspend",
	"immediately", "prize", "lottery", "congratulations", "winner",
	"click here", "limited time", "act now", "card details",
	"password", "pin", "cvv", "update kyc", "account suspended",
	"fraud", "security alert", "unauthorized", "confirm identity",
	"aadhaar", "pan card", "refund", "cashback", "offer expires",
}

// BusinessTerms are phrases typical of delivery and business calls.
var BusinessTerms = []string{
	"delivery", "order", "package", "courier", "swiggy", "zomato",
	"address", "location", "reaching", "arriving", "outside", "gate",
	"apartment", "pickup", "drop", "food", "restaurant", "amazon",
	"flipkart", "parcel", "shipment", "tracking", "delivered",
}

// Matches holds the terms found in a text, in list order.
type Matches struct {
	Spam     []string
	Business []string
}

// SpamCount returns the number of spam terms found.
func (m Matches) SpamCount() int { return len(m.Spam) }

// BusinessCount returns the number of business terms found.
func (m Matches) BusinessCount() int { return len(m.Business) }

// All returns spam matches followed by business matches.
func (m Matches) All() []string {
	out := make([]string, 0, len(m.Spam)+len(m.Business))
	out = append(out, m.Spam...)
	return append(out, m.Business...)
}

// Extract lower-cases text and reports which terms occur as substrings.
// No tokenization or stemming is applied, so "urgently" matches "urgent".
func Extract(text string) Matches {
	if text == "" {
		return Matches{Spam: []string{}, Business: []string{}}
	}
	lower := strings.ToLower(text)
	return Matches{
		Spam:     scan(lower, SpamTerms),
		Business: scan(lower, BusinessTerms),
	}
}

func scan(lower string, terms []string) []string {
	found := []string{}
	for _, term := range terms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}
