package wallet

// Card is one wallet widget on the page.
type Card struct {
	Chain   Chain  `json:"chain"`
	Label   string `json:"label"`
	Address string `json:"address"`
}

// Display is the address as the card shows it: names in full, raw
// addresses truncated.
func (c Card) Display() string {
	if Classify(c.Chain, c.Address) == KindDomain {
		return c.Address
	}
	return Truncate(c.Address, DefaultTruncateStart, DefaultTruncateEnd)
}

func (c Card) Valid() bool { return Classify(c.Chain, c.Address) != KindInvalid }
