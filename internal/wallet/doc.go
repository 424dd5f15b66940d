// Package wallet validates and formats the addresses shown on the wallet
// cards, and describes the Solana network the page would connect to. It
// never talks to a chain.
package wallet
