// Command sign-order is a small operator tool: generate a throwaway
// keypair, build and EIP-712-sign an OrderIntent, verify the signature
// recovers the same owner, and print the JSON body ready to POST to a
// running marketd's /api/v1/orders endpoint.
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/uhyunpark/hyperlicked/pkg/signing"
)

func main() {
	fmt.Println("Generating new keypair...")
	signer, err := signing.GenerateKey()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Address: %s\n", signer.Address().Hex())
	fmt.Printf("Private Key: %s (KEEP SECRET!)\n\n", signer.PrivateKeyHex())

	// Same per-market domain the API server verifies against: name
	// "hyperlicked:<symbol>", zero verifying contract.
	domain := signing.Domain{
		Name:    "hyperlicked:HYPL-USDC",
		Version: "1",
		ChainID: big.NewInt(1337),
	}

	intent := signing.OrderIntent{
		Symbol:        "HYPL-USDC",
		IsBid:         true,
		OrderType:     0, // OrderLimit
		PriceMantissa: 15000,
		PriceExponent: -5,
		BaseAtoms:     1_000_000_000,
		LastValidSlot: 0,
		Nonce:         1,
		Owner:         signer.Address(),
	}

	fmt.Println("Order intent:")
	fmt.Printf("  Symbol:    %s\n", intent.Symbol)
	fmt.Printf("  Side:      %s\n", side(intent.IsBid))
	fmt.Printf("  Price:     mantissa=%d exp=%d\n", intent.PriceMantissa, intent.PriceExponent)
	fmt.Printf("  BaseAtoms: %d\n", intent.BaseAtoms)
	fmt.Printf("  Owner:     %s\n\n", intent.Owner.Hex())

	signature, err := signing.SignOrder(domain, signer, intent)
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signature: 0x%x\n\n", signature)

	fmt.Println("Verifying signature...")
	ok, err := signing.VerifyOrder(domain, intent, signature)
	if err != nil {
		fmt.Printf("Error verifying: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("signature INVALID")
		os.Exit(1)
	}
	fmt.Println("signature VALID")

	body := placeOrderBody{
		Symbol:        intent.Symbol,
		Owner:         intent.Owner.Hex(),
		IsBid:         intent.IsBid,
		OrderType:     intent.OrderType,
		PriceMantissa: uint32(intent.PriceMantissa),
		PriceExponent: intent.PriceExponent,
		BaseAtoms:     intent.BaseAtoms,
		LastValidSlot: intent.LastValidSlot,
		CurrentSlot:   0,
		Nonce:         intent.Nonce,
		Signature:     fmt.Sprintf("0x%x", signature),
	}
	payload, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("POST http://localhost:8080/api/v1/orders")
	fmt.Println(string(payload))
}

// placeOrderBody mirrors api.PlaceOrderRequest's field names; redefined
// here rather than importing pkg/api so this tool stays a standalone
// offline signer with no dependency on the server package.
type placeOrderBody struct {
	Symbol        string `json:"symbol"`
	Owner         string `json:"owner"`
	IsBid         bool   `json:"isBid"`
	OrderType     uint8  `json:"orderType"`
	PriceMantissa uint32 `json:"priceMantissa"`
	PriceExponent int32  `json:"priceExponent"`
	BaseAtoms     uint64 `json:"baseAtoms"`
	LastValidSlot uint64 `json:"lastValidSlot"`
	CurrentSlot   uint64 `json:"currentSlot"`
	Nonce         uint64 `json:"nonce"`
	Signature     string `json:"signature"`
}

func side(isBid bool) string {
	if isBid {
		return "bid"
	}
	return "ask"
}
