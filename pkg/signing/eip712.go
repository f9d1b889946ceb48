package signing

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain separates signatures across deployments/markets the same way
// the teacher's EIP712Domain does.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

func (d Domain) typed() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(d.ChainID),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// OrderIntent is the typed payload a trader signs to authorize
// place_order (spec.md §6).
type OrderIntent struct {
	Symbol        string
	IsBid         bool
	OrderType     uint8
	PriceMantissa uint64
	PriceExponent int32
	BaseAtoms     uint64
	LastValidSlot uint64
	Nonce         uint64
	Owner         common.Address
}

// CancelIntent authorizes cancel.
type CancelIntent struct {
	Symbol         string
	SequenceNumber uint64
	Nonce          uint64
	Owner          common.Address
}

// WithdrawIntent authorizes withdraw.
type WithdrawIntent struct {
	Symbol string
	Qty    uint64
	Nonce  uint64
	Owner  common.Address
}

var orderFields = []apitypes.Type{
	{Name: "symbol", Type: "string"},
	{Name: "isBid", Type: "bool"},
	{Name: "orderType", Type: "uint8"},
	{Name: "priceMantissa", Type: "uint256"},
	{Name: "priceExponent", Type: "int256"},
	{Name: "baseAtoms", Type: "uint256"},
	{Name: "lastValidSlot", Type: "uint256"},
	{Name: "nonce", Type: "uint256"},
	{Name: "owner", Type: "address"},
}

var cancelFields = []apitypes.Type{
	{Name: "symbol", Type: "string"},
	{Name: "sequenceNumber", Type: "uint256"},
	{Name: "nonce", Type: "uint256"},
	{Name: "owner", Type: "address"},
}

var withdrawFields = []apitypes.Type{
	{Name: "symbol", Type: "string"},
	{Name: "qty", Type: "uint256"},
	{Name: "nonce", Type: "uint256"},
	{Name: "owner", Type: "address"},
}

func domainFields() []apitypes.Type {
	return []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}
}

func digest(domain Domain, primaryType string, fields []apitypes.Type, message apitypes.TypedDataMessage) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainFields(),
			primaryType:    fields,
		},
		PrimaryType: primaryType,
		Domain:      domain.typed(),
		Message:     message,
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("signing: hash domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(primaryType, message)
	if err != nil {
		return nil, fmt.Errorf("signing: hash message: %w", err)
	}
	raw := append(append([]byte("\x19\x01"), domainSeparator...), messageHash...)
	return crypto.Keccak256(raw), nil
}

func boolUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// HashOrder returns the digest a trader signs to authorize intent.
func HashOrder(domain Domain, intent OrderIntent) ([]byte, error) {
	return digest(domain, "Order", orderFields, apitypes.TypedDataMessage{
		"symbol":        intent.Symbol,
		"isBid":         fmt.Sprintf("%d", boolUint8(intent.IsBid)),
		"orderType":     fmt.Sprintf("%d", intent.OrderType),
		"priceMantissa": fmt.Sprintf("%d", intent.PriceMantissa),
		"priceExponent": fmt.Sprintf("%d", intent.PriceExponent),
		"baseAtoms":     fmt.Sprintf("%d", intent.BaseAtoms),
		"lastValidSlot": fmt.Sprintf("%d", intent.LastValidSlot),
		"nonce":         fmt.Sprintf("%d", intent.Nonce),
		"owner":         intent.Owner.Hex(),
	})
}

// SignOrder signs intent with signer.
func SignOrder(domain Domain, signer *Signer, intent OrderIntent) ([]byte, error) {
	h, err := HashOrder(domain, intent)
	if err != nil {
		return nil, err
	}
	return signer.Sign(h)
}

// VerifyOrder reports whether signature authorizes intent by intent.Owner.
func VerifyOrder(domain Domain, intent OrderIntent, signature []byte) (bool, error) {
	h, err := HashOrder(domain, intent)
	if err != nil {
		return false, err
	}
	recovered, err := RecoverAddress(h, signature)
	if err != nil {
		return false, err
	}
	return recovered == intent.Owner, nil
}

// HashCancel returns the digest a trader signs to authorize intent.
func HashCancel(domain Domain, intent CancelIntent) ([]byte, error) {
	return digest(domain, "CancelOrder", cancelFields, apitypes.TypedDataMessage{
		"symbol":         intent.Symbol,
		"sequenceNumber": fmt.Sprintf("%d", intent.SequenceNumber),
		"nonce":          fmt.Sprintf("%d", intent.Nonce),
		"owner":          intent.Owner.Hex(),
	})
}

// SignCancel signs intent with signer.
func SignCancel(domain Domain, signer *Signer, intent CancelIntent) ([]byte, error) {
	h, err := HashCancel(domain, intent)
	if err != nil {
		return nil, err
	}
	return signer.Sign(h)
}

// VerifyCancel reports whether signature authorizes intent by intent.Owner.
func VerifyCancel(domain Domain, intent CancelIntent, signature []byte) (bool, error) {
	h, err := HashCancel(domain, intent)
	if err != nil {
		return false, err
	}
	recovered, err := RecoverAddress(h, signature)
	if err != nil {
		return false, err
	}
	return recovered == intent.Owner, nil
}

// HashWithdraw returns the digest a trader signs to authorize intent.
func HashWithdraw(domain Domain, intent WithdrawIntent) ([]byte, error) {
	return digest(domain, "Withdraw", withdrawFields, apitypes.TypedDataMessage{
		"symbol": intent.Symbol,
		"qty":    fmt.Sprintf("%d", intent.Qty),
		"nonce":  fmt.Sprintf("%d", intent.Nonce),
		"owner":  intent.Owner.Hex(),
	})
}

// SignWithdraw signs intent with signer.
func SignWithdraw(domain Domain, signer *Signer, intent WithdrawIntent) ([]byte, error) {
	h, err := HashWithdraw(domain, intent)
	if err != nil {
		return nil, err
	}
	return signer.Sign(h)
}

// VerifyWithdraw reports whether signature authorizes intent by intent.Owner.
func VerifyWithdraw(domain Domain, intent WithdrawIntent, signature []byte) (bool, error) {
	h, err := HashWithdraw(domain, intent)
	if err != nil {
		return false, err
	}
	recovered, err := RecoverAddress(h, signature)
	if err != nil {
		return false, err
	}
	return recovered == intent.Owner, nil
}
