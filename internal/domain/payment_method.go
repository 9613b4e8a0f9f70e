package domain

import "encoding/json"

// Secret wraps a sensitive value so it cannot leak through accidental
// logging or serialization. The raw value is only reachable via Expose.
type Secret struct {
	value string
}

// NewSecret wraps a raw sensitive value.
func NewSecret(v string) Secret {
	return Secret{value: v}
}

// Expose returns the wrapped value. Call sites are the audit surface.
func (s Secret) Expose() string {
	return s.value
}

func (s Secret) String() string {
	return "***"
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal("***")
}

// PaymentMethodKind discriminates the PaymentMethodData union.
type PaymentMethodKind string

const (
	MethodCard         PaymentMethodKind = "card"
	MethodWallet       PaymentMethodKind = "wallet"
	MethodBankRedirect PaymentMethodKind = "bank_redirect"
	MethodBankDebit    PaymentMethodKind = "bank_debit"
	MethodBankTransfer PaymentMethodKind = "bank_transfer"
	MethodCrypto       PaymentMethodKind = "crypto"
	MethodUpi          PaymentMethodKind = "upi"
	MethodGiftCard     PaymentMethodKind = "gift_card"
)

// CardData carries card details with the secret fields masked at rest.
type CardData struct {
	Number      Secret
	ExpiryMonth string
	ExpiryYear  string
	CVC         Secret
	HolderName  string
	Network     string
}

// Bin returns the first six digits of the card number for blocklist and
// routing rules. Empty when the number is shorter than six digits.
func (c CardData) Bin() string {
	n := c.Number.Expose()
	if len(n) < 6 {
		return ""
	}
	return n[:6]
}

// WalletData identifies a wallet payment (e.g. apple_pay, paypal) plus the
// opaque token handed over by the wallet SDK.
type WalletData struct {
	WalletType string
	Token      Secret
}

// BankRedirectData carries redirect-based bank payments (ideal, sofort...).
type BankRedirectData struct {
	Issuer  string
	Scheme  string
	Country string
}

// BankDebitData carries direct-debit account details.
type BankDebitData struct {
	AccountNumber Secret
	RoutingNumber string
	AccountHolder string
}

// BankTransferData carries credit-transfer instructions.
type BankTransferData struct {
	Reference string
	Country   string
}

// CryptoData identifies a crypto-currency payment.
type CryptoData struct {
	Currency string
	Network  string
}

// UpiData carries a UPI virtual payment address.
type UpiData struct {
	VPA Secret
}

// GiftCardData carries a gift card number and pin.
type GiftCardData struct {
	Number Secret
	PIN    Secret
}

// PaymentMethodData is the tagged union over all supported payment
// methods. Exactly one variant pointer is non-nil; Kind names it.
type PaymentMethodData struct {
	Kind         PaymentMethodKind
	Card         *CardData
	Wallet       *WalletData
	BankRedirect *BankRedirectData
	BankDebit    *BankDebitData
	BankTransfer *BankTransferData
	Crypto       *CryptoData
	Upi          *UpiData
	GiftCard     *GiftCardData
}

// NewCardPaymentMethod is a convenience constructor for the common case.
func NewCardPaymentMethod(card CardData) PaymentMethodData {
	return PaymentMethodData{Kind: MethodCard, Card: &card}
}
