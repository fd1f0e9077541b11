package iap

import (
	"encoding/json"
	"fmt"
)

// PlayStoreReceiptJSON is the purchase data the Play Billing library hands to the app, signed with the app's key
type PlayStoreReceiptJSON struct {
	OrderID          string `json:"orderId"`
	PackageName      string `json:"packageName"`
	ProductID        string `json:"productId"`
	PurchaseTime     int64  `json:"purchaseTime"`
	PurchaseState    int    `json:"purchaseState"`
	PurchaseToken    string `json:"purchaseToken"`
	DeveloperPayload string `json:"developerPayload"`
	Acknowledged     bool   `json:"acknowledged"`
}

// PlayStoreReceiptPayload is the Unity IAP payload wrapping a receipt and its signature
type PlayStoreReceiptPayload struct {
	JSON      string `json:"json"`
	Signature string `json:"signature"`
}

// ParseUnityPayload unwraps the receipt and signature of a Unity IAP payload
func ParseUnityPayload(payload string) (*PlayStoreReceiptPayload, error) {
	var receiptPayload PlayStoreReceiptPayload
	if err := json.Unmarshal([]byte(payload), &receiptPayload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}

	if len(receiptPayload.JSON) == 0 || len(receiptPayload.Signature) == 0 {
		return nil, fmt.Errorf("%w: payload json and signature are mandatory", ErrMalformedReceipt)
	}
	return &receiptPayload, nil
}
