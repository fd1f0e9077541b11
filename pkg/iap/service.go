package iap

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/awa/go-iap/playstore"
	"github.com/calmisland/go-errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrUnsupportedApplication is returned for receipts of applications without a public key
	ErrUnsupportedApplication = errors.New("unsupported application")
	// ErrMalformedReceipt is returned when the receipt is not valid purchase JSON
	ErrMalformedReceipt = errors.New("malformed receipt")
)

// Service holds the Play Console public keys used to check receipt signatures
type Service struct {
	mu                sync.RWMutex
	AndroidPublicKeys map[string]string
}

// NewService creates a service without keys
func NewService() *Service {
	return &Service{
		AndroidPublicKeys: make(map[string]string),
	}
}

// Initialize replaces the known keys with the ones of source
func (service *Service) Initialize(source AndroidKeySource) error {
	androidList, err := source.GetAndroidList()
	if err != nil {
		return fmt.Errorf("could not load android information: %w", err)
	}

	keys := make(map[string]string, len(androidList))
	for _, v := range androidList {
		keys[v.ApplicationID] = v.PublicKey
	}

	service.mu.Lock()
	service.AndroidPublicKeys = keys
	service.mu.Unlock()

	log.WithField("applications", len(keys)).Info("android information is loaded successfully")
	return nil
}

// GetAndroidPublicKey ...
func (service *Service) GetAndroidPublicKey(appID string) (string, bool) {
	service.mu.RLock()
	defer service.mu.RUnlock()

	publicKey, ok := service.AndroidPublicKeys[appID]
	return publicKey, ok
}

// VerifyReceipt parses a receipt and checks its signature against the public key of its package
func (service *Service) VerifyReceipt(receipt string, signature string) (*PlayStoreReceiptJSON, bool, error) {
	var objReceipt PlayStoreReceiptJSON
	if err := json.Unmarshal([]byte(receipt), &objReceipt); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}

	if len(objReceipt.PackageName) == 0 || len(objReceipt.ProductID) == 0 || len(objReceipt.PurchaseToken) == 0 {
		return &objReceipt, false, fmt.Errorf("%w: packageName, productId and purchaseToken are mandatory", ErrMalformedReceipt)
	}

	publicKey, hasAppPublicKey := service.GetAndroidPublicKey(objReceipt.PackageName)
	if !hasAppPublicKey {
		return &objReceipt, false, fmt.Errorf("%w: %s", ErrUnsupportedApplication, objReceipt.PackageName)
	}

	isValid, err := playstore.VerifySignature(publicKey, []byte(receipt), signature)
	if err != nil {
		return &objReceipt, false, err
	}

	return &objReceipt, isValid, nil
}
