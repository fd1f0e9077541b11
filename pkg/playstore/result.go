package playstore

import (
	"encoding/json"
	"io"

	"github.com/Jeffail/gabs/v2"
)

// Result is the JSON object returned by the publisher API, either a purchase resource or an error envelope.
// Numbers are kept as json.Number.
type Result map[string]interface{}

// decodeResult parses a JSON object. Anything that is not a JSON object yields ok == false.
func decodeResult(r io.Reader) (Result, bool) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	container, err := gabs.ParseJSONDecoder(decoder)
	if err != nil {
		return Result{}, false
	}

	// the body must hold a single JSON value
	if _, err := decoder.Token(); err != io.EOF {
		return Result{}, false
	}

	object, ok := container.Data().(map[string]interface{})
	if !ok {
		return Result{}, false
	}
	return Result(object), true
}

func (result Result) container() *gabs.Container {
	return gabs.Wrap(map[string]interface{}(result))
}

// IsEmpty reports whether the remote call failed without a usable body
func (result Result) IsEmpty() bool {
	return len(result) == 0
}

// IsError reports whether the result is an error envelope
func (result Result) IsError() bool {
	_, ok := result["error"]
	return ok
}

// ErrorCode returns error.code
func (result Result) ErrorCode() (int64, bool) {
	return toInt64(result.container().Path("error.code").Data())
}

// ErrorMessage returns error.message
func (result Result) ErrorMessage() string {
	message, _ := result.container().Path("error.message").Data().(string)
	return message
}

// ErrorReasons returns the reason of every entry of error.errors
func (result Result) ErrorReasons() []string {
	reasons := []string{}
	for _, child := range result.container().Path("error.errors").Children() {
		if reason, ok := child.Path("reason").Data().(string); ok {
			reasons = append(reasons, reason)
		}
	}
	return reasons
}

// PurchaseState returns purchaseState: 0 purchased, 1 canceled, 2 pending
func (result Result) PurchaseState() (int64, bool) {
	return toInt64(result["purchaseState"])
}

// ConsumptionState returns consumptionState: 0 yet to be consumed, 1 consumed
func (result Result) ConsumptionState() (int64, bool) {
	return toInt64(result["consumptionState"])
}

// Path returns the value at a dot separated path, or nil
func (result Result) Path(path string) interface{} {
	return result.container().Path(path).Data()
}

func (result Result) String() string {
	return result.container().String()
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
