package services

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SandboxGateway is an in-memory gateway for development and tests. It
// accepts every collection request and reports the status configured per
// checkout-request id (success by default).
type SandboxGateway struct {
	mu       sync.Mutex
	Requests []SandboxRequest
	statuses map[string]GatewayStatus
	Down     bool // simulate an outage
}

type SandboxRequest struct {
	PhoneNumber      string
	Amount           int64
	AccountReference string
	Description      string
	CheckoutID       string
}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{statuses: map[string]GatewayStatus{}}
}

func (g *SandboxGateway) RequestCollection(phoneNumber string, amount int64, accountReference, description string) (*CollectionRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Down {
		return nil, ErrGatewayUnavailable
	}

	checkoutID := "ws_CO_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	g.Requests = append(g.Requests, SandboxRequest{
		PhoneNumber:      phoneNumber,
		Amount:           amount,
		AccountReference: accountReference,
		Description:      description,
		CheckoutID:       checkoutID,
	})
	return &CollectionRequest{
		MerchantRequestID: uuid.NewString(),
		CheckoutRequestID: checkoutID,
	}, nil
}

func (g *SandboxGateway) QueryStatus(checkoutRequestID string) (*GatewayStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Down {
		return nil, ErrGatewayUnavailable
	}
	if st, ok := g.statuses[checkoutRequestID]; ok {
		return &st, nil
	}
	return &GatewayStatus{ResultCode: 0, ResultDesc: "The service request is processed successfully."}, nil
}

// SetStatus fixes the status returned by QueryStatus for one checkout id.
func (g *SandboxGateway) SetStatus(checkoutRequestID string, code int, desc string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[checkoutRequestID] = GatewayStatus{ResultCode: code, ResultDesc: desc}
}
