package events

import "github.com/draftea/order-saga/shared/models"

// CustomerType classifies a customer for payment routing. New customers go through fraud review.
type CustomerType int

const (
	CustomerTypeNew CustomerType = iota
	CustomerTypeExisting
)

func (t CustomerType) String() string {
	switch t {
	case CustomerTypeNew:
		return "new"
	case CustomerTypeExisting:
		return "existing"
	default:
		return "unknown"
	}
}

// RequestKind is the variant tag shared by every request message
type RequestKind int

const (
	// KindNewOrder asks the receiver to process a new order (or, for fraud, to check one).
	KindNewOrder RequestKind = iota
	// KindShutDown tells the receiver to terminate and cascade the shutdown downstream.
	KindShutDown
)

func (k RequestKind) String() string {
	switch k {
	case KindNewOrder:
		return "new_order"
	case KindShutDown:
		return "shut_down"
	default:
		return "unknown"
	}
}

// OrderRequest is sent from the basket service to the order service
type OrderRequest struct {
	Kind       RequestKind
	CustomerID models.CustomerID
}

// NewOrderRequest signals that a customer is attempting to make a new order
func NewOrderRequest(customerID models.CustomerID) OrderRequest {
	return OrderRequest{Kind: KindNewOrder, CustomerID: customerID}
}

// ShutDownOrderRequest starts the shutdown cascade
func ShutDownOrderRequest() OrderRequest {
	return OrderRequest{Kind: KindShutDown}
}

func (r OrderRequest) Topic() Topic {
	if r.Kind == KindShutDown {
		return OrderRequestShutDownTopic
	}
	return OrderRequestNewTopic
}

// OrderResult is the outcome of a new order, sent from the order service to the basket service
type OrderResult struct {
	CustomerID models.CustomerID
	Succeeded  bool
}

func (OrderResult) Topic() Topic { return OrderResultTopic }

// PaymentRequest is sent from the order service to the payment service
type PaymentRequest struct {
	Kind         RequestKind
	OrderID      models.OrderID
	CustomerType CustomerType
}

// NewPaymentRequest asks for a payment attempt for an order
func NewPaymentRequest(orderID models.OrderID, customerType CustomerType) PaymentRequest {
	return PaymentRequest{Kind: KindNewOrder, OrderID: orderID, CustomerType: customerType}
}

func ShutDownPaymentRequest() PaymentRequest {
	return PaymentRequest{Kind: KindShutDown}
}

func (r PaymentRequest) Topic() Topic {
	if r.Kind == KindShutDown {
		return PaymentRequestShutDownTopic
	}
	return PaymentRequestNewTopic
}

// PaymentResult is the outcome of a payment, sent from the payment service to the order service
type PaymentResult struct {
	OrderID   models.OrderID
	Succeeded bool
}

func (PaymentResult) Topic() Topic { return PaymentResultTopic }

// FraudCheck is sent from the payment service to the fraud service
type FraudCheck struct {
	Kind    RequestKind
	OrderID models.OrderID
}

// NewFraudCheck asks the fraud service to check an order
func NewFraudCheck(orderID models.OrderID) FraudCheck {
	return FraudCheck{Kind: KindNewOrder, OrderID: orderID}
}

func ShutDownFraudCheck() FraudCheck {
	return FraudCheck{Kind: KindShutDown}
}

func (c FraudCheck) Topic() Topic {
	if c.Kind == KindShutDown {
		return FraudCheckShutDownTopic
	}
	return FraudCheckOrderTopic
}

// FraudCheckResult is the verdict of a fraud check, sent from the fraud service to the payment service
type FraudCheckResult struct {
	OrderID   models.OrderID
	Succeeded bool
}

func (FraudCheckResult) Topic() Topic { return FraudCheckResultTopic }

// Message is implemented by every message travelling through the choreography
type Message interface {
	Topic() Topic
}

var (
	_ Message = OrderRequest{}
	_ Message = OrderResult{}
	_ Message = PaymentRequest{}
	_ Message = PaymentResult{}
	_ Message = FraudCheck{}
	_ Message = FraudCheckResult{}
)
