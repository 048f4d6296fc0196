package models

// SmsEncoding is the character class a message is sent with
type SmsEncoding string

const (
	// EncodingGSM is the GSM 03.38 7-bit default alphabet
	EncodingGSM SmsEncoding = "GSM"
	// EncodingUnicode is UCS-2
	EncodingUnicode SmsEncoding = "Unicode"
)

// Valid reports whether e is one of the known encodings
func (e SmsEncoding) Valid() bool {
	return e == EncodingGSM || e == EncodingUnicode
}

// ServiceType identifies which product a queued message belongs to
type ServiceType string

const (
	ServiceA2P ServiceType = "A2P"
	ServiceOTP ServiceType = "OTP"
)

// Valid reports whether s is a known service type
func (s ServiceType) Valid() bool {
	return s == ServiceA2P || s == ServiceOTP
}

// SmscConfig carries the routing credentials of the authenticated sender.
// It is attached to every queued job untouched.
type SmscConfig struct {
	SmscID    string `json:"smscId" validate:"len=10"`
	From      string `json:"from" validate:"min=3,max=10"`
	Password  string `json:"password" validate:"min=6,max=10"`
	Username  string `json:"username" validate:"len=10"`
	TeamID    string `json:"teamId" validate:"len=10"`
	CompanyID string `json:"companyId" validate:"len=10"`
}

// QueueJob is the unit of work handed to the delivery queue
type QueueJob struct {
	ID                  string      `json:"id"`
	To                  string      `json:"to"`
	Text                string      `json:"text"`
	SmsEncoding         SmsEncoding `json:"smsEncoding"`
	ServiceType         ServiceType `json:"serviceType"`
	SuccessCallbackURL  string      `json:"successCallbackUrl,omitempty"`
	ErrorCallbackURL    string      `json:"errorCallbackUrl,omitempty"`
	CallbacksHTTPMethod string      `json:"callbacksHttpMethod,omitempty"`
	ExpireAt            *int64      `json:"expireAt,omitempty"` // Unix milliseconds
	Config              SmscConfig  `json:"config"`
	CreatedAt           int64       `json:"createdAt"` // Unix milliseconds
	Meta                any         `json:"meta,omitempty"`
}

// Callbacks groups the optional delivery callback settings shared by the A2P and OTP payloads
type Callbacks struct {
	SuccessCallbackURL  string `json:"successCallbackUrl" binding:"omitempty,url"`
	ErrorCallbackURL    string `json:"errorCallbackUrl" binding:"omitempty,url"`
	CallbacksHTTPMethod string `json:"callbacksHttpMethod" binding:"omitempty,oneof=GET POST"`
	ExpireAt            *int64 `json:"expireAt" binding:"omitempty,gt=0"`
}

// A2PRequest represents the request body for sending an application-to-person message
type A2PRequest struct {
	To          string      `json:"to" binding:"required,min=9,max=16,phone"`
	Text        string      `json:"text" binding:"required,min=1,max=1000"`
	SmsEncoding SmsEncoding `json:"smsEncoding" binding:"omitempty,oneof=GSM Unicode"`
	Callbacks
}

// A2PResponse is the data returned once an A2P message has been queued
type A2PResponse struct {
	To          string      `json:"to"`
	SmsEncoding SmsEncoding `json:"smsEncoding"`
	Chunks      int         `json:"chunks"`
	MessageID   string      `json:"messageId"`
}
