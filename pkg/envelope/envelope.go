// Package envelope defines the uniform wrapper every API response is sent in.
package envelope

// Envelope is either {success: true, data, message?} or
// {success: false, error}.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK wraps data in a success envelope. message may be empty.
func OK(data interface{}, message string) Envelope {
	return Envelope{Success: true, Data: data, Message: message}
}

// Message is a success envelope without data.
func Message(message string) Envelope {
	return Envelope{Success: true, Message: message}
}

// Fail wraps an error message in a failure envelope.
func Fail(msg string) Envelope {
	return Envelope{Success: false, Error: msg}
}
