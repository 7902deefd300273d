package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSensitive(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{name: "empty", message: "", want: false},
		{name: "plain chat", message: "see you at the gym tomorrow", want: false},
		{name: "keyword bank", message: "please check your Bank statement", want: true},
		{name: "keyword otp", message: "your OTP is on the way", want: true},
		{name: "keyword urgent", message: "this is URGENT", want: true},
		{name: "currency naira", message: "send ₦500 today", want: true},
		{name: "currency dollar", message: "that costs $20", want: true},
		{name: "long digit run", message: "call me on 08012345678", want: true},
		{name: "short digits", message: "meet at 130 pm", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSensitive(tt.message))
		})
	}
}
