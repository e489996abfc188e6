package agentpay

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPaymentAdviceValidate(t *testing.T) {
	t.Parallel()

	valid := PaymentAdvice{
		Amount:   decimal.NewFromInt(1000),
		Currency: "USD",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	tests := map[string]struct {
		advice    PaymentAdvice
		wantParam string
	}{
		"missing amount": {
			advice:    PaymentAdvice{Currency: "USD"},
			wantParam: "amount",
		},
		"zero amount": {
			advice:    PaymentAdvice{Amount: decimal.Zero, Currency: "USD"},
			wantParam: "amount",
		},
		"negative amount": {
			advice:    PaymentAdvice{Amount: decimal.NewFromInt(-5), Currency: "USD"},
			wantParam: "amount",
		},
		"missing currency": {
			advice:    PaymentAdvice{Amount: decimal.NewFromInt(10)},
			wantParam: "currency",
		},
		"short currency": {
			advice:    PaymentAdvice{Amount: decimal.NewFromInt(10), Currency: "US"},
			wantParam: "currency",
		},
		"long currency": {
			advice:    PaymentAdvice{Amount: decimal.NewFromInt(10), Currency: "USDC"},
			wantParam: "currency",
		},
		"non-letter currency": {
			advice:    PaymentAdvice{Amount: decimal.NewFromInt(10), Currency: "U5D"},
			wantParam: "currency",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.advice.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !IsKind(err, InvalidAdvice) {
				t.Fatalf("Validate() kind = %v, want invalid_advice", err)
			}
			var clientErr *Error
			if !errors.As(err, &clientErr) {
				t.Fatalf("Validate() returned %T, want *Error", err)
			}
			if clientErr.Param == nil || *clientErr.Param != tt.wantParam {
				t.Fatalf("Validate() param = %v, want %q (message %q)", clientErr.Param, tt.wantParam, clientErr.Message)
			}
			if !strings.Contains(clientErr.Message, tt.wantParam) {
				t.Fatalf("Validate() message %q should name field %q", clientErr.Message, tt.wantParam)
			}
		})
	}
}
