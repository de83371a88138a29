package domain

import "testing"

func TestDeliveryStatusAdvances(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{DeliveryPending, DeliverySent, true},
		{DeliverySent, DeliveryDelivered, true},
		{DeliveryDelivered, DeliveryRead, true},
		{DeliveryRead, DeliveryDelivered, false},
		{DeliveryDelivered, DeliverySent, false},
		{DeliverySent, DeliverySent, false},
		{DeliverySent, DeliveryFailed, true},
	}

	for _, tt := range tests {
		if got := DeliveryStatusAdvances(tt.from, tt.to); got != tt.want {
			t.Errorf("DeliveryStatusAdvances(%s, %s): expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}
